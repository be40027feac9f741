package ragged

import (
	"errors"
	"fmt"
)

// ErrInconsistent is returned by [Array.Validate] when counts, offsets and
// values disagree.
var ErrInconsistent = errors.New("ragged: inconsistent layout")

// Array is a ragged array backed by a single flat slice.
// The zero value is an empty array with stride 1.
type Array[T any] struct {
	Values  []T     // Flat backing storage, Stride values per item
	Counts  []int64 // Items per row
	Offsets []int64 // Exclusive prefix sum of Counts
	Stride  int     // Values per item (0 is treated as 1)
}

func (a Array[T]) stride() int {
	if a.Stride <= 0 {
		return 1
	}
	return a.Stride
}

// Len returns the number of rows.
func (a Array[T]) Len() int { return len(a.Counts) }

// Total returns the number of items across all rows.
func (a Array[T]) Total() int64 {
	return int64(len(a.Values) / a.stride())
}

// Row returns the values of row i. The returned slice aliases the backing
// storage and must not be modified.
func (a Array[T]) Row(i int) []T {
	s := int64(a.stride())
	start := a.Offsets[i] * s
	end := (a.Offsets[i] + a.Counts[i]) * s
	return a.Values[start:end:end]
}

// Item returns item k of row i (Stride values).
func (a Array[T]) Item(i, k int) []T {
	s := a.stride()
	row := a.Row(i)
	return row[k*s : (k+1)*s]
}

// Rows copies the array back into a slice of rows.
func (a Array[T]) Rows() [][]T {
	out := make([][]T, a.Len())
	for i := range out {
		row := a.Row(i)
		out[i] = append(make([]T, 0, len(row)), row...)
	}
	return out
}

// Clone returns a deep copy that shares no storage with a.
func (a Array[T]) Clone() Array[T] {
	return Array[T]{
		Values:  append([]T(nil), a.Values...),
		Counts:  append([]int64(nil), a.Counts...),
		Offsets: append([]int64(nil), a.Offsets...),
		Stride:  a.stride(),
	}
}

// Validate checks the exclusive prefix-sum invariants:
// Offsets[0] == 0, Offsets[i+1]-Offsets[i] == Counts[i] >= 0, and the last
// offset plus the last count equals the item total.
func (a Array[T]) Validate() error {
	if len(a.Offsets) != len(a.Counts) {
		return fmt.Errorf("%w: %d offsets for %d counts", ErrInconsistent, len(a.Offsets), len(a.Counts))
	}
	s := a.stride()
	if len(a.Values)%s != 0 {
		return fmt.Errorf("%w: %d values is not a multiple of stride %d", ErrInconsistent, len(a.Values), s)
	}
	var next int64
	for i, c := range a.Counts {
		if c < 0 {
			return fmt.Errorf("%w: row %d has negative count %d", ErrInconsistent, i, c)
		}
		if a.Offsets[i] != next {
			return fmt.Errorf("%w: row %d offset %d, want %d", ErrInconsistent, i, a.Offsets[i], next)
		}
		next += c
	}
	if total := a.Total(); next != total {
		return fmt.Errorf("%w: counts sum to %d, flat array holds %d items", ErrInconsistent, next, total)
	}
	return nil
}

// ExclusivePrefixSum returns offsets where out[0] = 0 and
// out[i] = out[i-1] + counts[i-1].
func ExclusivePrefixSum(counts []int64) []int64 {
	out := make([]int64, len(counts))
	var sum int64
	for i, c := range counts {
		out[i] = sum
		sum += c
	}
	return out
}

// Flatten concatenates rows in order into a ragged array with the given
// stride. Every row length must be a multiple of stride.
func Flatten[T any](rows [][]T, stride int) (Array[T], error) {
	if stride <= 0 {
		stride = 1
	}
	var total int
	counts := make([]int64, len(rows))
	for i, r := range rows {
		if len(r)%stride != 0 {
			return Array[T]{}, fmt.Errorf("%w: row %d has %d values, not a multiple of stride %d", ErrInconsistent, i, len(r), stride)
		}
		counts[i] = int64(len(r) / stride)
		total += len(r)
	}
	values := make([]T, 0, total)
	for _, r := range rows {
		values = append(values, r...)
	}
	return Array[T]{
		Values:  values,
		Counts:  counts,
		Offsets: ExclusivePrefixSum(counts),
		Stride:  stride,
	}, nil
}
