package ragged

import "fmt"

// Builder appends rows to a ragged array, recording each row's offset when
// the row is opened. It is not safe for concurrent use.
type Builder[T any] struct {
	arr  Array[T]
	open bool
}

// NewBuilder creates a builder for items of stride values each. rows and
// items are capacity hints and may be zero.
func NewBuilder[T any](stride, rows, items int) *Builder[T] {
	if stride <= 0 {
		stride = 1
	}
	return &Builder[T]{arr: Array[T]{
		Values:  make([]T, 0, items*stride),
		Counts:  make([]int64, 0, rows),
		Offsets: make([]int64, 0, rows),
		Stride:  stride,
	}}
}

// StartRow opens a new, initially empty row.
func (b *Builder[T]) StartRow() {
	b.arr.Offsets = append(b.arr.Offsets, b.arr.Total())
	b.arr.Counts = append(b.arr.Counts, 0)
	b.open = true
}

// Push appends one item to the current row. It panics if no row was
// started or if len(item) differs from the stride.
func (b *Builder[T]) Push(item ...T) {
	if !b.open {
		panic("ragged: Push before StartRow")
	}
	if len(item) != b.arr.stride() {
		panic(fmt.Sprintf("ragged: item has %d values, stride is %d", len(item), b.arr.stride()))
	}
	b.arr.Values = append(b.arr.Values, item...)
	b.arr.Counts[len(b.arr.Counts)-1]++
}

// Len returns the number of rows started so far.
func (b *Builder[T]) Len() int { return b.arr.Len() }

// Build returns the accumulated array. The builder must not be used after
// Build.
func (b *Builder[T]) Build() Array[T] {
	b.open = false
	return b.arr
}
