package skeleton

import (
	"fmt"

	"github.com/matzehuels/ndskl/pkg/ragged"
)

// ConnectionLayout is the flattened critical point → filament relation.
// Connections of critical point i are OtherCP[Offsets[i]:Offsets[i]+Counts[i]]
// and the same range of Filament.
type ConnectionLayout struct {
	OtherCP  []int64
	Filament []int64
	Counts   []int64
	Offsets  []int64
}

// SampleLayout is the flattened filament → sample point relation. Coords
// holds Dims values per sample; Counts and Offsets are in sample points.
type SampleLayout struct {
	Coords  []float64
	Dims    int
	Counts  []int64
	Offsets []int64
}

// SampleFieldLayout is the flattened per-sample field rows. It shares
// Counts and Offsets with the sample layout.
type SampleFieldLayout struct {
	Values    []float64
	NumFields int
	Counts    []int64
	Offsets   []int64
}

// Layout is the immutable output of [Flatten]: three flat sequences plus
// exclusive prefix-sum offset tables, ready to be written to a container.
type Layout struct {
	Connections  ConnectionLayout
	Samples      SampleLayout
	SampleFields SampleFieldLayout
}

// Flatten derives the flat representation of sk. Each relation is the
// concatenation of every entity's sub-sequence in index order, with
// offsets computed as an exclusive prefix sum of the per-entity counts.
// The returned layout shares no storage with sk.
func Flatten(sk *Skeleton) *Layout {
	conn := sk.Points.Filament.Clone()
	others := sk.Points.OtherCP.Clone()
	samples := sk.Fils.Samples.Clone()

	// Offsets are re-derived from counts, not copied from the model.
	connOffsets := ragged.ExclusivePrefixSum(conn.Counts)
	sampleOffsets := ragged.ExclusivePrefixSum(samples.Counts)

	fieldCounts := append([]int64(nil), samples.Counts...)
	fieldOffsets := append([]int64(nil), sampleOffsets...)

	var fieldValues []float64
	nfields := 0
	if sk.FilamentFields != nil {
		fieldValues = append([]float64(nil), sk.FilamentFields.Values...)
		nfields = sk.FilamentFields.NumFields()
	}

	return &Layout{
		Connections: ConnectionLayout{
			OtherCP:  others.Values,
			Filament: conn.Values,
			Counts:   conn.Counts,
			Offsets:  connOffsets,
		},
		Samples: SampleLayout{
			Coords:  samples.Values,
			Dims:    sk.Dims,
			Counts:  samples.Counts,
			Offsets: sampleOffsets,
		},
		SampleFields: SampleFieldLayout{
			Values:    fieldValues,
			NumFields: nfields,
			Counts:    fieldCounts,
			Offsets:   fieldOffsets,
		},
	}
}

// Validate checks that every relation of l satisfies the offset invariants
// and that parallel arrays agree in length.
func (l *Layout) Validate() error {
	c := l.Connections
	if len(c.OtherCP) != len(c.Filament) {
		return fmt.Errorf("%w: %d other-cp entries for %d filament entries", ragged.ErrInconsistent, len(c.OtherCP), len(c.Filament))
	}
	if err := (ragged.Array[int64]{Values: c.Filament, Counts: c.Counts, Offsets: c.Offsets}).Validate(); err != nil {
		return fmt.Errorf("connections: %w", err)
	}

	s := l.Samples
	if err := (ragged.Array[float64]{Values: s.Coords, Counts: s.Counts, Offsets: s.Offsets, Stride: s.Dims}).Validate(); err != nil {
		return fmt.Errorf("samples: %w", err)
	}

	f := l.SampleFields
	if len(f.Counts) != len(s.Counts) {
		return fmt.Errorf("sample fields: %w: %d rows for %d filaments", ragged.ErrInconsistent, len(f.Counts), len(s.Counts))
	}
	if f.NumFields > 0 {
		if err := (ragged.Array[float64]{Values: f.Values, Counts: f.Counts, Offsets: f.Offsets, Stride: f.NumFields}).Validate(); err != nil {
			return fmt.Errorf("sample fields: %w", err)
		}
	} else if len(f.Values) != 0 {
		return fmt.Errorf("sample fields: %w: %d values without fields", ragged.ErrInconsistent, len(f.Values))
	}
	return nil
}

// ConnectionsOf returns the connections of critical point i read through
// the flat layout.
func (l *Layout) ConnectionsOf(i int) []Connection {
	c := l.Connections
	start, n := c.Offsets[i], c.Counts[i]
	out := make([]Connection, n)
	for k := int64(0); k < n; k++ {
		out[k] = Connection{OtherCP: c.OtherCP[start+k], Filament: c.Filament[start+k]}
	}
	return out
}

// SamplesOf returns the flat coordinates of filament j read through the
// flat layout (Dims values per sample).
func (l *Layout) SamplesOf(j int) []float64 {
	s := l.Samples
	d := int64(s.Dims)
	return s.Coords[s.Offsets[j]*d : (s.Offsets[j]+s.Counts[j])*d]
}
