package skeleton

import (
	"github.com/matzehuels/ndskl/pkg/ragged"
)

// Supported dimensionalities.
const (
	MinDims = 2
	MaxDims = 3
)

// NoPair marks a critical point without a persistence partner.
const NoPair = -1

// Point is a position in up to three dimensions. For 2-D skeletons the Z
// component is zero.
type Point [3]float64

// BoundingBox is the axis-aligned box enclosing the skeleton, stored as its
// two corners.
type BoundingBox struct {
	Min Point
	Max Point
}

// Flat returns the box as x0,y0,z0,x1,y1,z1.
func (b BoundingBox) Flat() [6]float64 {
	return [6]float64{b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2]}
}

// Connection is one filament incident to a critical point.
type Connection struct {
	OtherCP  int64 // Critical point at the other end of the filament
	Filament int64 // Filament index
}

// CriticalPoints is a column store of critical points. All columns have
// one entry per critical point; Coords holds Dims values per point.
type CriticalPoints struct {
	Type     []int64
	Coords   []float64
	Value    []float64
	PairID   []int64
	Boundary []int64

	// OtherCP and Filament share counts and offsets: row i lists the
	// connections of critical point i in file order.
	OtherCP  ragged.Array[int64]
	Filament ragged.Array[int64]
}

// Filaments is a column store of filaments.
type Filaments struct {
	Extremes [][2]int64

	// Samples holds the sampled path of each filament, Dims values per
	// sample point. Counts are in sample points.
	Samples ragged.Array[float64]
}

// Skeleton is the root aggregate produced by parsing one skeleton file.
type Skeleton struct {
	Dims   int
	BBox   BoundingBox
	Points CriticalPoints
	Fils   Filaments

	// CriticalFields has one row per critical point. FilamentFields has
	// one row per sample point, in the order of Fils.Samples, so filament
	// j owns rows Fils.Samples.Offsets[j] onwards.
	CriticalFields *FieldTable
	FilamentFields *FieldTable
}

// NumCriticalPoints returns the number of critical points.
func (s *Skeleton) NumCriticalPoints() int { return len(s.Points.Type) }

// NumFilaments returns the number of filaments.
func (s *Skeleton) NumFilaments() int { return len(s.Fils.Extremes) }

// NumSamples returns the total number of filament sample points.
func (s *Skeleton) NumSamples() int64 { return s.Fils.Samples.Total() }

// NumConnections returns the total number of critical point connections.
func (s *Skeleton) NumConnections() int64 { return s.Points.Filament.Total() }

// Coord returns the position of critical point i.
func (s *Skeleton) Coord(i int) Point {
	var p Point
	copy(p[:], s.Points.Coords[i*s.Dims:(i+1)*s.Dims])
	return p
}

// Connections returns the ordered connections of critical point i.
func (s *Skeleton) Connections(i int) []Connection {
	others := s.Points.OtherCP.Row(i)
	fils := s.Points.Filament.Row(i)
	out := make([]Connection, len(fils))
	for k := range fils {
		out[k] = Connection{OtherCP: others[k], Filament: fils[k]}
	}
	return out
}

// Samples returns the ordered sample points of filament j.
func (s *Skeleton) Samples(j int) []Point {
	n := int(s.Fils.Samples.Counts[j])
	out := make([]Point, n)
	for k := 0; k < n; k++ {
		copy(out[k][:], s.Fils.Samples.Item(j, k))
	}
	return out
}

// SampleFields returns the field row of sample k on filament j.
func (s *Skeleton) SampleFields(j, k int) []float64 {
	return s.FilamentFields.Row(int(s.Fils.Samples.Offsets[j]) + k)
}
