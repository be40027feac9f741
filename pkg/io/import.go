package io

import (
	"github.com/matzehuels/ndskl/pkg/container"
	"github.com/matzehuels/ndskl/pkg/errors"
	"github.com/matzehuels/ndskl/pkg/ragged"
	"github.com/matzehuels/ndskl/pkg/skeleton"
)

// ReadSkeleton rebuilds a skeleton from a container written by
// [WriteSkeleton]. Connections and samples are recovered through the stored
// count and offset datasets, so an inconsistent offset table is reported
// as READ_FAILURE rather than silently re-derived.
//
// Bounding box values come back at float32 precision.
func ReadSkeleton(f *container.File) (*skeleton.Skeleton, error) {
	r := &reader{f: f}

	hdr := r.group(GroupHeader)
	dims := int(r.scalar(hdr, AttrNumDimensions))
	ncp := int(r.scalar(hdr, AttrNumCriticalPoints))
	nfil := int(r.scalar(hdr, AttrNumFilaments))
	bbox := r.floats(hdr, AttrBoundingBox, true, 6)
	if r.err != nil {
		return nil, r.err
	}
	if dims < skeleton.MinDims || dims > skeleton.MaxDims {
		return nil, errors.New(errors.ErrCodeReadFailure, "%s: unsupported dimension %d", AttrNumDimensions, dims)
	}
	if ncp < 0 || nfil < 0 {
		return nil, errors.New(errors.ErrCodeReadFailure, "negative entity count (%d critical points, %d filaments)", ncp, nfil)
	}

	sk := &skeleton.Skeleton{Dims: dims}
	copy(sk.BBox.Min[:], bbox[:3])
	copy(sk.BBox.Max[:], bbox[3:])

	cp := r.group(GroupCriticalPoints)
	sk.Points = skeleton.CriticalPoints{
		Type:     r.ints(cp, DatasetCriticalIndex, ncp),
		Coords:   r.floats(cp, DatasetCoordinates, false, ncp*dims),
		Value:    r.floats(cp, DatasetDensityDTFE, false, ncp),
		PairID:   r.ints(cp, DatasetPersistencePairIndex, ncp),
		Boundary: r.ints(cp, DatasetBoundaryFlag, ncp),
	}
	counts := r.ints(cp, DatasetNumConnectedFilaments, ncp)
	offsets := r.ints(cp, DatasetOffsetFilamentAndExtreme, ncp)
	sk.Points.OtherCP = r.ragged(cp, DatasetIndexOtherFilamentExtreme, counts, offsets)
	sk.Points.Filament = r.ragged(cp, DatasetIndexFilament, counts, offsets)
	sk.CriticalFields = r.fields(cp, ncp)

	fl := r.group(GroupFilaments)
	extremes := r.ints(fl, DatasetIndexExtremalCriticalPoints, 2*nfil)
	counts = r.ints(fl, DatasetNumSamplingPoints, nfil)
	offsets = r.ints(fl, DatasetOffsetSamplingPoints, nfil)
	coords := r.floats(fl, DatasetCoordinatesSamplingPoints, false, -1)
	if r.err != nil {
		return nil, r.err
	}

	sk.Fils.Extremes = make([][2]int64, nfil)
	for j := range sk.Fils.Extremes {
		sk.Fils.Extremes[j] = [2]int64{extremes[2*j], extremes[2*j+1]}
	}
	sk.Fils.Samples = ragged.Array[float64]{Values: coords, Counts: counts, Offsets: offsets, Stride: dims}
	if err := sk.Fils.Samples.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeReadFailure, err, "%s/%s", GroupFilaments, DatasetCoordinatesSamplingPoints)
	}
	sk.FilamentFields = r.fields(fl, int(sk.NumSamples()))

	if r.err != nil {
		return nil, r.err
	}
	return sk, nil
}

// ImportContainer opens the native container at path and rebuilds its
// skeleton. HDF5 files fail with READ_FAILURE.
func ImportContainer(path string) (*skeleton.Skeleton, error) {
	f, err := container.Open(path)
	if err != nil {
		return nil, err
	}
	return ReadSkeleton(f)
}

// reader pulls typed values out of a decoded container and keeps the
// first error. Once err is set every method returns zero values.
type reader struct {
	f   *container.File
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) group(name string) *container.Node {
	if r.err != nil {
		return nil
	}
	n, err := r.f.Group(name)
	if err != nil {
		r.fail(err)
	}
	return n
}

func (r *reader) value(n *container.Node, name string, attr bool) (container.Array, bool) {
	if r.err != nil || n == nil {
		return container.Array{}, false
	}
	get := n.Dataset
	if attr {
		get = n.Attr
	}
	a, err := get(name)
	if err != nil {
		r.fail(err)
		return container.Array{}, false
	}
	return a, true
}

func (r *reader) scalar(n *container.Node, name string) int64 {
	a, ok := r.value(n, name, true)
	if !ok {
		return 0
	}
	v, ok := a.Int()
	if !ok {
		r.fail(errors.New(errors.ErrCodeReadFailure, "%s/%s: expected integer scalar, found %s%v", n.Name, name, a.DType(), a.Shape()))
	}
	return v
}

// ints reads an integer dataset holding want elements. A negative want
// accepts any length.
func (r *reader) ints(n *container.Node, name string, want int) []int64 {
	a, ok := r.value(n, name, false)
	if !ok {
		return nil
	}
	v, ok := a.Ints()
	if !ok {
		r.fail(errors.New(errors.ErrCodeReadFailure, "%s/%s: expected integers, found %s", n.Name, name, a.DType()))
		return nil
	}
	if want >= 0 && len(v) != want {
		r.fail(errors.New(errors.ErrCodeReadFailure, "%s/%s: %d elements, want %d", n.Name, name, len(v), want))
		return nil
	}
	return v
}

// floats reads a floating-point attribute or dataset. A negative want
// accepts any length.
func (r *reader) floats(n *container.Node, name string, attr bool, want int) []float64 {
	a, ok := r.value(n, name, attr)
	if !ok {
		return nil
	}
	v, ok := a.Floats()
	if !ok {
		r.fail(errors.New(errors.ErrCodeReadFailure, "%s/%s: expected floats, found %s", n.Name, name, a.DType()))
		return nil
	}
	if want >= 0 && len(v) != want {
		r.fail(errors.New(errors.ErrCodeReadFailure, "%s/%s: %d elements, want %d", n.Name, name, len(v), want))
		return nil
	}
	return v
}

func (r *reader) ragged(n *container.Node, name string, counts, offsets []int64) ragged.Array[int64] {
	values := r.ints(n, name, -1)
	if r.err != nil {
		return ragged.Array[int64]{}
	}
	a := ragged.Array[int64]{Values: values, Counts: counts, Offsets: offsets, Stride: 1}
	if err := a.Validate(); err != nil {
		r.fail(errors.Wrap(errors.ErrCodeReadFailure, err, "%s/%s", n.Name, name))
	}
	return a
}

// fields reads the field catalog and value matrix of a group.
func (r *reader) fields(n *container.Node, rows int) *skeleton.FieldTable {
	a, ok := r.value(n, AttrAssociatedFieldsNames, true)
	if !ok {
		return nil
	}
	names, ok := a.AsStrings()
	if !ok {
		r.fail(errors.New(errors.ErrCodeReadFailure, "%s/%s: expected strings, found %s", n.Name, AttrAssociatedFieldsNames, a.DType()))
		return nil
	}
	if declared := r.scalar(n, AttrNumAssociatedFields); r.err == nil && int(declared) != len(names) {
		r.fail(errors.New(errors.ErrCodeReadFailure, "%s: %d field names, %s is %d", n.Name, len(names), AttrNumAssociatedFields, declared))
		return nil
	}
	values := r.floats(n, DatasetAssociatedFields, false, rows*len(names))
	if r.err != nil {
		return nil
	}
	t := skeleton.NewFieldTable(names, 0)
	if err := t.SetRows(values, rows); err != nil {
		r.fail(errors.Wrap(errors.ErrCodeReadFailure, err, "%s/%s", n.Name, DatasetAssociatedFields))
		return nil
	}
	return t
}
