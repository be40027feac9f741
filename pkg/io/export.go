package io

import (
	"fmt"
	"math"

	"github.com/matzehuels/ndskl/pkg/container"
	"github.com/matzehuels/ndskl/pkg/errors"
	"github.com/matzehuels/ndskl/pkg/skeleton"
)

// WriteSkeleton writes sk and its flattened layout l to w as three groups:
// Header, CriticalPoints and Filaments. l must come from
// [skeleton.Flatten] applied to sk.
//
// WriteSkeleton does not close w. The first failing write aborts the export
// and is returned as WRITE_FAILURE.
func WriteSkeleton(w container.Writer, sk *skeleton.Skeleton, l *skeleton.Layout) error {
	if err := l.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "inconsistent layout")
	}
	steps := []struct {
		group string
		write func(*groupWriter)
	}{
		{GroupHeader, func(g *groupWriter) { writeHeader(g, sk) }},
		{GroupCriticalPoints, func(g *groupWriter) { writeCriticalPoints(g, sk, l) }},
		{GroupFilaments, func(g *groupWriter) { writeFilaments(g, sk, l) }},
	}
	for _, step := range steps {
		grp, err := w.CreateGroup(step.group)
		if err != nil {
			return wrapWrite(err, "create group %s", step.group)
		}
		g := &groupWriter{name: step.group, g: grp}
		step.write(g)
		if g.err != nil {
			return g.err
		}
	}
	return nil
}

// ExportContainer writes sk to a container file at path, in HDF5 unless
// opts selects the native format. The file is closed on every path; a
// partially written file is left behind when the export fails.
func ExportContainer(sk *skeleton.Skeleton, l *skeleton.Layout, path string, opts container.Options) (err error) {
	w, err := container.New(path, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteSkeleton(w, sk, l)
}

func writeHeader(g *groupWriter, sk *skeleton.Skeleton) {
	bbox := sk.BBox.Flat()
	box := make([]float32, len(bbox))
	for i, v := range bbox {
		box[i] = float32(v)
	}
	g.count(AttrNumDimensions, sk.Dims)
	g.attr(AttrBoundingBox, container.Float32s(box))
	g.count(AttrNumCriticalPoints, sk.NumCriticalPoints())
	g.count(AttrNumFilaments, sk.NumFilaments())
}

func writeCriticalPoints(g *groupWriter, sk *skeleton.Skeleton, l *skeleton.Layout) {
	n := sk.NumCriticalPoints()
	cp := sk.Points
	c := l.Connections

	writeFieldCatalog(g, sk.CriticalFields)
	g.dataset(DatasetCriticalIndex, container.Int64s(cp.Type))
	g.dataset(DatasetCoordinates, container.Float64s(cp.Coords, n, sk.Dims))
	g.dataset(DatasetDensityDTFE, container.Float64s(cp.Value))
	g.dataset(DatasetPersistencePairIndex, container.Int64s(cp.PairID))
	g.dataset(DatasetBoundaryFlag, container.Int64s(cp.Boundary))
	g.dataset(DatasetNumConnectedFilaments, container.Int64s(c.Counts))
	g.dataset(DatasetIndexOtherFilamentExtreme, container.Int64s(c.OtherCP))
	g.dataset(DatasetIndexFilament, container.Int64s(c.Filament))
	g.dataset(DatasetOffsetFilamentAndExtreme, container.Int64s(c.Offsets))
	g.dataset(DatasetAssociatedFields, fieldValues(sk.CriticalFields, n))
}

func writeFilaments(g *groupWriter, sk *skeleton.Skeleton, l *skeleton.Layout) {
	m := sk.NumFilaments()
	s := l.Samples
	f := l.SampleFields

	extremes := make([]int64, 0, 2*m)
	for _, e := range sk.Fils.Extremes {
		extremes = append(extremes, e[0], e[1])
	}
	total := len(s.Coords) / max(s.Dims, 1)

	writeFieldCatalog(g, sk.FilamentFields)
	g.dataset(DatasetIndexExtremalCriticalPoints, container.Int64s(extremes, m, 2))
	g.dataset(DatasetNumSamplingPoints, container.Int64s(s.Counts))
	g.dataset(DatasetCoordinatesSamplingPoints, container.Float64s(s.Coords, total, s.Dims))
	g.dataset(DatasetAssociatedFields, container.Float64s(f.Values, total, f.NumFields))
	g.dataset(DatasetOffsetSamplingPoints, container.Int64s(s.Offsets))
}

func writeFieldCatalog(g *groupWriter, t *skeleton.FieldTable) {
	var names []string
	if t != nil {
		names = t.Names
	}
	g.count(AttrNumAssociatedFields, len(names))
	g.attr(AttrAssociatedFieldsNames, container.Strings(names))
}

// fieldValues returns the rows×fields matrix of t.
func fieldValues(t *skeleton.FieldTable, rows int) container.Array {
	if t == nil {
		return container.Float64s(nil, rows, 0)
	}
	return container.Float64s(t.Values, rows, t.NumFields())
}

// groupWriter writes into one group and keeps the first error.
type groupWriter struct {
	name string
	g    container.Group
	err  error
}

func (g *groupWriter) attr(name string, a container.Array) {
	if g.err != nil {
		return
	}
	if err := g.g.SetAttr(name, a); err != nil {
		g.err = wrapWrite(err, "%s attribute %s", g.name, name)
	}
}

func (g *groupWriter) dataset(name string, a container.Array) {
	if g.err != nil {
		return
	}
	if err := g.g.CreateDataset(name, a); err != nil {
		g.err = wrapWrite(err, "%s dataset %s", g.name, name)
	}
}

// count writes n as an int32 scalar attribute.
func (g *groupWriter) count(name string, n int) {
	if g.err != nil {
		return
	}
	if n > math.MaxInt32 {
		g.err = errors.New(errors.ErrCodeWriteFailure, "%s attribute %s: %d does not fit int32", g.name, name, n)
		return
	}
	g.attr(name, container.Int32Scalar(int32(n)))
}

// wrapWrite tags err as WRITE_FAILURE unless it already carries that code.
func wrapWrite(err error, format string, args ...any) error {
	if errors.Is(err, errors.ErrCodeWriteFailure) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
	}
	return errors.Wrap(errors.ErrCodeWriteFailure, err, format, args...)
}
