package io

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/ndskl/pkg/container"
	"github.com/matzehuels/ndskl/pkg/errors"
	"github.com/matzehuels/ndskl/pkg/ndskl"
	"github.com/matzehuels/ndskl/pkg/skeleton"
)

const sample = `ANDSKEL
3
BBOX [0,0,0] [1,1,1]
[CRITICAL POINTS]
2
0 0.1 0.1 0.1 1.5 1 0
1
1 0
3 0.9 0.9 0.9 8.25 0 0
1
0 0
[FILAMENTS]
1
0 1 3
0.1 0.1 0.1
0.5 0.5 0.5
0.9 0.9 0.9
[CRITICAL POINTS DATA]
1
density
1.5
8.25
[FILAMENTS DATA]
1
width
0.01
0.02
0.03
`

// branching has a critical point with no connections, one with two, and a
// filament without samples.
const branching = `ANDSKEL
2
BBOX [0,0] [4,4]
[CRITICAL POINTS]
3
1 0 0 0.5 2 0
2
1 0
2 1
0 1 1 0.25 -1 1
0
3 2 2 4.5 0 0
1
0 1
[FILAMENTS]
2
0 1 2
0 0
1 1
0 2 0
[CRITICAL POINTS DATA]
2
persistence
robustness
1 2
3 4
5 6
[FILAMENTS DATA]
0


`

func parse(t *testing.T, doc string) *skeleton.Skeleton {
	t.Helper()
	sk, err := ndskl.ParseBytes([]byte(doc), ndskl.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return sk
}

func dataset(t *testing.T, f *container.File, group, name string) container.Array {
	t.Helper()
	g, err := f.Group(group)
	if err != nil {
		t.Fatal(err)
	}
	a, err := g.Dataset(name)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func attrInt(t *testing.T, f *container.File, group, name string) int64 {
	t.Helper()
	g, err := f.Group(group)
	if err != nil {
		t.Fatal(err)
	}
	a, err := g.Attr(name)
	if err != nil {
		t.Fatal(err)
	}
	if a.DType() != container.Int32 {
		t.Errorf("%s/%s dtype = %s, want int32", group, name, a.DType())
	}
	v, ok := a.Int()
	if !ok {
		t.Fatalf("%s/%s is not an integer scalar", group, name)
	}
	return v
}

func TestWriteSkeletonEndToEnd(t *testing.T) {
	sk := parse(t, sample)
	m := container.NewMemory()
	if err := WriteSkeleton(m, sk, skeleton.Flatten(sk)); err != nil {
		t.Fatal(err)
	}
	f := m.File()

	if got := f.GroupNames(); !reflect.DeepEqual(got, []string{GroupHeader, GroupCriticalPoints, GroupFilaments}) {
		t.Errorf("groups = %v", got)
	}
	if got := attrInt(t, f, GroupHeader, AttrNumDimensions); got != 3 {
		t.Errorf("NumDimensions = %d, want 3", got)
	}
	if got := attrInt(t, f, GroupHeader, AttrNumCriticalPoints); got != 2 {
		t.Errorf("NumCriticalPoints = %d, want 2", got)
	}
	if got := attrInt(t, f, GroupHeader, AttrNumFilaments); got != 1 {
		t.Errorf("NumFilaments = %d, want 1", got)
	}
	if got := attrInt(t, f, GroupFilaments, AttrNumAssociatedFields); got != 1 {
		t.Errorf("Filaments NumAssociatedFields = %d, want 1", got)
	}

	hdr, _ := f.Group(GroupHeader)
	bbox, _ := hdr.Attr(AttrBoundingBox)
	if v, ok := bbox.AsFloat32(); !ok || !reflect.DeepEqual(v, []float32{0, 0, 0, 1, 1, 1}) {
		t.Errorf("BoundingBox = %v", v)
	}

	nsamp, _ := dataset(t, f, GroupFilaments, DatasetNumSamplingPoints).AsInt64()
	if !reflect.DeepEqual(nsamp, []int64{3}) {
		t.Errorf("NumSamplingPoints = %v, want [3]", nsamp)
	}
	off, _ := dataset(t, f, GroupFilaments, DatasetOffsetSamplingPoints).AsInt64()
	if !reflect.DeepEqual(off, []int64{0}) {
		t.Errorf("OffsetSamplingPoints = %v, want [0]", off)
	}
	coords := dataset(t, f, GroupFilaments, DatasetCoordinatesSamplingPoints)
	if !reflect.DeepEqual(coords.Shape(), []int{3, 3}) {
		t.Errorf("CoordinatesSamplingPoints shape = %v, want [3 3]", coords.Shape())
	}
	if v, _ := coords.AsFloat64(); !reflect.DeepEqual(v, []float64{0.1, 0.1, 0.1, 0.5, 0.5, 0.5, 0.9, 0.9, 0.9}) {
		t.Errorf("CoordinatesSamplingPoints = %v", v)
	}

	fields := dataset(t, f, GroupFilaments, DatasetAssociatedFields)
	if !reflect.DeepEqual(fields.Shape(), []int{3, 1}) {
		t.Errorf("Filaments AssociatedFields shape = %v, want [3 1]", fields.Shape())
	}
	cpFields := dataset(t, f, GroupCriticalPoints, DatasetAssociatedFields)
	if v, _ := cpFields.AsFloat64(); !reflect.DeepEqual(v, []float64{1.5, 8.25}) {
		t.Errorf("CriticalPoints AssociatedFields = %v", v)
	}
	ext, _ := dataset(t, f, GroupFilaments, DatasetIndexExtremalCriticalPoints).AsInt64()
	if !reflect.DeepEqual(ext, []int64{0, 1}) {
		t.Errorf("IndexExtremalCriticalPoints = %v", ext)
	}
}

func TestWriteSkeletonOffsets(t *testing.T) {
	sk := parse(t, branching)
	m := container.NewMemory()
	if err := WriteSkeleton(m, sk, skeleton.Flatten(sk)); err != nil {
		t.Fatal(err)
	}
	f := m.File()

	tests := []struct {
		group, name string
		want        []int64
	}{
		{GroupCriticalPoints, DatasetNumConnectedFilaments, []int64{2, 0, 1}},
		{GroupCriticalPoints, DatasetOffsetFilamentAndExtreme, []int64{0, 2, 2}},
		{GroupCriticalPoints, DatasetIndexFilament, []int64{0, 1, 1}},
		{GroupCriticalPoints, DatasetIndexOtherFilamentExtreme, []int64{1, 2, 0}},
		{GroupCriticalPoints, DatasetPersistencePairIndex, []int64{2, -1, 0}},
		{GroupFilaments, DatasetNumSamplingPoints, []int64{2, 0}},
		{GroupFilaments, DatasetOffsetSamplingPoints, []int64{0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := dataset(t, f, tt.group, tt.name).AsInt64()
			if !ok || !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s/%s = %v, want %v", tt.group, tt.name, got, tt.want)
			}
		})
	}

	hdr, _ := f.Group(GroupHeader)
	bbox, _ := hdr.Attr(AttrBoundingBox)
	if v, _ := bbox.AsFloat32(); !reflect.DeepEqual(v, []float32{0, 0, 0, 4, 4, 0}) {
		t.Errorf("2-D BoundingBox = %v, want z padded with 0", v)
	}
	fields := dataset(t, f, GroupFilaments, DatasetAssociatedFields)
	if fields.Len() != 0 || !reflect.DeepEqual(fields.Shape(), []int{2, 0}) {
		t.Errorf("Filaments AssociatedFields = len %d shape %v", fields.Len(), fields.Shape())
	}
}

// sameSkeleton compares skeletons through their accessors, so nil and empty
// slices are treated alike.
func sameSkeleton(t *testing.T, got, want *skeleton.Skeleton) {
	t.Helper()
	if got.Dims != want.Dims || got.BBox != want.BBox {
		t.Errorf("header = %d %v, want %d %v", got.Dims, got.BBox, want.Dims, want.BBox)
	}
	if got.NumCriticalPoints() != want.NumCriticalPoints() || got.NumFilaments() != want.NumFilaments() {
		t.Fatalf("counts = %d/%d, want %d/%d", got.NumCriticalPoints(), got.NumFilaments(), want.NumCriticalPoints(), want.NumFilaments())
	}
	for i := 0; i < want.NumCriticalPoints(); i++ {
		if got.Coord(i) != want.Coord(i) || got.Points.Type[i] != want.Points.Type[i] || got.Points.PairID[i] != want.Points.PairID[i] {
			t.Errorf("critical point %d differs", i)
		}
		if g, w := got.Connections(i), want.Connections(i); !reflect.DeepEqual(g, w) {
			t.Errorf("Connections(%d) = %v, want %v", i, g, w)
		}
		if g, w := got.CriticalFields.Row(i), want.CriticalFields.Row(i); !reflect.DeepEqual(g, w) {
			t.Errorf("CriticalFields.Row(%d) = %v, want %v", i, g, w)
		}
	}
	for j := 0; j < want.NumFilaments(); j++ {
		if got.Fils.Extremes[j] != want.Fils.Extremes[j] {
			t.Errorf("Extremes[%d] = %v, want %v", j, got.Fils.Extremes[j], want.Fils.Extremes[j])
		}
		if g, w := got.Samples(j), want.Samples(j); !reflect.DeepEqual(g, w) {
			t.Errorf("Samples(%d) = %v, want %v", j, g, w)
		}
	}
	if !reflect.DeepEqual(got.FilamentFields.Names, want.FilamentFields.Names) && len(want.FilamentFields.Names) > 0 {
		t.Errorf("FilamentFields.Names = %v, want %v", got.FilamentFields.Names, want.FilamentFields.Names)
	}
	if got.FilamentFields.NumRows() != want.FilamentFields.NumRows() {
		t.Errorf("FilamentFields.NumRows() = %d, want %d", got.FilamentFields.NumRows(), want.FilamentFields.NumRows())
	}
}

func TestContainerRoundTrip(t *testing.T) {
	for _, doc := range []struct{ name, text string }{{"sample", sample}, {"branching", branching}} {
		for _, comp := range []container.Compression{container.CompressionNone, container.CompressionZstd} {
			t.Run(doc.name+"/"+string(comp), func(t *testing.T) {
				sk := parse(t, doc.text)
				path := filepath.Join(t.TempDir(), "skel.ndsklc")
				if err := ExportContainer(sk, skeleton.Flatten(sk), path, container.Options{Format: container.FormatNative, Compression: comp}); err != nil {
					t.Fatal(err)
				}
				got, err := ImportContainer(path)
				if err != nil {
					t.Fatal(err)
				}
				sameSkeleton(t, got, sk)
			})
		}
	}
}

func TestExportContainerHDF5(t *testing.T) {
	sk := parse(t, sample)
	path := filepath.Join(t.TempDir(), "skel.h5")
	if err := ExportContainer(sk, skeleton.Flatten(sk), path, container.Options{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte(container.HDF5Signature)) {
		t.Errorf("export without a format did not write HDF5")
	}
	if _, err := ImportContainer(path); !errors.Is(err, errors.ErrCodeReadFailure) {
		t.Errorf("ImportContainer(HDF5) error = %v", err)
	}

	err = ExportContainer(sk, skeleton.Flatten(sk), path, container.Options{Compression: container.CompressionZstd})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("zstd HDF5 export error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	sk := parse(t, sample)
	m := container.NewMemory()
	if err := WriteSkeleton(m, sk, skeleton.Flatten(sk)); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSkeleton(m.File())
	if err != nil {
		t.Fatal(err)
	}
	sameSkeleton(t, got, sk)
	if v := got.SampleFields(0, 2); !reflect.DeepEqual(v, []float64{0.03}) {
		t.Errorf("SampleFields(0, 2) = %v", v)
	}
}

func TestReadSkeletonRejects(t *testing.T) {
	sk := parse(t, branching)

	tests := []struct {
		name   string
		mutate func(*container.File)
	}{
		{"missing group", func(f *container.File) { f.Groups = f.Groups[:2] }},
		{"bad offset", func(f *container.File) {
			g, _ := f.Group(GroupCriticalPoints)
			for i, e := range g.Datasets {
				if e.Name == DatasetOffsetFilamentAndExtreme {
					g.Datasets[i].Value = container.Int64s([]int64{0, 1, 2})
				}
			}
		}},
		{"wrong dtype", func(f *container.File) {
			g, _ := f.Group(GroupFilaments)
			for i, e := range g.Datasets {
				if e.Name == DatasetNumSamplingPoints {
					g.Datasets[i].Value = container.Float64s([]float64{2, 0})
				}
			}
		}},
		{"catalog mismatch", func(f *container.File) {
			g, _ := f.Group(GroupCriticalPoints)
			for i, e := range g.Attrs {
				if e.Name == AttrNumAssociatedFields {
					g.Attrs[i].Value = container.Int32Scalar(3)
				}
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := container.NewMemory()
			if err := WriteSkeleton(m, sk, skeleton.Flatten(sk)); err != nil {
				t.Fatal(err)
			}
			tt.mutate(m.File())
			if _, err := ReadSkeleton(m.File()); !errors.Is(err, errors.ErrCodeReadFailure) {
				t.Errorf("ReadSkeleton error = %v, want %s", err, errors.ErrCodeReadFailure)
			}
		})
	}
}

var errDiskFull = stderrors.New("disk full")

// failingWriter fails the n-th dataset write.
type failingWriter struct {
	n      int
	closed bool
}

func (w *failingWriter) CreateGroup(string) (container.Group, error) { return w, nil }
func (w *failingWriter) Close() error                                 { w.closed = true; return nil }
func (w *failingWriter) SetAttr(string, container.Array) error        { return nil }
func (w *failingWriter) CreateDataset(string, container.Array) error {
	w.n--
	if w.n == 0 {
		return errDiskFull
	}
	return nil
}

func TestWriteSkeletonFailure(t *testing.T) {
	sk := parse(t, sample)
	w := &failingWriter{n: 4}
	err := WriteSkeleton(w, sk, skeleton.Flatten(sk))
	if !errors.Is(err, errors.ErrCodeWriteFailure) {
		t.Fatalf("error = %v, want %s", err, errors.ErrCodeWriteFailure)
	}
	if !stderrors.Is(err, errDiskFull) {
		t.Errorf("error %v does not wrap the writer's cause", err)
	}
	if w.closed {
		t.Error("WriteSkeleton closed the writer")
	}
}

func TestExportContainerBadPath(t *testing.T) {
	sk := parse(t, sample)
	err := ExportContainer(sk, skeleton.Flatten(sk), filepath.Join(t.TempDir(), "no", "such", "dir.ndsklc"), container.Options{})
	if !errors.Is(err, errors.ErrCodeWriteFailure) {
		t.Errorf("error = %v, want %s", err, errors.ErrCodeWriteFailure)
	}
}
