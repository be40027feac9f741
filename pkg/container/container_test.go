package container

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/matzehuels/ndskl/pkg/errors"
)

func writeSample(t *testing.T, w Writer) {
	t.Helper()

	hdr, err := w.CreateGroup("Header")
	if err != nil {
		t.Fatal(err)
	}
	if err := hdr.SetAttr("NumDimensions", Int32Scalar(3)); err != nil {
		t.Fatal(err)
	}
	if err := hdr.SetAttr("BoundingBox", Float32s([]float32{0, 0, 0, 1, 1, 1})); err != nil {
		t.Fatal(err)
	}

	cp, err := w.CreateGroup("CriticalPoints")
	if err != nil {
		t.Fatal(err)
	}
	if err := cp.SetAttr("AssociatedFieldsNames", Strings([]string{"density", "", "persistence ratio"})); err != nil {
		t.Fatal(err)
	}
	if err := cp.CreateDataset("Coordinates", Float64s([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, 2, 3)); err != nil {
		t.Fatal(err)
	}
	if err := cp.CreateDataset("CriticalIndex", Int64s([]int64{0, -1})); err != nil {
		t.Fatal(err)
	}
	if err := cp.CreateDataset("Empty", Float64s(nil, 0, 4)); err != nil {
		t.Fatal(err)
	}
}

func checkSample(t *testing.T, f *File) {
	t.Helper()

	if got := f.GroupNames(); !reflect.DeepEqual(got, []string{"Header", "CriticalPoints"}) {
		t.Fatalf("GroupNames() = %v", got)
	}

	hdr, err := f.Group("Header")
	if err != nil {
		t.Fatal(err)
	}
	dims, err := hdr.Attr("NumDimensions")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := dims.Int(); !ok || v != 3 || dims.DType() != Int32 || len(dims.Shape()) != 0 {
		t.Errorf("NumDimensions = %v %v (%s, shape %v)", v, ok, dims.DType(), dims.Shape())
	}
	bbox, _ := hdr.Attr("BoundingBox")
	if v, ok := bbox.AsFloat32(); !ok || !reflect.DeepEqual(v, []float32{0, 0, 0, 1, 1, 1}) {
		t.Errorf("BoundingBox = %v", v)
	}

	cp, err := f.Group("CriticalPoints")
	if err != nil {
		t.Fatal(err)
	}
	names, _ := cp.Attr("AssociatedFieldsNames")
	if v, ok := names.AsStrings(); !ok || !reflect.DeepEqual(v, []string{"density", "", "persistence ratio"}) {
		t.Errorf("AssociatedFieldsNames = %q", v)
	}
	coords, _ := cp.Dataset("Coordinates")
	if !reflect.DeepEqual(coords.Shape(), []int{2, 3}) {
		t.Errorf("Coordinates shape = %v, want [2 3]", coords.Shape())
	}
	if v, ok := coords.AsFloat64(); !ok || !reflect.DeepEqual(v, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}) {
		t.Errorf("Coordinates = %v", v)
	}
	idx, _ := cp.Dataset("CriticalIndex")
	if v, ok := idx.AsInt64(); !ok || !reflect.DeepEqual(v, []int64{0, -1}) {
		t.Errorf("CriticalIndex = %v", v)
	}
	empty, _ := cp.Dataset("Empty")
	if empty.Len() != 0 || !reflect.DeepEqual(empty.Shape(), []int{0, 4}) {
		t.Errorf("Empty = len %d shape %v", empty.Len(), empty.Shape())
	}

	if _, err := cp.Dataset("Missing"); !errors.Is(err, errors.ErrCodeReadFailure) {
		t.Errorf("Dataset(Missing) error = %v", err)
	}
	if _, err := f.Group("Missing"); !errors.Is(err, errors.ErrCodeReadFailure) {
		t.Errorf("Group(Missing) error = %v", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	for _, comp := range []Compression{CompressionNone, CompressionZstd} {
		t.Run(string(comp), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.ndsklc")
			w, err := Create(path, Options{Compression: comp})
			if err != nil {
				t.Fatal(err)
			}
			writeSample(t, w)
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Errorf("second Close() = %v", err)
			}

			f, err := Open(path)
			if err != nil {
				t.Fatal(err)
			}
			checkSample(t, f)
		})
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	writeSample(t, m)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if !m.Closed() {
		t.Error("Closed() = false after Close")
	}
	checkSample(t, m.File())

	if _, err := m.CreateGroup("Late"); !errors.Is(err, errors.ErrCodeWriteFailure) {
		t.Errorf("CreateGroup after Close error = %v", err)
	}
}

func TestWriterRejects(t *testing.T) {
	newWriters := map[string]func(t *testing.T) Writer{
		"file": func(t *testing.T) Writer {
			w, err := Create(filepath.Join(t.TempDir(), "x.ndsklc"), Options{})
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { w.Close() })
			return w
		},
		"memory": func(*testing.T) Writer { return NewMemory() },
	}

	for name, newWriter := range newWriters {
		t.Run(name, func(t *testing.T) {
			w := newWriter(t)
			g, err := w.CreateGroup("G")
			if err != nil {
				t.Fatal(err)
			}

			tests := []struct {
				name string
				err  error
			}{
				{"duplicate group", func() error { _, err := w.CreateGroup("G"); return err }()},
				{"empty group name", func() error { _, err := w.CreateGroup(""); return err }()},
				{"slash in name", g.SetAttr("a/b", Int32Scalar(1))},
				{"bad shape", g.CreateDataset("D", Float64s([]float64{1, 2, 3}, 2, 2))},
			}
			for _, tt := range tests {
				if !errors.Is(tt.err, errors.ErrCodeWriteFailure) {
					t.Errorf("%s: error = %v, want %s", tt.name, tt.err, errors.ErrCodeWriteFailure)
				}
			}

			if err := g.CreateDataset("D", Int64s([]int64{1})); err != nil {
				t.Fatal(err)
			}
			if err := g.CreateDataset("D", Int64s([]int64{2})); !errors.Is(err, errors.ErrCodeWriteFailure) {
				t.Errorf("duplicate dataset error = %v", err)
			}
		})
	}
}

func TestCreateBadPath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "out.ndsklc"), Options{})
	if !errors.Is(err, errors.ErrCodeWriteFailure) {
		t.Errorf("Create error = %v, want %s", err, errors.ErrCodeWriteFailure)
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{"", CompressionNone, false},
		{"none", CompressionNone, false},
		{"ZSTD", CompressionZstd, false},
		{"gzip", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseCompression(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := Create(filepath.Join(t.TempDir(), "x"), Options{Compression: "lz4"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Create with bad compression error = %v", err)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndsklc")
	w, err := Create(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	writeSample(t, w)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	good, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	flip := func(i int) []byte {
		b := bytes.Clone(good)
		b[i] ^= 0xFF
		return b
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", flip(0)},
		{"bad version", flip(len(Magic))},
		{"truncated", good[:len(good)-20]},
		{"missing end record", good[:len(good)-9]},
		{"trailing bytes", append(bytes.Clone(good), 0)},
		{"payload corrupted", flip(bytes.Index(good, binary.LittleEndian.AppendUint64(nil, math.Float64bits(0.1))))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, errors.ErrCodeReadFailure) {
				t.Errorf("Decode error = %v, want %s", err, errors.ErrCodeReadFailure)
			}
		})
	}

	if _, err := Read(bytes.NewReader(good)); err != nil {
		t.Errorf("Read(good) = %v", err)
	}
}

func TestArrayAccessors(t *testing.T) {
	a := Int32s([]int32{1, 2})
	if _, ok := a.AsInt64(); ok {
		t.Error("AsInt64 on int32 array reported ok")
	}
	if v, ok := a.Ints(); !ok || !reflect.DeepEqual(v, []int64{1, 2}) {
		t.Errorf("Ints() = %v, %v", v, ok)
	}
	if _, ok := a.Int(); ok {
		t.Error("Int() on 2-element array reported ok")
	}
	f := Float32s([]float32{0.5})
	if v, ok := f.Floats(); !ok || !reflect.DeepEqual(v, []float64{0.5}) {
		t.Errorf("Floats() = %v, %v", v, ok)
	}
	if _, ok := Strings([]string{"x"}).Floats(); ok {
		t.Error("Floats() on strings reported ok")
	}
	if (Array{}).Validate() == nil {
		t.Error("zero Array validated")
	}
	if Float64.String() != "float64" || Float64.Size() != 8 || String.Size() != 0 {
		t.Error("unexpected DType metadata")
	}
}

func TestHDF5Writer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skel.h5")
	w, err := CreateHDF5(path)
	if err != nil {
		t.Fatal(err)
	}

	hdr, err := w.CreateGroup("Header")
	if err != nil {
		t.Fatal(err)
	}
	if err := hdr.SetAttr("NumDimensions", Int32Scalar(3)); err != nil {
		t.Fatal(err)
	}
	if err := hdr.SetAttr("BoundingBox", Float32s([]float32{0, 0, 0, 1, 1, 1})); err != nil {
		t.Fatal(err)
	}
	fil, err := w.CreateGroup("Filaments")
	if err != nil {
		t.Fatal(err)
	}
	if err := fil.SetAttr("AssociatedFieldsNames", Strings([]string{"width"})); err != nil {
		t.Fatal(err)
	}
	if err := fil.CreateDataset("NumSamplingPoints", Int64s([]int64{3})); err != nil {
		t.Fatal(err)
	}
	if err := fil.CreateDataset("CoordinatesSamplingPoints", Float64s([]float64{0, 0, 0, 0.5, 0.5, 0.5, 1, 1, 1}, 3, 3)); err != nil {
		t.Fatal(err)
	}

	if _, err := w.CreateGroup("Header"); !errors.Is(err, errors.ErrCodeWriteFailure) {
		t.Errorf("duplicate group error = %v", err)
	}
	if err := fil.CreateDataset("NumSamplingPoints", Int64s([]int64{3})); !errors.Is(err, errors.ErrCodeWriteFailure) {
		t.Errorf("duplicate dataset error = %v", err)
	}
	if err := fil.CreateDataset("Names", Strings([]string{"a"})); !errors.Is(err, errors.ErrCodeWriteFailure) {
		t.Errorf("string dataset error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := w.CreateGroup("Late"); !errors.Is(err, errors.ErrCodeWriteFailure) {
		t.Errorf("CreateGroup after Close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte(HDF5Signature)) {
		t.Fatalf("file starts with %q, want the HDF5 signature", data[:min(len(data), 8)])
	}
	if _, err := Decode(data); !errors.Is(err, errors.ErrCodeReadFailure) || !strings.Contains(err.Error(), "HDF5") {
		t.Errorf("Decode(HDF5 file) error = %v", err)
	}
}

func TestNewFormats(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name      string
		opts      Options
		signature string
		wantErr   errors.Code
	}{
		{"default is hdf5", Options{}, HDF5Signature, ""},
		{"native", Options{Format: "native", Compression: CompressionZstd}, Magic, ""},
		{"zstd needs native", Options{Compression: CompressionZstd}, "", errors.ErrCodeInvalidInput},
		{"unknown format", Options{Format: "netcdf"}, "", errors.ErrCodeInvalidInput},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strconv.Itoa(i))
			w, err := New(path, tt.opts)
			if tt.wantErr != "" {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New error = %v, want %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			g, err := w.CreateGroup("Header")
			if err != nil {
				t.Fatal(err)
			}
			if err := g.SetAttr("NumDimensions", Int32Scalar(2)); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(data, []byte(tt.signature)) {
				t.Errorf("file starts with %q, want %q", data[:min(len(data), 8)], tt.signature)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatHDF5, "HDF5": FormatHDF5, " native ": FormatNative} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("h5"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ParseFormat(h5) error = %v", err)
	}
}

func TestDecodeBoundsDeclaredLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndsklc")
	w, err := Create(path, Options{Compression: CompressionZstd})
	if err != nil {
		t.Fatal(err)
	}
	writeSample(t, w)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Raise the declared raw length of Coordinates (rank 2) to 1 GiB.
	name := bytes.Index(data, []byte("Coordinates"))
	if name < 0 {
		t.Fatal("Coordinates record not found")
	}
	rawLen := name + len("Coordinates") + 2*8
	if got := binary.LittleEndian.Uint64(data[rawLen:]); got != 48 {
		t.Fatalf("raw length field = %d, want 48", got)
	}
	binary.LittleEndian.PutUint64(data[rawLen:], 1<<30)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err = Decode(data)
	runtime.ReadMemStats(&after)

	if !errors.Is(err, errors.ErrCodeReadFailure) {
		t.Errorf("Decode error = %v, want %s", err, errors.ErrCodeReadFailure)
	}
	if grown := after.TotalAlloc - before.TotalAlloc; grown > 64<<20 {
		t.Errorf("Decode allocated %d bytes for a 1 GiB declared payload", grown)
	}
}
