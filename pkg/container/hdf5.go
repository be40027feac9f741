package container

import (
	"fmt"

	"github.com/scigolib/hdf5"

	"github.com/matzehuels/ndskl/pkg/errors"
)

// HDF5Signature opens every HDF5 file.
const HDF5Signature = "\x89HDF\r\n\x1a\n"

// attributeWriter is implemented by the HDF5 group and dataset handles.
type attributeWriter interface {
	WriteAttribute(name string, value interface{}) error
}

// dataWriter is implemented by HDF5 dataset handles.
type dataWriter interface {
	Write(data interface{}) error
}

// HDF5Writer writes groups, attributes and datasets to an HDF5 file that
// h5py and the HDF5 tools read directly. Groups sit under the root, so a
// dataset is addressed as /Group/Name.
//
// Like [FileWriter], the first failure is sticky and Close must always be
// called.
type HDF5Writer struct {
	path   string
	fw     *hdf5.FileWriter
	groups map[string]*hdf5Group
	err    error
	closed bool
}

// CreateHDF5 creates or truncates the HDF5 file at path.
func CreateHDF5(path string) (*HDF5Writer, error) {
	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailure, err, "create %s", path)
	}
	return &HDF5Writer{path: path, fw: fw, groups: make(map[string]*hdf5Group)}, nil
}

// Path returns the file path given to CreateHDF5.
func (w *HDF5Writer) Path() string { return w.path }

// CreateGroup creates /name. Group names must be unique.
func (w *HDF5Writer) CreateGroup(name string) (Group, error) {
	if err := w.usable(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailure, err, "group")
	}
	if _, ok := w.groups[name]; ok {
		return nil, errors.New(errors.ErrCodeWriteFailure, "group %q already exists", name)
	}
	h, err := w.fw.CreateGroup("/" + name)
	if err != nil {
		return nil, w.fail(err, "create group /%s", name)
	}
	g := &hdf5Group{w: w, name: name, handle: h, attrs: map[string]bool{}, datasets: map[string]bool{}}
	w.groups[name] = g
	return g, nil
}

// Close flushes and closes the file. Only the first call has an effect.
func (w *HDF5Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	if err := w.fw.Close(); err != nil && w.err == nil {
		w.fail(err, "close %s", w.path)
	}
	return w.err
}

func (w *HDF5Writer) usable() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return errors.New(errors.ErrCodeWriteFailure, "write to closed container %s", w.path)
	}
	return nil
}

func (w *HDF5Writer) fail(err error, format string, args ...any) error {
	if w.err == nil {
		w.err = errors.Wrap(errors.ErrCodeWriteFailure, err, format, args...)
	}
	return w.err
}

// String implements fmt.Stringer for log output.
func (w *HDF5Writer) String() string {
	return fmt.Sprintf("hdf5(%s)", w.path)
}

type hdf5Group struct {
	w        *HDF5Writer
	name     string
	handle   any
	attrs    map[string]bool
	datasets map[string]bool
}

func (g *hdf5Group) SetAttr(name string, a Array) error {
	if err := g.check(g.attrs, "attribute", name, a); err != nil {
		return err
	}
	aw, ok := g.handle.(attributeWriter)
	if !ok {
		return g.w.fail(fmt.Errorf("group handle %T cannot hold attributes", g.handle), "attribute /%s/%s", g.name, name)
	}
	if err := aw.WriteAttribute(name, hdf5Value(a)); err != nil {
		return g.w.fail(err, "attribute /%s/%s", g.name, name)
	}
	g.attrs[name] = true
	return nil
}

func (g *hdf5Group) CreateDataset(name string, a Array) error {
	if err := g.check(g.datasets, "dataset", name, a); err != nil {
		return err
	}
	if a.dtype == String {
		return errors.New(errors.ErrCodeWriteFailure, "dataset /%s/%s: string datasets are not supported in HDF5 output", g.name, name)
	}

	dims := make([]uint64, len(a.shape))
	for i, d := range a.shape {
		dims[i] = uint64(d)
	}
	if len(dims) == 0 {
		dims = []uint64{1}
	}

	path := "/" + g.name + "/" + name
	var (
		ds  any
		err error
	)
	switch a.dtype {
	case Int32:
		ds, err = g.w.fw.CreateDataset(path, hdf5.Int32, dims)
	case Int64:
		ds, err = g.w.fw.CreateDataset(path, hdf5.Int64, dims)
	case Float32:
		ds, err = g.w.fw.CreateDataset(path, hdf5.Float32, dims)
	case Float64:
		ds, err = g.w.fw.CreateDataset(path, hdf5.Float64, dims)
	}
	if err != nil {
		return g.w.fail(err, "create dataset %s", path)
	}
	if a.Len() > 0 {
		dw, ok := ds.(dataWriter)
		if !ok {
			return g.w.fail(fmt.Errorf("dataset handle %T cannot be written", ds), "write dataset %s", path)
		}
		if err := dw.Write(hdf5Value(a)); err != nil {
			return g.w.fail(err, "write dataset %s", path)
		}
	}
	g.datasets[name] = true
	return nil
}

func (g *hdf5Group) check(seen map[string]bool, kind, name string, a Array) error {
	if err := g.w.usable(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailure, err, "%s/%s", g.name, kind)
	}
	if seen[name] {
		return errors.New(errors.ErrCodeWriteFailure, "%s %s/%s already exists", kind, g.name, name)
	}
	if err := a.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailure, err, "%s %s/%s", kind, g.name, name)
	}
	return nil
}

// hdf5Value returns the Go value the HDF5 library stores for a: a bare
// scalar for rank-0 arrays, the flat element slice otherwise.
func hdf5Value(a Array) any {
	scalar := len(a.shape) == 0
	switch a.dtype {
	case Int32:
		if scalar {
			return a.i32[0]
		}
		return a.i32
	case Int64:
		if scalar {
			return a.i64[0]
		}
		return a.i64
	case Float32:
		if scalar {
			return a.f32[0]
		}
		return a.f32
	case Float64:
		if scalar {
			return a.f64[0]
		}
		return a.f64
	case String:
		if scalar {
			return a.str[0]
		}
		return a.str
	}
	return nil
}

var (
	_ Writer = (*HDF5Writer)(nil)
	_ Group  = (*hdf5Group)(nil)
)
