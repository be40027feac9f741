package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/ndskl/pkg/errors"
)

// Writer is the narrow interface the skeleton export needs from a
// container: named groups holding attributes and datasets.
type Writer interface {
	CreateGroup(name string) (Group, error)
	Close() error
}

// Group receives the attributes and datasets of one named group.
type Group interface {
	SetAttr(name string, a Array) error
	CreateDataset(name string, a Array) error
}

// Compression selects how dataset payloads are stored.
type Compression string

// Supported compressions.
const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression parses a compression name. The empty string yields
// CompressionNone.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return c, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid compression %q (must be 'none' or 'zstd')", s)
	}
}

// Format selects the file format a container is written in.
type Format string

// Supported formats.
const (
	// FormatHDF5 writes HDF5, readable by h5py and the HDF5 tools.
	FormatHDF5 Format = "hdf5"
	// FormatNative writes the checksummed ndskl container, which supports
	// zstd compression and is read back by [Open].
	FormatNative Format = "native"
)

// ParseFormat parses a format name. The empty string yields FormatHDF5.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatHDF5:
		return FormatHDF5, nil
	case FormatNative:
		return f, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid format %q (must be 'hdf5' or 'native')", s)
	}
}

// Options configures a container file.
type Options struct {
	// Format defaults to FormatHDF5. [Create] ignores it.
	Format Format

	// Compression applies to dataset payloads of native containers.
	// Attributes are always stored uncompressed.
	Compression Compression
}

// Check normalizes o and rejects combinations no writer supports.
func (o Options) Check() (Options, error) {
	f, err := ParseFormat(string(o.Format))
	if err != nil {
		return o, err
	}
	c, err := ParseCompression(string(o.Compression))
	if err != nil {
		return o, err
	}
	if f == FormatHDF5 && c != CompressionNone {
		return o, errors.New(errors.ErrCodeInvalidInput, "%s compression requires the %s format", c, FormatNative)
	}
	return Options{Format: f, Compression: c}, nil
}

// New creates the container file at path in the format opts selects.
func New(path string, opts Options) (Writer, error) {
	opts, err := opts.Check()
	if err != nil {
		return nil, err
	}
	if opts.Format == FormatNative {
		w, err := Create(path, opts)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	w, err := CreateHDF5(path)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// FileWriter writes the native container format to a file. Records are
// appended in call order; the end record is written by Close.
//
// The first failure is sticky: later calls return it without writing.
// Close must always be called to release the file, even after a failure.
// A file whose writing failed is left on disk.
type FileWriter struct {
	path   string
	f      *os.File
	w      *bufio.Writer
	enc    *zstd.Encoder
	groups map[string]*fileGroup
	count  uint64
	err    error
	closed bool
}

// Create creates or truncates the file at path and writes the header.
func Create(path string, opts Options) (*FileWriter, error) {
	comp, err := ParseCompression(string(opts.Compression))
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailure, err, "create %s", path)
	}

	fw := &FileWriter{
		path:   path,
		f:      f,
		w:      bufio.NewWriterSize(f, 1<<20),
		groups: make(map[string]*fileGroup),
	}
	if comp == CompressionZstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create zstd encoder")
		}
		fw.enc = enc
	}

	hdr := make([]byte, 0, headerSize)
	hdr = append(hdr, Magic...)
	hdr = binary.LittleEndian.AppendUint16(hdr, Version)
	hdr = binary.LittleEndian.AppendUint16(hdr, 0)
	if _, err := fw.w.Write(hdr); err != nil {
		fw.fail(err, "write header")
		fw.Close()
		return nil, fw.err
	}
	return fw, nil
}

// Path returns the file path given to Create.
func (fw *FileWriter) Path() string { return fw.path }

// CreateGroup starts a new group. Group names must be unique.
func (fw *FileWriter) CreateGroup(name string) (Group, error) {
	if fw.err != nil {
		return nil, fw.err
	}
	if err := validName(name); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWriteFailure, err, "group")
	}
	if _, ok := fw.groups[name]; ok {
		return nil, errors.New(errors.ErrCodeWriteFailure, "group %q already exists", name)
	}
	if err := fw.record(kindGroup, codecNone, "", name, Array{dtype: Int32, shape: []int{0}}, nil); err != nil {
		return nil, err
	}
	g := &fileGroup{fw: fw, name: name, attrs: map[string]bool{}, datasets: map[string]bool{}}
	fw.groups[name] = g
	return g, nil
}

// Close writes the end record, flushes and closes the file. It is safe to
// call more than once; only the first call has an effect.
func (fw *FileWriter) Close() error {
	if fw.closed {
		return fw.err
	}
	fw.closed = true
	if fw.enc != nil {
		fw.enc.Close()
	}

	if fw.err == nil {
		end := []byte{byte(kindEnd)}
		end = binary.LittleEndian.AppendUint64(end, fw.count)
		if _, err := fw.w.Write(end); err != nil {
			fw.fail(err, "write end record")
		} else if err := fw.w.Flush(); err != nil {
			fw.fail(err, "flush")
		}
	}
	if err := fw.f.Close(); err != nil && fw.err == nil {
		fw.fail(err, "close")
	}
	return fw.err
}

func (fw *FileWriter) fail(err error, op string) {
	if fw.err == nil {
		fw.err = errors.Wrap(errors.ErrCodeWriteFailure, err, "%s %s", op, fw.path)
	}
}

// record encodes and writes one record.
func (fw *FileWriter) record(kind recordKind, c codec, group, name string, a Array, raw []byte) error {
	if fw.closed {
		return errors.New(errors.ErrCodeWriteFailure, "write to closed container %s", fw.path)
	}
	if len(a.shape) > maxRank {
		return errors.New(errors.ErrCodeWriteFailure, "%s %q: rank %d exceeds %d", kind, name, len(a.shape), maxRank)
	}

	data := raw
	if c == codecZstd {
		data = fw.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	}

	le := binary.LittleEndian
	b := make([]byte, 0, 4+4+len(group)+len(name)+8*len(a.shape)+16)
	b = append(b, byte(kind), byte(c), byte(a.dtype), byte(len(a.shape)))
	b = le.AppendUint16(b, uint16(len(group)))
	b = append(b, group...)
	b = le.AppendUint16(b, uint16(len(name)))
	b = append(b, name...)
	for _, d := range a.shape {
		b = le.AppendUint64(b, uint64(d))
	}
	b = le.AppendUint64(b, uint64(len(raw)))
	b = le.AppendUint64(b, uint64(len(data)))

	if _, err := fw.w.Write(b); err != nil {
		fw.fail(err, "write "+kind.String())
		return fw.err
	}
	if _, err := fw.w.Write(data); err != nil {
		fw.fail(err, "write "+kind.String())
		return fw.err
	}
	if _, err := fw.w.Write(le.AppendUint32(nil, checksum(raw))); err != nil {
		fw.fail(err, "write "+kind.String())
		return fw.err
	}
	fw.count++
	return nil
}

type fileGroup struct {
	fw       *FileWriter
	name     string
	attrs    map[string]bool
	datasets map[string]bool
}

func (g *fileGroup) SetAttr(name string, a Array) error {
	return g.put(kindAttr, g.attrs, name, a)
}

func (g *fileGroup) CreateDataset(name string, a Array) error {
	return g.put(kindDataset, g.datasets, name, a)
}

func (g *fileGroup) put(kind recordKind, seen map[string]bool, name string, a Array) error {
	fw := g.fw
	if fw.err != nil {
		return fw.err
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

	raw := encodePayload(a)
	c := codecNone
	if kind == kindDataset && fw.enc != nil && len(raw) > 0 {
		c = codecZstd
	}
	if err := fw.record(kind, c, g.name, name, a, raw); err != nil {
		return err
	}
	seen[name] = true
	return nil
}

// compile-time interface checks
var (
	_ Writer = (*FileWriter)(nil)
	_ Group  = (*fileGroup)(nil)
)

// String implements fmt.Stringer for log output.
func (fw *FileWriter) String() string {
	return fmt.Sprintf("container(%s)", fw.path)
}
