package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/ndskl/pkg/errors"
)

// Entry is a named attribute or dataset.
type Entry struct {
	Name  string
	Value Array
}

// Node is one group of a container, with its attributes and datasets in
// the order they were written.
type Node struct {
	Name     string
	Attrs    []Entry
	Datasets []Entry
}

// Attr returns the named attribute.
func (n *Node) Attr(name string) (Array, error) {
	for _, e := range n.Attrs {
		if e.Name == name {
			return e.Value, nil
		}
	}
	return Array{}, errors.New(errors.ErrCodeReadFailure, "group %s has no attribute %q", n.Name, name)
}

// Dataset returns the named dataset.
func (n *Node) Dataset(name string) (Array, error) {
	for _, e := range n.Datasets {
		if e.Name == name {
			return e.Value, nil
		}
	}
	return Array{}, errors.New(errors.ErrCodeReadFailure, "group %s has no dataset %q", n.Name, name)
}

// File is the decoded content of a container.
type File struct {
	Version uint16
	Groups  []*Node
}

// Group returns the named group.
func (f *File) Group(name string) (*Node, error) {
	for _, g := range f.Groups {
		if g.Name == name {
			return g, nil
		}
	}
	return nil, errors.New(errors.ErrCodeReadFailure, "no group %q", name)
}

// GroupNames returns the group names in file order.
func (f *File) GroupNames() []string {
	names := make([]string, len(f.Groups))
	for i, g := range f.Groups {
		names[i] = g.Name
	}
	return names
}

// Open reads and decodes the container at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReadFailure, err, "read %s", path)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Read reads r to the end and decodes it.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReadFailure, err, "read container")
	}
	return Decode(data)
}

// Decode parses a complete container image. Every payload checksum is
// verified and the end record must match the number of records read.
func Decode(data []byte) (*File, error) {
	if strings.HasPrefix(string(data[:min(len(data), len(HDF5Signature))]), HDF5Signature) {
		return nil, errors.New(errors.ErrCodeReadFailure, "HDF5 file, not a native container (open it with h5py or h5dump)")
	}
	if len(data) < headerSize || string(data[:len(Magic)]) != Magic {
		return nil, errors.New(errors.ErrCodeReadFailure, "not an ndskl container")
	}
	d := &decoder{buf: data[len(Magic):]}
	version := d.u16()
	d.u16() // flags
	if version != Version {
		return nil, errors.New(errors.ErrCodeReadFailure, "unsupported container version %d", version)
	}

	f := &File{Version: version}
	groups := map[string]*Node{}
	var dec *zstd.Decoder
	defer func() {
		if dec != nil {
			dec.Close()
		}
	}()

	var count uint64
	for {
		if d.err != nil {
			return nil, d.fail()
		}
		if len(d.buf) == 0 {
			return nil, errors.New(errors.ErrCodeReadFailure, "missing end record after %d records", count)
		}

		kind := recordKind(d.u8())
		if kind == kindEnd {
			want := d.u64()
			if d.err != nil {
				return nil, d.fail()
			}
			if want != count {
				return nil, errors.New(errors.ErrCodeReadFailure, "end record lists %d records, read %d", want, count)
			}
			if len(d.buf) != 0 {
				return nil, errors.New(errors.ErrCodeReadFailure, "%d bytes after end record", len(d.buf))
			}
			return f, nil
		}

		c := codec(d.u8())
		dtype := DType(d.u8())
		rank := int(d.u8())
		group := d.str()
		name := d.str()
		shape := make([]int, rank)
		for i := range shape {
			shape[i] = d.dim()
		}
		rawLen := d.u64()
		stored := d.bytes(d.u64())
		sum := d.u32()
		if d.err != nil {
			return nil, d.fail()
		}

		raw := stored
		switch c {
		case codecNone:
		case codecZstd:
			if dec == nil {
				var err error
				if dec, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(math.MaxInt32)); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInternal, err, "create zstd decoder")
				}
			}
			if rawLen > uint64(math.MaxInt32) {
				return nil, errors.New(errors.ErrCodeReadFailure, "%s %s/%s: payload too large", kind, group, name)
			}
			var err error
			if raw, err = dec.DecodeAll(stored, make([]byte, 0, decodeCap(rawLen, len(stored)))); err != nil {
				return nil, errors.Wrap(errors.ErrCodeReadFailure, err, "%s %s/%s: decompress", kind, group, name)
			}
		default:
			return nil, errors.New(errors.ErrCodeReadFailure, "%s %s/%s: unknown codec %d", kind, group, name, uint8(c))
		}
		if uint64(len(raw)) != rawLen {
			return nil, errors.New(errors.ErrCodeReadFailure, "%s %s/%s: payload is %d bytes, header says %d", kind, group, name, len(raw), rawLen)
		}
		if got := checksum(raw); got != sum {
			return nil, errors.New(errors.ErrCodeReadFailure, "%s %s/%s: checksum mismatch (%08x != %08x)", kind, group, name, got, sum)
		}

		switch kind {
		case kindGroup:
			if _, ok := groups[name]; ok {
				return nil, errors.New(errors.ErrCodeReadFailure, "duplicate group %q", name)
			}
			n := &Node{Name: name}
			groups[name] = n
			f.Groups = append(f.Groups, n)
		case kindAttr, kindDataset:
			n, ok := groups[group]
			if !ok {
				return nil, errors.New(errors.ErrCodeReadFailure, "%s %s/%s: unknown group", kind, group, name)
			}
			a, err := decodePayload(dtype, shape, raw)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeReadFailure, err, "%s %s/%s", kind, group, name)
			}
			e := Entry{Name: name, Value: a}
			if kind == kindAttr {
				n.Attrs = append(n.Attrs, e)
			} else {
				n.Datasets = append(n.Datasets, e)
			}
		default:
			return nil, errors.New(errors.ErrCodeReadFailure, "unknown record kind %d", uint8(kind))
		}
		count++
	}
}

// decoder consumes little-endian values from buf. The first short read sets
// err and makes every later call return zero values.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) take(n uint64) []byte {
	if d.err != nil {
		return nil
	}
	if uint64(len(d.buf)) < n {
		d.err = io.ErrUnexpectedEOF
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) str() string {
	return string(d.take(uint64(d.u16())))
}

func (d *decoder) bytes(n uint64) []byte {
	return d.take(n)
}

// dim reads one shape dimension. Dimensions larger than the remaining
// input cannot describe real data.
func (d *decoder) dim() int {
	v := d.u64()
	if d.err == nil && v > uint64(len(d.buf)) && v > math.MaxInt32 {
		d.err = fmt.Errorf("dimension %d out of range", v)
	}
	return int(v)
}

func (d *decoder) fail() error {
	if d.err == io.ErrUnexpectedEOF {
		return errors.New(errors.ErrCodeReadFailure, "truncated container")
	}
	return errors.Wrap(errors.ErrCodeReadFailure, d.err, "decode")
}

// maxExpansion bounds the buffer preallocated for a compressed payload
// relative to its stored size. The declared raw length is untrusted;
// DecodeAll grows the buffer when a payload really expands further.
const maxExpansion = 16

func decodeCap(rawLen uint64, stored int) int {
	limit := uint64(stored)*maxExpansion + 64
	return int(min(rawLen, limit))
}
