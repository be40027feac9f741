package container

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"strings"
)

// Magic opens every container file.
const Magic = "NDSKLC\x00\x01"

// Version is the format version written after the magic.
const Version uint16 = 1

// File layout, all integers little-endian:
//
//	magic    [8]byte
//	version  uint16
//	flags    uint16 (reserved, zero)
//	records  ...
//	end      kind=0xFF, count uint64
//
// Each record is
//
//	kind     uint8
//	codec    uint8
//	dtype    uint8
//	rank     uint8
//	group    uint16 length + bytes
//	name     uint16 length + bytes
//	shape    rank × uint64
//	rawLen   uint64
//	dataLen  uint64
//	data     dataLen bytes
//	crc      uint32, CRC-32 (IEEE) of the raw payload

type recordKind uint8

const (
	kindGroup   recordKind = 1
	kindAttr    recordKind = 2
	kindDataset recordKind = 3
	kindEnd     recordKind = 0xFF
)

func (k recordKind) String() string {
	switch k {
	case kindGroup:
		return "group"
	case kindAttr:
		return "attribute"
	case kindDataset:
		return "dataset"
	case kindEnd:
		return "end"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type codec uint8

const (
	codecNone codec = 0
	codecZstd codec = 1
)

const (
	headerSize = len(Magic) + 4
	maxName    = math.MaxUint16
	maxRank    = math.MaxUint8
)

var crcTable = crc32.MakeTable(crc32.IEEE)

func checksum(b []byte) uint32 { return crc32.Checksum(b, crcTable) }

// validName rejects names that cannot be stored or that would be ambiguous.
func validName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty name")
	case len(name) > maxName:
		return fmt.Errorf("name longer than %d bytes", maxName)
	case strings.ContainsRune(name, '/'):
		return fmt.Errorf("name %q contains '/'", name)
	}
	return nil
}

// encodePayload serializes the elements of a in little-endian order.
// Strings are written as uint32 length + bytes.
func encodePayload(a Array) []byte {
	le := binary.LittleEndian
	switch a.dtype {
	case Int32:
		b := make([]byte, 0, 4*len(a.i32))
		for _, v := range a.i32 {
			b = le.AppendUint32(b, uint32(v))
		}
		return b
	case Int64:
		b := make([]byte, 0, 8*len(a.i64))
		for _, v := range a.i64 {
			b = le.AppendUint64(b, uint64(v))
		}
		return b
	case Float32:
		b := make([]byte, 0, 4*len(a.f32))
		for _, v := range a.f32 {
			b = le.AppendUint32(b, math.Float32bits(v))
		}
		return b
	case Float64:
		b := make([]byte, 0, 8*len(a.f64))
		for _, v := range a.f64 {
			b = le.AppendUint64(b, math.Float64bits(v))
		}
		return b
	case String:
		var b []byte
		for _, s := range a.str {
			b = le.AppendUint32(b, uint32(len(s)))
			b = append(b, s...)
		}
		return b
	default:
		return nil
	}
}

// decodePayload is the inverse of encodePayload.
func decodePayload(dtype DType, shape []int, raw []byte) (Array, error) {
	if !dtype.valid() {
		return Array{}, fmt.Errorf("unknown element type %d", uint8(dtype))
	}
	n := 1
	for _, d := range shape {
		if d < 0 || (d > 0 && n > len(raw)/d) {
			return Array{}, fmt.Errorf("shape %v does not fit a %d byte payload", shape, len(raw))
		}
		n *= d
	}
	le := binary.LittleEndian
	a := Array{dtype: dtype, shape: shape}

	if size := dtype.Size(); size > 0 {
		if len(raw) != n*size {
			return Array{}, fmt.Errorf("%s payload of %d bytes for %d elements", dtype, len(raw), n)
		}
	} else if n > len(raw)/4 {
		return Array{}, fmt.Errorf("%d strings do not fit a %d byte payload", n, len(raw))
	}

	switch dtype {
	case Int32:
		a.i32 = make([]int32, n)
		for i := range a.i32 {
			a.i32[i] = int32(le.Uint32(raw[4*i:]))
		}
	case Int64:
		a.i64 = make([]int64, n)
		for i := range a.i64 {
			a.i64[i] = int64(le.Uint64(raw[8*i:]))
		}
	case Float32:
		a.f32 = make([]float32, n)
		for i := range a.f32 {
			a.f32[i] = math.Float32frombits(le.Uint32(raw[4*i:]))
		}
	case Float64:
		a.f64 = make([]float64, n)
		for i := range a.f64 {
			a.f64[i] = math.Float64frombits(le.Uint64(raw[8*i:]))
		}
	case String:
		a.str = make([]string, 0, n)
		for len(a.str) < n {
			if len(raw) < 4 {
				return Array{}, fmt.Errorf("string %d: truncated length", len(a.str))
			}
			l := int(le.Uint32(raw))
			raw = raw[4:]
			if len(raw) < l {
				return Array{}, fmt.Errorf("string %d: %d bytes declared, %d left", len(a.str), l, len(raw))
			}
			a.str = append(a.str, string(raw[:l]))
			raw = raw[l:]
		}
		if len(raw) != 0 {
			return Array{}, fmt.Errorf("%d bytes after the last string", len(raw))
		}
	}
	return a, nil
}
