package ndskl

import (
	"io"
	"os"
	"strings"

	"github.com/matzehuels/ndskl/pkg/errors"
	"github.com/matzehuels/ndskl/pkg/ragged"
	"github.com/matzehuels/ndskl/pkg/skeleton"
)

// Magic is the first line of every NDskl_ascii file.
const Magic = "ANDSKEL"

// Section markers, in the order they must appear.
const (
	SectionCriticalPoints     = "[CRITICAL POINTS]"
	SectionFilaments          = "[FILAMENTS]"
	SectionCriticalPointsData = "[CRITICAL POINTS DATA]"
	SectionFilamentsData      = "[FILAMENTS DATA]"
)

// DefaultMaxLineBytes caps the length of a single input line.
const DefaultMaxLineBytes = 16 << 20

// Options configures parsing.
type Options struct {
	// References selects whether cross-references are validated after
	// the structural parse. The zero value is skeleton.Permissive.
	References skeleton.ReferencePolicy

	// MaxLineBytes caps the length of a single line. Zero means
	// DefaultMaxLineBytes.
	MaxLineBytes int
}

// ParseFile reads the file at path and parses it. The file is closed as
// soon as its contents are in memory.
func ParseFile(path string, opts Options) (*skeleton.Skeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return ParseBytes(data, opts)
}

// Parse reads r to the end and parses it. Parse does not close r.
func Parse(r io.Reader, opts Options) (*skeleton.Skeleton, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read input")
	}
	return ParseBytes(data, opts)
}

// ParseBytes parses a complete NDskl_ascii document.
func ParseBytes(data []byte, opts Options) (*skeleton.Skeleton, error) {
	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	in, err := splitLines(data, maxLine)
	if err != nil {
		return nil, err
	}

	p := &parser{in: in, sk: &skeleton.Skeleton{}}
	steps := []func() error{
		p.header,
		p.criticalPoints,
		p.filaments,
		p.criticalPointsData,
		p.filamentsData,
		p.in.end,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	if err := p.sk.ValidateReferences(opts.References); err != nil {
		return nil, err
	}
	return p.sk, nil
}

// parser builds a skeleton while consuming lines.
type parser struct {
	in *lines
	sk *skeleton.Skeleton
}

// hint bounds a declared count by the lines left, so a corrupt count does
// not trigger a huge allocation before the input runs out.
func (p *parser) hint(n int) int {
	return min(n, p.in.remaining())
}

func (p *parser) header() error {
	if p.in.remaining() == 0 {
		return errors.AtLine(errors.ErrCodeMalformedHeader, 1, "empty input, expected %q", Magic)
	}
	magic, _ := p.in.raw("magic")
	if magic != Magic {
		return errors.AtLine(errors.ErrCodeMalformedHeader, p.in.line(), "expected %q, found %q", Magic, truncate(magic, 40))
	}

	toks, err := p.in.fields(1, "dimension")
	if err != nil {
		return err
	}
	dims, err := p.in.int(toks[0], "dimension")
	if err != nil {
		return err
	}
	if dims < skeleton.MinDims || dims > skeleton.MaxDims {
		return errors.AtLine(errors.ErrCodeMalformedHeader, p.in.line(), "dimension must be 2 or 3, found %d", dims)
	}
	p.sk.Dims = int(dims)

	var bbox string
	for {
		bbox, err = p.in.raw("BBOX")
		if err != nil {
			return err
		}
		if !strings.HasPrefix(bbox, "#") {
			break
		}
	}
	return p.boundingBox(bbox)
}

var closers = map[byte]byte{'[': ']', '(': ')', '<': '>'}

// boundingBox parses "BBOX [x0,y0,z0] [x1,y1,z1]".
func (p *parser) boundingBox(s string) error {
	rest, ok := strings.CutPrefix(s, "BBOX")
	if !ok {
		return errors.AtLine(errors.ErrCodeMalformedHeader, p.in.line(), "expected BBOX, found %q", truncate(s, 40))
	}

	var corners []string
	for rest = strings.TrimSpace(rest); rest != ""; rest = strings.TrimSpace(rest) {
		closer, ok := closers[rest[0]]
		end := strings.IndexByte(rest, closer)
		if !ok || end < 0 {
			return errors.AtLine(errors.ErrCodeMalformedHeader, p.in.line(), "BBOX corners must be bracketed, found %q", truncate(rest, 40))
		}
		corners = append(corners, rest[1:end])
		rest = rest[end+1:]
	}
	if len(corners) != 2 {
		return errors.AtLine(errors.ErrCodeMalformedHeader, p.in.line(), "BBOX needs 2 corners, found %d", len(corners))
	}

	dst := []*skeleton.Point{&p.sk.BBox.Min, &p.sk.BBox.Max}
	for c, corner := range corners {
		parts := strings.Split(corner, ",")
		if len(parts) != p.sk.Dims {
			return errors.AtLine(errors.ErrCodeMalformedHeader, p.in.line(), "BBOX corner %q has %d components, want %d", corner, len(parts), p.sk.Dims)
		}
		for i, part := range parts {
			v, err := p.in.float(strings.TrimSpace(part), "BBOX")
			if err != nil {
				return err
			}
			dst[c][i] = v
		}
	}
	return nil
}

func (p *parser) criticalPoints() error {
	if err := p.in.marker(SectionCriticalPoints); err != nil {
		return err
	}
	n, err := p.in.count("number of critical points")
	if err != nil {
		return err
	}

	dims := p.sk.Dims
	h := p.hint(n)
	cp := &p.sk.Points
	cp.Type = make([]int64, 0, h)
	cp.Coords = make([]float64, 0, h*dims)
	cp.Value = make([]float64, 0, h)
	cp.PairID = make([]int64, 0, h)
	cp.Boundary = make([]int64, 0, h)
	others := ragged.NewBuilder[int64](1, h, h)
	fils := ragged.NewBuilder[int64](1, h, h)

	coord := make([]float64, dims)
	for i := 0; i < n; i++ {
		toks, err := p.in.fields(dims+4, "critical point")
		if err != nil {
			return err
		}
		typ, err := p.in.int(toks[0], "critical point type")
		if err != nil {
			return err
		}
		if err := p.in.floats(coord, toks[1:1+dims], "critical point coordinate"); err != nil {
			return err
		}
		value, err := p.in.float(toks[1+dims], "critical point value")
		if err != nil {
			return err
		}
		pair, err := p.in.int(toks[2+dims], "critical point pair")
		if err != nil {
			return err
		}
		boundary, err := p.in.int(toks[3+dims], "critical point boundary")
		if err != nil {
			return err
		}
		cp.Type = append(cp.Type, typ)
		cp.Coords = append(cp.Coords, coord...)
		cp.Value = append(cp.Value, value)
		cp.PairID = append(cp.PairID, pair)
		cp.Boundary = append(cp.Boundary, boundary)

		nconn, err := p.in.count("number of connected filaments")
		if err != nil {
			return err
		}
		others.StartRow()
		fils.StartRow()
		for k := 0; k < nconn; k++ {
			toks, err := p.in.fields(2, "connection")
			if err != nil {
				return err
			}
			other, err := p.in.int(toks[0], "connected critical point")
			if err != nil {
				return err
			}
			fil, err := p.in.int(toks[1], "connected filament")
			if err != nil {
				return err
			}
			others.Push(other)
			fils.Push(fil)
		}
	}

	cp.OtherCP = others.Build()
	cp.Filament = fils.Build()
	return nil
}

func (p *parser) filaments() error {
	if err := p.in.marker(SectionFilaments); err != nil {
		return err
	}
	n, err := p.in.count("number of filaments")
	if err != nil {
		return err
	}

	dims := p.sk.Dims
	h := p.hint(n)
	fl := &p.sk.Fils
	fl.Extremes = make([][2]int64, 0, h)
	samples := ragged.NewBuilder[float64](dims, h, p.in.remaining())

	coord := make([]float64, dims)
	for j := 0; j < n; j++ {
		toks, err := p.in.fields(3, "filament")
		if err != nil {
			return err
		}
		cp1, err := p.in.int(toks[0], "filament extremity")
		if err != nil {
			return err
		}
		cp2, err := p.in.int(toks[1], "filament extremity")
		if err != nil {
			return err
		}
		nsamples, err := p.in.int(toks[2], "number of samples")
		if err != nil {
			return err
		}
		if nsamples < 0 {
			return errors.AtLine(errors.ErrCodeMalformedNumber, p.in.line(), "number of samples: negative count %d", nsamples)
		}
		fl.Extremes = append(fl.Extremes, [2]int64{cp1, cp2})

		samples.StartRow()
		for k := int64(0); k < nsamples; k++ {
			toks, err := p.in.fields(dims, "sample point")
			if err != nil {
				return err
			}
			if err := p.in.floats(coord, toks, "sample coordinate"); err != nil {
				return err
			}
			samples.Push(coord...)
		}
	}

	fl.Samples = samples.Build()
	return nil
}

// fieldNames reads a field count followed by that many name lines.
func (p *parser) fieldNames() ([]string, error) {
	n, err := p.in.count("number of fields")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, p.hint(n))
	for i := 0; i < n; i++ {
		name, err := p.in.next("field name")
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, errors.AtLine(errors.ErrCodeMalformedRecord, p.in.line(), "empty field name")
		}
		names = append(names, name)
	}
	return names, nil
}

// fieldRows reads rows data rows into t.
func (p *parser) fieldRows(t *skeleton.FieldTable, rows int) error {
	row := make([]float64, t.NumFields())
	for r := 0; r < rows; r++ {
		s, err := p.in.next("field values")
		if err != nil {
			return err
		}
		toks := strings.Fields(s)
		if len(toks) != len(row) {
			return errors.AtLine(errors.ErrCodeFieldCount, p.in.line(), "expected %d field values, found %d", len(row), len(toks))
		}
		if err := p.in.floats(row, toks, "field value"); err != nil {
			return err
		}
		if err := t.Append(row); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) criticalPointsData() error {
	if err := p.in.marker(SectionCriticalPointsData); err != nil {
		return err
	}
	names, err := p.fieldNames()
	if err != nil {
		return err
	}
	ncp := p.sk.NumCriticalPoints()
	p.sk.CriticalFields = skeleton.NewFieldTable(names, p.hint(ncp))
	return p.fieldRows(p.sk.CriticalFields, ncp)
}

func (p *parser) filamentsData() error {
	if err := p.in.marker(SectionFilamentsData); err != nil {
		return err
	}
	names, err := p.fieldNames()
	if err != nil {
		return err
	}
	total := int(p.sk.NumSamples())
	p.sk.FilamentFields = skeleton.NewFieldTable(names, p.hint(total))
	// Samples are stored filament by filament, so reading all rows in one
	// pass keeps them aligned with Fils.Samples.
	return p.fieldRows(p.sk.FilamentFields, total)
}
