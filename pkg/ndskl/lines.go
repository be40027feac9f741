package ndskl

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/matzehuels/ndskl/pkg/errors"
)

// lines is a cursor over the input lines. Line numbers are 1-based.
type lines struct {
	text []string
	pos  int // index of the next unread line
}

func splitLines(data []byte, maxLine int) (*lines, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	var text []string
	for sc.Scan() {
		text = append(text, sc.Text())
	}
	if err := sc.Err(); err != nil {
		if stderrors.Is(err, bufio.ErrTooLong) {
			return nil, errors.AtLine(errors.ErrCodeMalformedRecord, len(text)+1, "line longer than %d bytes", maxLine)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "split input")
	}
	return &lines{text: text}, nil
}

// remaining returns the number of unread lines.
func (l *lines) remaining() int { return len(l.text) - l.pos }

// line returns the number of the most recently read line.
func (l *lines) line() int { return l.pos }

// raw returns the next line, trimmed, or TRUNCATED_INPUT naming what was
// expected.
func (l *lines) raw(what string) (string, error) {
	if l.pos >= len(l.text) {
		return "", errors.AtLine(errors.ErrCodeTruncatedInput, l.pos, "expected %s, reached end of input", what)
	}
	s := strings.TrimSpace(l.text[l.pos])
	l.pos++
	return s, nil
}

// next is raw for lines inside a section. Meeting a section marker there
// means the section holds fewer entries than its count declared, which is
// reported as TRUNCATED_INPUT.
func (l *lines) next(what string) (string, error) {
	s, err := l.raw(what)
	if err != nil {
		return "", err
	}
	if isMarker(s) {
		return "", errors.AtLine(errors.ErrCodeTruncatedInput, l.line(), "expected %s, found section %s", what, s)
	}
	return s, nil
}

func isMarker(s string) bool {
	switch s {
	case SectionCriticalPoints, SectionFilaments, SectionCriticalPointsData, SectionFilamentsData:
		return true
	}
	return false
}

// marker consumes a section marker line.
func (l *lines) marker(want string) error {
	got, err := l.raw(strconv.Quote(want))
	if err != nil {
		return err
	}
	if got != want {
		return errors.AtLine(errors.ErrCodeMalformedSection, l.line(), "expected %q, found %q", want, got)
	}
	return nil
}

// fields consumes a line and splits it into exactly n tokens.
func (l *lines) fields(n int, what string) ([]string, error) {
	s, err := l.next(what)
	if err != nil {
		return nil, err
	}
	toks := strings.Fields(s)
	if len(toks) != n {
		return nil, errors.AtLine(errors.ErrCodeMalformedRecord, l.line(), "%s: expected %d values, found %d", what, n, len(toks))
	}
	return toks, nil
}

// count consumes a line holding a single non-negative integer.
func (l *lines) count(what string) (int, error) {
	toks, err := l.fields(1, what)
	if err != nil {
		return 0, err
	}
	n, err := l.int(toks[0], what)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.AtLine(errors.ErrCodeMalformedNumber, l.line(), "%s: negative count %d", what, n)
	}
	return int(n), nil
}

// int parses tok as a base-10 integer belonging to the current line.
func (l *lines) int(tok, what string) (int64, error) {
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, errors.AtLine(errors.ErrCodeMalformedNumber, l.line(), "%s: expected integer, found %q", what, tok)
	}
	return v, nil
}

// float parses tok as a float belonging to the current line.
func (l *lines) float(tok, what string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, errors.AtLine(errors.ErrCodeMalformedNumber, l.line(), "%s: expected number, found %q", what, tok)
	}
	return v, nil
}

// floats parses every token of toks into dst.
func (l *lines) floats(dst []float64, toks []string, what string) error {
	for i, tok := range toks {
		v, err := l.float(tok, what)
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

// end fails with TRAILING_DATA if any non-blank line is left.
func (l *lines) end() error {
	for l.pos < len(l.text) {
		s := strings.TrimSpace(l.text[l.pos])
		l.pos++
		if s != "" {
			return errors.AtLine(errors.ErrCodeTrailingData, l.pos, "unexpected content after the last data row: %q", truncate(s, 40))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
