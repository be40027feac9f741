package skeleton

import (
	"github.com/matzehuels/ndskl/pkg/errors"
)

// FieldTable is a schema-described table of scalar fields: an ordered list
// of names discovered once from a section header and a row-major value
// array. Every row has exactly len(Names) values.
type FieldTable struct {
	Names  []string
	Values []float64
	rows   int
}

// NewFieldTable creates an empty table with the given column names.
// rowsHint is a capacity hint for the expected number of rows.
func NewFieldTable(names []string, rowsHint int) *FieldTable {
	return &FieldTable{
		Names:  names,
		Values: make([]float64, 0, rowsHint*len(names)),
	}
}

// NumFields returns the number of columns.
func (t *FieldTable) NumFields() int { return len(t.Names) }

// NumRows returns the number of rows appended so far.
func (t *FieldTable) NumRows() int { return t.rows }

// Append adds one row. It fails with FIELD_COUNT_MISMATCH if the row length
// differs from the number of declared names.
func (t *FieldTable) Append(row []float64) error {
	if len(row) != len(t.Names) {
		return errors.New(errors.ErrCodeFieldCount, "row has %d values, %d fields declared", len(row), len(t.Names))
	}
	t.Values = append(t.Values, row...)
	t.rows++
	return nil
}

// Row returns row i. The returned slice aliases the table.
func (t *FieldTable) Row(i int) []float64 {
	n := len(t.Names)
	return t.Values[i*n : (i+1)*n : (i+1)*n]
}

// Index returns the column position of name, or -1.
func (t *FieldTable) Index(name string) int {
	for i, n := range t.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column, or false if it is unknown.
func (t *FieldTable) Column(name string) ([]float64, bool) {
	c := t.Index(name)
	if c < 0 {
		return nil, false
	}
	n := len(t.Names)
	out := make([]float64, t.rows)
	for r := range out {
		out[r] = t.Values[r*n+c]
	}
	return out, true
}

// Clone returns a deep copy of the table.
func (t *FieldTable) Clone() *FieldTable {
	return &FieldTable{
		Names:  append([]string(nil), t.Names...),
		Values: append([]float64(nil), t.Values...),
		rows:   t.rows,
	}
}

// SetRows restores a table from already row-major values, as read back from
// a container. It fails if values does not hold rows complete rows.
func (t *FieldTable) SetRows(values []float64, rows int) error {
	if len(values) != rows*len(t.Names) {
		return errors.New(errors.ErrCodeFieldCount, "%d values for %d rows of %d fields", len(values), rows, len(t.Names))
	}
	t.Values = values
	t.rows = rows
	return nil
}
