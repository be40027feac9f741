package tabular

import (
	"fmt"

	"github.com/matzehuels/ndskl/pkg/skeleton"
)

// Table names produced by [Tables].
const (
	CriticalPoints = "critical_points"
	Connections    = "connections"
	Filaments      = "filaments"
	Samples        = "samples"
)

// Kind is the storage class of a column.
type Kind int

const (
	Integer Kind = iota
	Real
)

// Column describes one table column.
type Column struct {
	Name string
	Kind Kind
}

// Table is a row-oriented view. Integer cells hold int64 and real cells
// hold float64.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

var axes = [...]string{"x", "y", "z"}

// Tables returns the critical point, connection, filament and sample views
// of sk, in that order.
func Tables(sk *skeleton.Skeleton) []*Table {
	return []*Table{
		criticalPoints(sk),
		connections(sk),
		filaments(sk),
		samples(sk),
	}
}

// Find returns the table with the given name, or nil.
func Find(tables []*Table, name string) *Table {
	for _, t := range tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func criticalPoints(sk *skeleton.Skeleton) *Table {
	t := &Table{Name: CriticalPoints}
	cols := newColumns(&t.Columns)
	cols.add("id", Integer)
	cols.add("type", Integer)
	for _, a := range axes[:sk.Dims] {
		cols.add(a, Real)
	}
	cols.add("value", Real)
	cols.add("pair", Integer)
	cols.add("boundary", Integer)
	cols.add("connections", Integer)
	fields := fieldNames(sk.CriticalFields)
	for _, f := range fields {
		cols.add(f, Real)
	}

	cp := sk.Points
	t.Rows = make([][]any, sk.NumCriticalPoints())
	for i := range t.Rows {
		row := make([]any, 0, len(t.Columns))
		row = append(row, int64(i), cp.Type[i])
		for _, v := range cp.Coords[i*sk.Dims : (i+1)*sk.Dims] {
			row = append(row, v)
		}
		row = append(row, cp.Value[i], cp.PairID[i], cp.Boundary[i], cp.Filament.Counts[i])
		if len(fields) > 0 {
			for _, v := range sk.CriticalFields.Row(i) {
				row = append(row, v)
			}
		}
		t.Rows[i] = row
	}
	return t
}

func connections(sk *skeleton.Skeleton) *Table {
	t := &Table{
		Name: Connections,
		Columns: []Column{
			{"cp", Integer},
			{"position", Integer},
			{"other_cp", Integer},
			{"filament", Integer},
		},
	}
	t.Rows = make([][]any, 0, sk.NumConnections())
	for i := 0; i < sk.NumCriticalPoints(); i++ {
		for k, c := range sk.Connections(i) {
			t.Rows = append(t.Rows, []any{int64(i), int64(k), c.OtherCP, c.Filament})
		}
	}
	return t
}

func filaments(sk *skeleton.Skeleton) *Table {
	t := &Table{
		Name: Filaments,
		Columns: []Column{
			{"id", Integer},
			{"cp1", Integer},
			{"cp2", Integer},
			{"samples", Integer},
			{"offset", Integer},
		},
	}
	s := sk.Fils.Samples
	t.Rows = make([][]any, sk.NumFilaments())
	for j, e := range sk.Fils.Extremes {
		t.Rows[j] = []any{int64(j), e[0], e[1], s.Counts[j], s.Offsets[j]}
	}
	return t
}

func samples(sk *skeleton.Skeleton) *Table {
	t := &Table{Name: Samples}
	cols := newColumns(&t.Columns)
	cols.add("filament", Integer)
	cols.add("position", Integer)
	for _, a := range axes[:sk.Dims] {
		cols.add(a, Real)
	}
	fields := fieldNames(sk.FilamentFields)
	for _, f := range fields {
		cols.add(f, Real)
	}

	t.Rows = make([][]any, 0, sk.NumSamples())
	s := sk.Fils.Samples
	for j := 0; j < s.Len(); j++ {
		for k := 0; k < int(s.Counts[j]); k++ {
			row := make([]any, 0, len(t.Columns))
			row = append(row, int64(j), int64(k))
			for _, v := range s.Item(j, k) {
				row = append(row, v)
			}
			if len(fields) > 0 {
				for _, v := range sk.SampleFields(j, k) {
					row = append(row, v)
				}
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

func fieldNames(t *skeleton.FieldTable) []string {
	if t == nil {
		return nil
	}
	return t.Names
}

// columns appends columns while keeping names unique; a repeated name gets
// a numeric suffix.
type columns struct {
	dst  *[]Column
	seen map[string]bool
}

func newColumns(dst *[]Column) *columns {
	return &columns{dst: dst, seen: map[string]bool{}}
}

func (c *columns) add(name string, kind Kind) {
	unique := name
	for n := 2; c.seen[unique]; n++ {
		unique = fmt.Sprintf("%s_%d", name, n)
	}
	c.seen[unique] = true
	*c.dst = append(*c.dst, Column{Name: unique, Kind: kind})
}
