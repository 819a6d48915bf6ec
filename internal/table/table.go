package table

import (
	"fmt"
	"strconv"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// Cell is a single table value. Valid is false for a missing entry; otherwise
// Float holds the value of numeric columns and String the value of text
// columns.
type Cell struct {
	Float  float64
	String string
	Valid  bool
}

// Missing returns the missing-entry marker.
func Missing() Cell { return Cell{} }

// Number returns a present numeric cell.
func Number(f float64) Cell { return Cell{Float: f, Valid: true} }

// Text returns a present text cell.
func Text(s string) Cell { return Cell{String: s, Valid: true} }

// Format renders the cell for display and CSV output. Missing cells render as
// the empty string.
func (c Cell) Format(k Kind) string {
	if !c.Valid {
		return ""
	}
	if k == KindNumeric {
		return formatFloat(c.Float)
	}
	return c.String
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// MissingCount returns the number of missing cells in the column.
func (c Column) MissingCount() int {
	n := 0
	for _, cell := range c.Cells {
		if !cell.Valid {
			n++
		}
	}
	return n
}

// Table is an ordered set of named columns of equal length.
type Table struct {
	columns []Column
	rows    int
}

// New builds a table from columns, checking that every column has the same
// length.
func New(columns ...Column) (*Table, error) {
	t := &Table{columns: columns}
	for i, c := range columns {
		if i == 0 {
			t.rows = len(c.Cells)
			continue
		}
		if len(c.Cells) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Cells), t.rows)
		}
	}
	return t, nil
}

// Empty returns a table with no columns and the given row count.
func Empty(rows int) *Table {
	return &Table{rows: rows}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the table's columns. Callers must not modify the cells.
func (t *Table) Columns() []Column { return t.columns }

// Column returns the column with the given name.
func (t *Table) Column(name string) (Column, bool) {
	if i := t.index(name); i >= 0 {
		return t.columns[i], true
	}
	return Column{}, false
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Row returns the cells of row i across all columns.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Cells[i]
	}
	return row
}

// Head returns the first n rows rendered as strings.
func (t *Table) Head(n int) [][]string {
	if n > t.rows || n < 0 {
		n = t.rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		rec := make([]string, len(t.columns))
		for j, c := range t.columns {
			rec[j] = c.Cells[i].Format(c.Kind)
		}
		out[i] = rec
	}
	return out
}

// MissingCount returns the number of missing cells across the table.
func (t *Table) MissingCount() int {
	n := 0
	for _, c := range t.columns {
		n += c.MissingCount()
	}
	return n
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cells := make([]Cell, len(c.Cells))
		copy(cells, c.Cells)
		cols[i] = Column{Name: c.Name, Kind: c.Kind, Cells: cells}
	}
	return &Table{columns: cols, rows: t.rows}
}

// Equal reports whether both tables have the same column names, kinds and
// cell values in the same order.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.columns) != len(o.columns) {
		return false
	}
	for i, c := range t.columns {
		oc := o.columns[i]
		if c.Name != oc.Name || c.Kind != oc.Kind {
			return false
		}
		for r := range c.Cells {
			if !sameCell(c.Kind, c.Cells[r], oc.Cells[r]) {
				return false
			}
		}
	}
	return true
}

func (t *Table) index(name string) int {
	for i, c := range t.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func sameCell(k Kind, a, b Cell) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	if k == KindNumeric {
		return a.Float == b.Float
	}
	return a.String == b.String
}

// formatFloat writes the shortest decimal form that parses back to f.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
