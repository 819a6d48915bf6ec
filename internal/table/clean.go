package table

import (
	"fmt"
	"strconv"
	"strings"
)

// DropDuplicates returns a copy of t without rows that repeat an earlier row
// across all columns, and the number of rows removed. The first occurrence
// is kept and row order is preserved.
func DropDuplicates(t *Table) (*Table, int) {
	out := t.Clone()
	removed := out.DropDuplicatesInPlace()
	return out, removed
}

// DropDuplicatesInPlace removes repeated rows from t and returns how many
// were removed.
func (t *Table) DropDuplicatesInPlace() int {
	if t.rows == 0 {
		return 0
	}

	seen := make(map[string]struct{}, t.rows)
	keep := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		key := t.rowKey(i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	removed := t.rows - len(keep)
	if removed == 0 {
		return 0
	}

	for j := range t.columns {
		cells := t.columns[j].Cells
		for n, i := range keep {
			cells[n] = cells[i]
		}
		t.columns[j].Cells = cells[:len(keep)]
	}
	t.rows = len(keep)
	return removed
}

// rowKey encodes row i so that rows with equal values get equal keys.
// Missing cells compare equal to each other and -0 equals 0.
func (t *Table) rowKey(i int) string {
	var b strings.Builder
	for _, c := range t.columns {
		cell := c.Cells[i]
		switch {
		case !cell.Valid:
			b.WriteString("\x00")
		case c.Kind == KindNumeric:
			f := cell.Float
			if f == 0 {
				f = 0
			}
			b.WriteString("n")
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		default:
			b.WriteString("s")
			b.WriteString(strconv.Quote(cell.String))
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

// FillMissingMean returns a copy of t where every missing cell of a numeric
// column holds the mean of that column's present values, and the number of
// cells filled. Text columns and entirely missing columns are unchanged.
func FillMissingMean(t *Table) (*Table, int) {
	out := t.Clone()
	filled := out.FillMissingMeanInPlace()
	return out, filled
}

// FillMissingMeanInPlace fills numeric missing cells of t with the column
// mean computed from the values present at call time.
func (t *Table) FillMissingMeanInPlace() int {
	filled := 0
	for j := range t.columns {
		c := &t.columns[j]
		if c.Kind != KindNumeric {
			continue
		}

		sum, n := 0.0, 0
		for _, cell := range c.Cells {
			if cell.Valid {
				sum += cell.Float
				n++
			}
		}
		if n == 0 || n == len(c.Cells) {
			continue
		}

		mean := Number(sum / float64(n))
		for i, cell := range c.Cells {
			if !cell.Valid {
				c.Cells[i] = mean
				filled++
			}
		}
	}
	return filled
}

// SelectColumns returns a table narrowed to the named columns in the given
// order. Repeated names keep their first position. Selecting no columns
// yields a table with no columns and the same row count. The result shares
// cell storage with t.
func SelectColumns(t *Table, names []string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	picked := make(map[string]bool, len(names))
	for _, name := range names {
		if picked[name] {
			continue
		}
		i := t.index(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		picked[name] = true
		cols = append(cols, t.columns[i])
	}
	return &Table{columns: cols, rows: t.rows}, nil
}
