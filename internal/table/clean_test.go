package table

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, cols ...Column) *Table {
	t.Helper()
	tbl, err := New(cols...)
	require.NoError(t, err)
	return tbl
}

func num(vals ...float64) []Cell {
	cells := make([]Cell, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			cells[i] = Missing()
			continue
		}
		cells[i] = Number(v)
	}
	return cells
}

func txt(vals ...string) []Cell {
	cells := make([]Cell, len(vals))
	for i, v := range vals {
		if v == "" {
			cells[i] = Missing()
			continue
		}
		cells[i] = Text(v)
	}
	return cells
}

var nan = math.NaN()

// scenarioTable is the a,b table from "a,b\n1,\n1,3\n2,4\n".
func scenarioTable(t *testing.T) *Table {
	return mustTable(t,
		Column{Name: "a", Kind: KindNumeric, Cells: num(1, 1, 2)},
		Column{Name: "b", Kind: KindNumeric, Cells: num(nan, 3, 4)},
	)
}

func TestNew_RejectsRaggedColumns(t *testing.T) {
	_, err := New(
		Column{Name: "a", Kind: KindNumeric, Cells: num(1, 2)},
		Column{Name: "b", Kind: KindNumeric, Cells: num(1)},
	)
	assert.Error(t, err)
}

func TestDropDuplicates(t *testing.T) {
	tbl := mustTable(t,
		Column{Name: "k", Kind: KindText, Cells: txt("x", "y", "x", "", "", "x")},
		Column{Name: "v", Kind: KindNumeric, Cells: num(1, 2, 1, nan, nan, 2)},
	)

	out, removed := DropDuplicates(tbl)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 4, out.NumRows())
	assert.Equal(t, txt("x", "y", "", "x"), out.Columns()[0].Cells)
	assert.Equal(t, num(1, 2, nan, 2), out.Columns()[1].Cells)

	// The input is untouched.
	assert.Equal(t, 6, tbl.NumRows())
}

func TestDropDuplicates_NegativeZero(t *testing.T) {
	tbl := mustTable(t, Column{Name: "v", Kind: KindNumeric, Cells: num(0, math.Copysign(0, -1))})
	out, removed := DropDuplicates(tbl)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, out.NumRows())
}

func TestDropDuplicates_Idempotent(t *testing.T) {
	tables := map[string]*Table{
		"scenario": scenarioTable(t),
		"with dups": mustTable(t,
			Column{Name: "a", Kind: KindNumeric, Cells: num(1, 1, 1, 2)},
			Column{Name: "b", Kind: KindText, Cells: txt("p", "p", "q", "p")},
		),
		"empty": mustTable(t, Column{Name: "a", Kind: KindNumeric, Cells: num()}),
	}

	for name, tbl := range tables {
		t.Run(name, func(t *testing.T) {
			once, _ := DropDuplicates(tbl)
			twice, removed := DropDuplicates(once)
			assert.Equal(t, 0, removed)
			assert.True(t, once.Equal(twice))
		})
	}
}

func TestDropDuplicates_ScenarioHasNoDuplicates(t *testing.T) {
	tbl := scenarioTable(t)
	out, removed := DropDuplicates(tbl)
	assert.Equal(t, 0, removed)
	assert.True(t, out.Equal(tbl))
}

func TestFillMissingMean_Scenario(t *testing.T) {
	deduped, _ := DropDuplicates(scenarioTable(t))
	out, filled := FillMissingMean(deduped)

	assert.Equal(t, 1, filled)
	want := mustTable(t,
		Column{Name: "a", Kind: KindNumeric, Cells: num(1, 1, 2)},
		Column{Name: "b", Kind: KindNumeric, Cells: num(3.5, 3, 4)},
	)
	assert.True(t, out.Equal(want), "got %v", out.Head(-1))
}

func TestFillMissingMean(t *testing.T) {
	tbl := mustTable(t,
		Column{Name: "n", Kind: KindNumeric, Cells: num(2, nan, 4, nan)},
		Column{Name: "s", Kind: KindText, Cells: txt("a", "", "c", "")},
		Column{Name: "gone", Kind: KindNumeric, Cells: num(nan, nan, nan, nan)},
	)

	out, filled := FillMissingMean(tbl)
	assert.Equal(t, 2, filled)
	assert.Equal(t, tbl.NumRows(), out.NumRows())
	assert.Equal(t, tbl.NumCols(), out.NumCols())

	n, _ := out.Column("n")
	assert.Equal(t, num(2, 3, 4, 3), n.Cells)
	assert.Equal(t, 0, n.MissingCount())

	s, _ := out.Column("s")
	assert.Equal(t, 2, s.MissingCount(), "text columns are not filled")

	gone, _ := out.Column("gone")
	assert.Equal(t, 4, gone.MissingCount(), "mean of an entirely missing column is undefined")

	// The input is untouched.
	orig, _ := tbl.Column("n")
	assert.Equal(t, 2, orig.MissingCount())
}

func TestFillMissingMean_OrderMatters(t *testing.T) {
	tbl := mustTable(t,
		Column{Name: "k", Kind: KindText, Cells: txt("a", "a", "b")},
		Column{Name: "v", Kind: KindNumeric, Cells: num(10, 10, nan)},
		Column{Name: "w", Kind: KindNumeric, Cells: num(1, 1, 4)},
	)

	fillFirst, _ := FillMissingMean(tbl)
	fillFirst, _ = DropDuplicates(fillFirst)

	dedupeFirst, _ := DropDuplicates(tbl)
	dedupeFirst, _ = FillMissingMean(dedupeFirst)

	v1, _ := fillFirst.Column("v")
	v2, _ := dedupeFirst.Column("v")
	assert.Equal(t, num(10, 10), v1.Cells)
	assert.Equal(t, num(10, 10), v2.Cells)

	w := mustTable(t,
		Column{Name: "v", Kind: KindNumeric, Cells: num(1, 1, 4, nan)},
	)
	a, _ := FillMissingMean(w)
	b, _ := DropDuplicates(w)
	b, _ = FillMissingMean(b)
	av, _ := a.Column("v")
	bv, _ := b.Column("v")
	assert.Equal(t, Number(2), av.Cells[3])
	assert.Equal(t, Number(2.5), bv.Cells[2])
}

func TestFillMissingMean_EmptyTable(t *testing.T) {
	tbl := mustTable(t,
		Column{Name: "a", Kind: KindNumeric, Cells: num()},
		Column{Name: "b", Kind: KindText, Cells: txt()},
	)
	out, filled := FillMissingMean(tbl)
	assert.Equal(t, 0, filled)
	assert.Equal(t, []string{"a", "b"}, out.Names())
	assert.Equal(t, 0, out.NumRows())
}

func TestSelectColumns(t *testing.T) {
	tbl := mustTable(t,
		Column{Name: "a", Kind: KindNumeric, Cells: num(1, 2)},
		Column{Name: "b", Kind: KindText, Cells: txt("x", "y")},
		Column{Name: "c", Kind: KindNumeric, Cells: num(3, 4)},
	)

	tests := []struct {
		name    string
		columns []string
		want    []string
		wantErr error
	}{
		{name: "all columns is identity", columns: []string{"a", "b", "c"}, want: []string{"a", "b", "c"}},
		{name: "reordered subset", columns: []string{"c", "a"}, want: []string{"c", "a"}},
		{name: "repeated names collapse", columns: []string{"b", "a", "b"}, want: []string{"b", "a"}},
		{name: "no columns", columns: nil, want: []string{}},
		{name: "unknown column", columns: []string{"a", "zzz"}, wantErr: ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := SelectColumns(tbl, tt.columns)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Names())
			assert.Equal(t, tbl.NumRows(), out.NumRows(), "selection never changes row count")
		})
	}
}

func TestSelectColumns_FullSetEqualsInput(t *testing.T) {
	tbl := scenarioTable(t)
	out, err := SelectColumns(tbl, tbl.Names())
	require.NoError(t, err)
	assert.True(t, out.Equal(tbl))
}

func TestInPlaceVariants(t *testing.T) {
	tbl := mustTable(t,
		Column{Name: "v", Kind: KindNumeric, Cells: num(1, 1, nan)},
	)

	assert.Equal(t, 1, tbl.DropDuplicatesInPlace())
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, 1, tbl.FillMissingMeanInPlace())

	v, _ := tbl.Column("v")
	assert.Equal(t, num(1, 1), v.Cells)
}
