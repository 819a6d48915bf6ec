package table

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportCSV_Scenario(t *testing.T) {
	cleaned, _ := FillMissingMean(scenarioTable(t))

	art, err := Export(cleaned, FormatCSV, "data.csv")
	require.NoError(t, err)

	assert.Equal(t, "a,b\n1,3.5\n1,3\n2,4\n", string(art.Data))
	assert.Equal(t, "data.csv", art.FileName)
	assert.Equal(t, "text/csv", art.MIMEType)
	assert.Equal(t, FormatCSV, art.Format)
	assert.Equal(t, len(art.Data), art.Size())
}

func TestExportCSV_Quoting(t *testing.T) {
	tbl := mustTable(t,
		Column{Name: "note, full", Kind: KindText, Cells: txt("hello, world", `say "hi"`, "")},
		Column{Name: "n", Kind: KindNumeric, Cells: num(0.1, nan, -2)},
	)

	art, err := Export(tbl, FormatCSV, "notes.xlsx")
	require.NoError(t, err)

	want := "\"note, full\",n\n\"hello, world\",0.1\n\"say \"\"hi\"\"\",\n,-2\n"
	assert.Equal(t, want, string(art.Data))
	assert.Equal(t, "notes.csv", art.FileName)
}

func TestExport_RoundTrip(t *testing.T) {
	tables := map[string]*Table{
		"mixed": mustTable(t,
			Column{Name: "city", Kind: KindText, Cells: txt("Oslo", "", "Tromsø", "Bergen, west")},
			Column{Name: "pop", Kind: KindNumeric, Cells: num(709000, 286000, nan, 1.25)},
			Column{Name: "ratio", Kind: KindNumeric, Cells: num(nan, 0.5, -3, 1e-7)},
		),
		"single column with missing cell": mustTable(t,
			Column{Name: "a", Kind: KindNumeric, Cells: num(1, nan, 3)},
		),
		"single text column ending missing": mustTable(t,
			Column{Name: "note", Kind: KindText, Cells: txt("x", "y", "")},
		),
		"last row entirely missing": mustTable(t,
			Column{Name: "a", Kind: KindNumeric, Cells: num(1, nan)},
			Column{Name: "b", Kind: KindText, Cells: txt("x", "")},
		),
		"missing rows in the middle and at the end": mustTable(t,
			Column{Name: "a", Kind: KindNumeric, Cells: num(nan, 2, nan, nan)},
			Column{Name: "b", Kind: KindNumeric, Cells: num(nan, 5, nan, nan)},
		),
	}

	for name, tbl := range tables {
		for _, target := range Targets() {
			t.Run(name+"/"+target.String(), func(t *testing.T) {
				art, err := Export(tbl, target, "data.csv")
				require.NoError(t, err)

				back, err := Load(art.Data, target)
				require.NoError(t, err)
				assert.Equal(t, tbl.NumRows(), back.NumRows())
				assert.True(t, back.Equal(tbl), "round trip changed the table: %v", back.Head(-1))
			})
		}
	}
}

func TestExportCSV_SingleEmptyFieldIsQuoted(t *testing.T) {
	tbl, err := Load([]byte("a\n1\n\"\"\n3\n"), FormatCSV)
	require.NoError(t, err)
	require.Equal(t, 3, tbl.NumRows())

	art, err := Export(tbl, FormatCSV, "data.csv")
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n\"\"\n3\n", string(art.Data))
}

func TestExportXLSX_Metadata(t *testing.T) {
	art, err := Export(scenarioTable(t), FormatXLSX, "data.csv")
	require.NoError(t, err)

	assert.Equal(t, "data.xlsx", art.FileName)
	assert.Equal(t, MIMETypeXLSX, art.MIMEType)

	f, err := excelize.OpenReader(art.Reader())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"a", "b"}, rows[0])
}

func TestArtifact_ReaderStartsAtBeginning(t *testing.T) {
	art, err := Export(scenarioTable(t), FormatCSV, "x.csv")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := io.ReadAll(art.Reader())
		require.NoError(t, err)
		assert.Equal(t, art.Data, got)
	}
}

func TestExport_EmptyTables(t *testing.T) {
	t.Run("no columns", func(t *testing.T) {
		art, err := Export(Empty(0), FormatCSV, "empty.csv")
		require.NoError(t, err)
		assert.Empty(t, art.Data)

		art, err = Export(Empty(0), FormatXLSX, "empty.csv")
		require.NoError(t, err)
		back, err := Load(art.Data, FormatXLSX)
		require.NoError(t, err)
		assert.Equal(t, 0, back.NumCols())
	})

	t.Run("header only", func(t *testing.T) {
		tbl := mustTable(t,
			Column{Name: "a", Kind: KindNumeric, Cells: num()},
			Column{Name: "b", Kind: KindText, Cells: txt()},
		)
		art, err := Export(tbl, FormatCSV, "h.csv")
		require.NoError(t, err)
		assert.Equal(t, "a,b\n", string(art.Data))
	})
}

func TestExport_Errors(t *testing.T) {
	inf := mustTable(t, Column{Name: "v", Kind: KindNumeric, Cells: num(1, math.Inf(1))})
	long := mustTable(t, Column{Name: "s", Kind: KindText, Cells: txt(strings.Repeat("x", excelize.TotalCellChars+1))})

	tests := []struct {
		name   string
		table  *Table
		target Format
		cause  error
	}{
		{name: "unknown target", table: scenarioTable(t), target: FormatUnsupported, cause: ErrUnsupportedTarget},
		{name: "infinity to csv", table: inf, target: FormatCSV, cause: ErrNotRepresentable},
		{name: "infinity to xlsx", table: inf, target: FormatXLSX, cause: ErrNotRepresentable},
		{name: "oversized cell to xlsx", table: long, target: FormatXLSX, cause: ErrNotRepresentable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art, err := Export(tt.table, tt.target, "out.csv")
			assert.Nil(t, art)

			var se *SerializationError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.target, se.Format)
			assert.ErrorIs(t, err, tt.cause)
			assert.Contains(t, err.Error(), "export to")
		})
	}

	t.Run("oversized cell is fine as csv", func(t *testing.T) {
		_, err := Export(long, FormatCSV, "out.xlsx")
		assert.NoError(t, err)
	})
}

func TestDeriveFileName(t *testing.T) {
	tests := []struct {
		name   string
		target Format
		want   string
	}{
		{"data.csv", FormatXLSX, "data.xlsx"},
		{"data.xlsx", FormatCSV, "data.csv"},
		{"data.csv", FormatCSV, "data.csv"},
		{"q1.final.CSV", FormatXLSX, "q1.final.xlsx"},
		{"README", FormatCSV, "README.csv"},
		{".csv", FormatXLSX, "export.xlsx"},
		{"", FormatCSV, "export.csv"},
	}

	for _, tt := range tests {
		if got := DeriveFileName(tt.name, tt.target); got != tt.want {
			t.Errorf("DeriveFileName(%q, %v) = %q, want %q", tt.name, tt.target, got, tt.want)
		}
	}
}
