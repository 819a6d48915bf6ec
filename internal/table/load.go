package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Load parses raw file content in the given format into a table. On failure
// it returns a *ParseError (or ErrUnsupportedFormat) and no table.
func Load(data []byte, f Format) (*Table, error) {
	switch f {
	case FormatCSV:
		return loadCSV(data)
	case FormatXLSX:
		return loadXLSX(data)
	default:
		return nil, fmt.Errorf("%w: cannot load %s content", ErrUnsupportedFormat, f)
	}
}

// LoadNamed detects the format from name and loads data.
func LoadNamed(name string, data []byte) (*Table, Format, error) {
	f, err := DetectFormat(name)
	if err != nil {
		return nil, f, err
	}
	t, err := Load(data, f)
	if err != nil {
		return nil, f, err
	}
	return t, f, nil
}

func loadCSV(data []byte) (*Table, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, parseErr(FormatCSV, err)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1

	var header []string
	var rows [][]string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseErr(FormatCSV, err)
		}

		if header == nil {
			header = record
			continue
		}
		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, parseErr(FormatCSV, fmt.Errorf("line %d has %d fields, expected %d", line, len(record), len(header)))
		}
		rows = append(rows, record)
	}

	if header == nil {
		return nil, parseErr(FormatCSV, fmt.Errorf("%w: no columns to parse", ErrEmptyFile))
	}

	return buildTable(normalizeHeader(header, len(header)), rows), nil
}

func loadXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, parseErr(FormatXLSX, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseErr(FormatXLSX, errors.New("workbook has no sheets"))
	}

	rows, err := sheetRows(f, sheets[0])
	if err != nil {
		return nil, parseErr(FormatXLSX, fmt.Errorf("read sheet %q: %w", sheets[0], err))
	}
	if len(rows) == 0 {
		return Empty(0), nil
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	return buildTable(normalizeHeader(rows[0], width), rows[1:]), nil
}

// sheetRows reads every row element of the sheet as raw cell values. Unlike
// GetRows it keeps trailing rows without values, so a table whose last rows
// are entirely missing survives export and reload.
func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	it, err := f.Rows(sheet)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows [][]string
	for it.Next() {
		cols, err := it.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
		rows = append(rows, cols)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return rows, nil
}
