package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Artifact is a serialized table ready for download.
type Artifact struct {
	FileName string
	MIMEType string
	Format   Format
	Data     []byte
}

// Reader returns a reader positioned at the start of the content.
func (a *Artifact) Reader() io.ReadSeeker {
	return bytes.NewReader(a.Data)
}

// Size returns the content length in bytes.
func (a *Artifact) Size() int { return len(a.Data) }

// Export serializes t in the target format. originalName is the uploaded
// file name; its extension is swapped for the target's. Failures are
// returned as *SerializationError.
func Export(t *Table, target Format, originalName string) (*Artifact, error) {
	var (
		data []byte
		err  error
	)
	switch target {
	case FormatCSV:
		data, err = writeCSV(t)
	case FormatXLSX:
		data, err = writeXLSX(t)
	default:
		return nil, serializationErr(target, ErrUnsupportedTarget)
	}
	if err != nil {
		return nil, serializationErr(target, err)
	}

	return &Artifact{
		FileName: DeriveFileName(originalName, target),
		MIMEType: target.MIMEType(),
		Format:   target,
		Data:     data,
	}, nil
}

// DeriveFileName replaces the extension of name with the target's canonical
// extension.
func DeriveFileName(name string, target Format) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "export"
	}
	return base + target.Extension()
}

func writeCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if t.NumCols() == 0 {
		return buf.Bytes(), nil
	}

	w := csv.NewWriter(&buf)
	if err := w.Write(t.Names()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	record := make([]string, t.NumCols())
	for i := 0; i < t.rows; i++ {
		for j, c := range t.columns {
			cell := c.Cells[i]
			if c.Kind == KindNumeric && cell.Valid && !finite(cell.Float) {
				return nil, fmt.Errorf("%w: column %q row %d holds %v", ErrNotRepresentable, c.Name, i, cell.Float)
			}
			record[j] = cell.Format(c.Kind)
		}
		if len(record) == 1 && record[0] == "" {
			// csv.Writer emits an empty line here, which readers skip.
			w.Flush()
			buf.WriteString("\"\"\n")
			continue
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSX(t *Table) ([]byte, error) {
	if t.rows+1 > excelize.TotalRows {
		return nil, fmt.Errorf("%w: %d rows exceed the sheet limit of %d", ErrNotRepresentable, t.rows, excelize.TotalRows-1)
	}
	if t.NumCols() > excelize.MaxColumns {
		return nil, fmt.Errorf("%w: %d columns exceed the sheet limit of %d", ErrNotRepresentable, t.NumCols(), excelize.MaxColumns)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}

	if t.NumCols() > 0 {
		header := make([]interface{}, t.NumCols())
		for j, c := range t.columns {
			if err := checkCellText(c.Name); err != nil {
				return nil, fmt.Errorf("header %d: %w", j, err)
			}
			header[j] = c.Name
		}
		if err := sw.SetRow("A1", header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	values := make([]interface{}, t.NumCols())
	for i := 0; i < t.rows && t.NumCols() > 0; i++ {
		for j, c := range t.columns {
			v, err := xlsxValue(c, i)
			if err != nil {
				return nil, err
			}
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// xlsxValue converts cell i of c to a stream writer value; nil leaves the
// cell empty.
func xlsxValue(c Column, i int) (interface{}, error) {
	cell := c.Cells[i]
	if !cell.Valid {
		return nil, nil
	}
	if c.Kind == KindNumeric {
		if !finite(cell.Float) {
			return nil, fmt.Errorf("%w: column %q row %d holds %v", ErrNotRepresentable, c.Name, i, cell.Float)
		}
		return cell.Float, nil
	}
	if err := checkCellText(cell.String); err != nil {
		return nil, fmt.Errorf("column %q row %d: %w", c.Name, i, err)
	}
	return cell.String, nil
}

func checkCellText(s string) error {
	if n := utf8.RuneCountInString(s); n > excelize.TotalCellChars {
		return fmt.Errorf("%w: text of %d characters exceeds the cell limit of %d", ErrNotRepresentable, n, excelize.TotalCellChars)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
