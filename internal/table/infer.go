package table

// infer.go turns raw string records into typed columns.
//
// Both loaders hand over a header row and data rows of strings. Cells that
// match a missing-value token become missing; a column whose present cells
// all look like decimal numbers becomes numeric, anything else stays text.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// naTokens are the cell values read as missing entries. Matching is exact.
var naTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsMissingToken reports whether a raw value is read as a missing entry.
func IsMissingToken(s string) bool {
	return naTokens[s]
}

// parseNumber parses a raw value as a decimal number. Surrounding spaces are
// ignored; infinities, NaN and hex forms are not numbers here.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// normalizeHeader fills blank names and disambiguates repeated ones.
func normalizeHeader(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = header[i]
		}
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		names[i] = name
	}
	return names
}

// buildTable converts a header and string rows into a typed table. Rows
// shorter than the header are padded with missing cells; callers reject or
// widen for longer rows before calling.
func buildTable(header []string, rows [][]string) *Table {
	width := len(header)
	cols := make([]Column, width)
	for j, name := range header {
		cols[j] = Column{Name: name, Cells: make([]Cell, len(rows))}
	}

	for j := range cols {
		numeric := true
		for i, row := range rows {
			if j >= len(row) || IsMissingToken(row[j]) {
				cols[j].Cells[i] = Missing()
				continue
			}
			if numeric {
				if f, ok := parseNumber(row[j]); ok {
					cols[j].Cells[i] = Number(f)
					continue
				}
				numeric = false
			}
		}

		if numeric {
			cols[j].Kind = KindNumeric
			continue
		}

		// Second pass keeps the raw text for every present cell.
		cols[j].Kind = KindText
		for i, row := range rows {
			if j >= len(row) || IsMissingToken(row[j]) {
				continue
			}
			cols[j].Cells[i] = Text(row[j])
		}
	}

	return &Table{columns: cols, rows: len(rows)}
}
