package table

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a tabular file encoding.
type Format int

const (
	FormatUnsupported Format = iota
	FormatCSV
	FormatXLSX
)

// MIME types handed to the download mechanism.
const (
	MIMETypeCSV  = "text/csv"
	MIMETypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// String returns the short name used in logs, metrics and forms.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unsupported"
	}
}

// Label returns the name shown to users.
func (f Format) Label() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatXLSX:
		return "Excel"
	default:
		return "Unsupported"
	}
}

// Extension returns the canonical file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatXLSX:
		return ".xlsx"
	default:
		return ""
	}
}

// MIMEType returns the content type for downloads.
func (f Format) MIMEType() string {
	switch f {
	case FormatCSV:
		return MIMETypeCSV
	case FormatXLSX:
		return MIMETypeXLSX
	default:
		return "application/octet-stream"
	}
}

// DetectFormat derives the format from the lowercase extension of name.
// Anything other than .csv or .xlsx yields FormatUnsupported and an error
// wrapping ErrUnsupportedFormat.
func DetectFormat(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	if ext == "" {
		return FormatUnsupported, fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	}
	return FormatUnsupported, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// ParseTarget maps a conversion choice to a format. Unknown choices map to
// FormatUnsupported, which Export rejects.
func ParseTarget(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", ".csv":
		return FormatCSV
	case "xlsx", ".xlsx", "excel":
		return FormatXLSX
	default:
		return FormatUnsupported
	}
}

// Targets lists the formats a table can be converted to.
func Targets() []Format {
	return []Format{FormatCSV, FormatXLSX}
}
