package table

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for file names whose extension is not a
// supported tabular format. The message contains "unsupported file type" so
// user-facing error mapping can recognise it.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// ErrUnknownColumn is returned when a column selection names a column the
// table does not have.
var ErrUnknownColumn = errors.New("column not found")

// ParseError reports bytes that could not be loaded as the declared format.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	switch e.Format {
	case FormatCSV:
		return "invalid csv: " + e.Err.Error()
	case FormatXLSX:
		return "invalid spreadsheet: " + e.Err.Error()
	default:
		return "parse error: " + e.Err.Error()
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// SerializationError reports a table that could not be written in the
// requested target format.
type SerializationError struct {
	Format Format
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("export to %s failed: %v", e.Format, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Causes wrapped by ParseError and SerializationError. They are matched with
// errors.Is through the wrapper.
var (
	ErrEmptyFile         = errors.New("empty file")
	ErrEncoding          = errors.New("encoding error")
	ErrUnsupportedTarget = errors.New("unsupported target format")
	ErrNotRepresentable  = errors.New("value cannot be represented")
)

func parseErr(f Format, err error) *ParseError {
	return &ParseError{Format: f, Err: err}
}

func serializationErr(f Format, err error) *SerializationError {
	return &SerializationError{Format: f, Err: err}
}
