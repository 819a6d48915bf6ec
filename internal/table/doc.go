// Package table implements the tabular pipeline behind the sweeper UI:
// format detection, loading CSV and XLSX content into typed tables, the
// cleaning operations, numeric chart extraction and export.
//
// # Pipeline
//
//	upload bytes -> DetectFormat -> Load -> DropDuplicates / FillMissingMean /
//	SelectColumns -> BuildChart (display only) -> Export -> Artifact
//
// Every stage is a synchronous in-memory computation. Cleaning functions
// return new tables; the InPlace methods mutate the receiver for callers that
// own the table exclusively.
//
// # Errors
//
// Loading fails with ErrUnsupportedFormat or a *ParseError, exporting with a
// *SerializationError. Both typed errors unwrap to a cause such as
// ErrEmptyFile, ErrEncoding, ErrUnsupportedTarget or ErrNotRepresentable.
package table
