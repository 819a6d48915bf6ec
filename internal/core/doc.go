// Package core drives the table pipeline for each user session.
//
// The package holds no transport logic. Web handlers, the JSON API and tests
// all go through [Service].
//
// # Sessions and files
//
// A [Session] holds the files uploaded in one browser session, keyed by file
// ID. Each [FileState] carries the working table and the choices made for it:
//
//   - Cleaning: whether the cleaning controls are enabled.
//   - Selected: the chosen columns in order, applied as a view while
//     cleaning is enabled.
//   - ShowChart: whether the numeric chart is shown.
//   - Target: the last conversion format chosen.
//
// Sessions live in memory only and are dropped after an idle TTL by
// [Service.StartSessionSweeper].
//
// # Operations
//
// [Service.Ingest] processes the files of one upload sequentially; a file
// that fails is reported in its [IngestResult] and never stops the others.
// Duplicate removal and mean fill replace the working table with a new one,
// in whatever order the user triggers them. [Service.Convert] exports the
// current view. Parse and export work is bounded server-wide by an
// [WorkLimiter].
//
// # Error Handling
//
// Errors are returned unchanged from the table package or as the sentinels
// defined here. [MapError] turns any of them into a [UserMessage] with a
// support code; see error_messages.go for the code table.
package core
