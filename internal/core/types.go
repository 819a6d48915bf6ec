// Package core provides the session driver for the sweeper UI.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"time"

	"github.com/JonMunkholm/sweeper/internal/table"
)

// UploadedFile is a file as received from the client. It is never modified.
type UploadedFile struct {
	Name    string
	Size    int64
	Content []byte
}

// ColumnInfo describes one column of a loaded file.
type ColumnInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Missing  int    `json:"missing"`
	Selected bool   `json:"selected"`
}

// FileSummary is a read-only snapshot of a file's state.
type FileSummary struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Size       int64        `json:"size"`
	Format     string       `json:"format"`
	Rows       int          `json:"rows"`
	Columns    []ColumnInfo `json:"columns"`
	Selected   []string     `json:"selected"`
	Missing    int          `json:"missing"`
	Cleaning   bool         `json:"cleaning"`
	ShowChart  bool         `json:"show_chart"`
	Target     string       `json:"target"`
	UploadedAt time.Time    `json:"uploaded_at"`
}

// SelectedColumns returns the names of the selected columns in the order
// they were chosen.
func (f FileSummary) SelectedColumns() []string {
	return f.Selected
}

// Preview is the first rows of a file's current view, rendered as strings.
type Preview struct {
	FileID    string     `json:"file_id"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// IngestResult reports the outcome for one uploaded file. Exactly one of
// File and Err is set.
type IngestResult struct {
	FileName string
	File     *FileSummary
	Err      error
}

// NoticeLevel classifies a notice shown to the user.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notice is a one-shot message for the user, shown on the next page render.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

// DisplayOptions controls how much data is shown.
type DisplayOptions struct {
	PreviewRows int
	ChartSeries int
	ChartBars   int
}

// columnInfo builds column descriptions for t, marking the names in
// selected. A nil selection marks every column.
func columnInfo(t *table.Table, selected []string) []ColumnInfo {
	in := make(map[string]bool, len(selected))
	for _, name := range selected {
		in[name] = true
	}

	cols := t.Columns()
	out := make([]ColumnInfo, len(cols))
	for i, c := range cols {
		out[i] = ColumnInfo{
			Name:     c.Name,
			Kind:     c.Kind.String(),
			Missing:  c.MissingCount(),
			Selected: selected == nil || in[c.Name],
		}
	}
	return out
}
