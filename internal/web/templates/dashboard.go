package templates

import (
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/table"
)

// FileView is everything the dashboard shows for one file.
type FileView struct {
	File    core.FileSummary
	Preview core.Preview

	// Chart is set when cleaning and the chart are both enabled.
	Chart *table.Chart
}

// DashboardData is the dashboard page model.
type DashboardData struct {
	Files       []FileView
	Notices     []core.Notice
	MaxFileSize int64
	MaxFiles    int
}
