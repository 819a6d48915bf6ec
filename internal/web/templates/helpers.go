// Package templates renders the HTML pages of the web UI. The components
// are written in .templ files; run `templ generate` after editing them.
package templates

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/JonMunkholm/sweeper/internal/core"
)

// AppTitle is shown in the page header and title.
const AppTitle = "Data Sweeper"

func pageTitle(title string) string {
	if title == "" || title == AppTitle {
		return AppTitle
	}
	return title + " - " + AppTitle
}

func noticeClass(level core.NoticeLevel) string {
	return "alert alert-" + string(level)
}

func previewFooter(p core.Preview) string {
	if len(p.Rows) < p.TotalRows {
		return fmt.Sprintf("Showing %d of %s rows", len(p.Rows), humanize.Comma(int64(p.TotalRows)))
	}
	return humanize.Comma(int64(p.TotalRows)) + " rows"
}

func uploadLimits(maxFileSize int64, maxFiles int) string {
	if maxFileSize <= 0 {
		return ""
	}
	s := "Up to " + humanize.IBytes(uint64(maxFileSize)) + " per file"
	if maxFiles > 0 {
		s += fmt.Sprintf(", %d files at a time", maxFiles)
	}
	return s
}

func fileAnchor(id string) string {
	return "file-" + id
}

// fileAction is the form target for op on a file. The result is escaped
// where it is rendered.
func fileAction(id, op string) string {
	return "/files/" + id + "/" + op
}

func fileMeta(f core.FileSummary) string {
	return fmt.Sprintf("%s · %s · %s rows · %d columns · %s missing values",
		humanize.Bytes(uint64(f.Size)), strings.ToUpper(f.Format),
		humanize.Comma(int64(f.Rows)), len(f.Columns), humanize.Comma(int64(f.Missing)))
}

func convertLegend(name string) string {
	return "Convert " + name + " to:"
}
