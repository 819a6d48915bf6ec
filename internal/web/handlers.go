package web

import (
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/table"
	"github.com/JonMunkholm/sweeper/internal/web/templates"
)

// handleDashboard renders the main page with every file in the session.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(r)

	files, err := s.service.Files(ctx, sid)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := templates.DashboardData{
		Files:       make([]templates.FileView, 0, len(files)),
		MaxFileSize: s.cfg.Upload.MaxFileSize,
		MaxFiles:    s.cfg.Upload.MaxFiles,
	}
	for _, f := range files {
		view, err := s.fileView(r, f)
		if err != nil {
			// Removed by a concurrent request; skip it.
			continue
		}
		data.Files = append(data.Files, view)
	}
	data.Notices = s.service.TakeNotices(sid)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.Dashboard(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render dashboard", "error", err)
	}
}

// fileView gathers the preview and, when shown, the chart for one file.
func (s *Server) fileView(r *http.Request, f core.FileSummary) (templates.FileView, error) {
	ctx := r.Context()
	sid := sessionID(r)

	preview, err := s.service.Preview(ctx, sid, f.ID, 0)
	if err != nil {
		return templates.FileView{}, err
	}
	view := templates.FileView{File: f, Preview: preview}

	if f.Cleaning && f.ShowChart {
		chart, err := s.service.Chart(ctx, sid, f.ID)
		if err != nil {
			return templates.FileView{}, err
		}
		view.Chart = &chart
	}
	return view, nil
}

// handleUploadForm ingests the uploaded files and reports each outcome as a
// notice on the dashboard.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)

	files, err := s.readUploads(w, r)
	if err != nil {
		s.redirectWithError(w, r, err)
		return
	}

	results, err := s.service.Ingest(r.Context(), sid, files)
	if err != nil {
		s.redirectWithError(w, r, err)
		return
	}

	for _, res := range results {
		if res.Err != nil {
			s.notify(r, core.NoticeError, fmt.Sprintf("%s: %s", res.FileName, core.FormatUserError(res.Err)))
			continue
		}
		s.notify(r, core.NoticeSuccess, fmt.Sprintf("Loaded %s (%d rows, %d columns)",
			res.FileName, res.File.Rows, len(res.File.Columns)))
	}
	s.redirectHome(w, r, "")
}

func (s *Server) handleCleaningForm(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if _, err := s.service.SetCleaning(r.Context(), sessionID(r), fileID, parseBoolForm(r, "enabled")); err != nil {
		s.redirectWithError(w, r, err)
		return
	}
	s.redirectHome(w, r, fileID)
}

func (s *Server) handleDedupeForm(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	fileID := chi.URLParam(r, "fileID")

	f, removed, err := s.service.RemoveDuplicates(r.Context(), sid, fileID)
	if err != nil {
		s.redirectWithError(w, r, err)
		return
	}
	s.notify(r, core.NoticeSuccess, fmt.Sprintf("Duplicates removed from %s: %d rows dropped", f.Name, removed))
	s.redirectHome(w, r, fileID)
}

func (s *Server) handleFillForm(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	fileID := chi.URLParam(r, "fileID")

	f, filled, err := s.service.FillMissing(r.Context(), sid, fileID)
	if err != nil {
		s.redirectWithError(w, r, err)
		return
	}
	s.notify(r, core.NoticeSuccess, fmt.Sprintf("Missing values filled in %s: %d cells", f.Name, filled))
	s.redirectHome(w, r, fileID)
}

// handleColumnsForm applies the checked columns. Unchecking every box keeps
// no columns.
func (s *Server) handleColumnsForm(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if err := r.ParseForm(); err != nil {
		s.redirectWithError(w, r, fmt.Errorf("invalid request: %w", err))
		return
	}

	names := r.PostForm["columns"]
	if names == nil {
		names = []string{}
	}
	if _, err := s.service.SelectColumns(r.Context(), sessionID(r), fileID, names); err != nil {
		s.redirectWithError(w, r, err)
		return
	}
	s.redirectHome(w, r, fileID)
}

func (s *Server) handleChartForm(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if _, err := s.service.SetShowChart(r.Context(), sessionID(r), fileID, parseBoolForm(r, "enabled")); err != nil {
		s.redirectWithError(w, r, err)
		return
	}
	s.redirectHome(w, r, fileID)
}

// handleConvertForm converts the file and sends the result as a download.
func (s *Server) handleConvertForm(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	art, err := s.service.Convert(r.Context(), sessionID(r), fileID, r.PostFormValue("target"))
	if err != nil {
		s.redirectWithError(w, r, err)
		return
	}
	serveArtifact(w, r, art)
}

func (s *Server) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	fileID := chi.URLParam(r, "fileID")

	f, err := s.service.File(r.Context(), sid, fileID)
	if err == nil {
		err = s.service.RemoveFile(r.Context(), sid, fileID)
	}
	if err != nil {
		s.redirectWithError(w, r, err)
		return
	}
	s.notify(r, core.NoticeInfo, fmt.Sprintf("Removed %s", f.Name))
	s.redirectHome(w, r, "")
}

// serveArtifact writes an export as an attachment.
func serveArtifact(w http.ResponseWriter, r *http.Request, art *table.Artifact) {
	w.Header().Set("Content-Type", art.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.FileName}))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, art.FileName, time.Now(), art.Reader())
}

// notify queues a notice for the next dashboard render.
func (s *Server) notify(r *http.Request, level core.NoticeLevel, text string) {
	if err := s.service.AddNotice(sessionID(r), core.Notice{Level: level, Text: text}); err != nil {
		logging.FromContext(r.Context()).Warn("notice dropped", "error", err)
	}
}

// redirectWithError logs err, queues its user message and returns to the
// dashboard.
func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	logging.FromContext(r.Context()).Warn("action failed",
		"path", r.URL.Path,
		"error", err.Error(),
		"code", msg.Code,
	)
	s.notify(r, core.NoticeError, core.FormatUserError(err))
	s.redirectHome(w, r, "")
}

// redirectHome sends the browser back to the dashboard, anchored at the
// file panel when fileID is set.
func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request, fileID string) {
	target := "/"
	if fileID != "" {
		target += "#file-" + fileID
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
