package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/core"
)

// sessionResponse identifies the caller's session.
type sessionResponse struct {
	SessionID string `json:"session_id"`
}

// uploadResult is the outcome for one file of an upload.
type uploadResult struct {
	FileName string            `json:"file_name"`
	File     *core.FileSummary `json:"file,omitempty"`
	Error    *ErrorResponse    `json:"error,omitempty"`
}

type uploadResponse struct {
	Results []uploadResult `json:"results"`
	Loaded  int            `json:"loaded"`
	Failed  int            `json:"failed"`
}

type filesResponse struct {
	Files []core.FileSummary `json:"files"`
}

type dedupeResponse struct {
	File    core.FileSummary `json:"file"`
	Removed int              `json:"removed"`
}

type fillResponse struct {
	File   core.FileSummary `json:"file"`
	Filled int              `json:"filled"`
}

// handleAPISession returns the session ID, starting a session if needed.
func (s *Server) handleAPISession(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, sessionResponse{SessionID: sessionID(r)})
}

// handleAPIUpload ingests multipart "files". Per-file failures are reported
// in the results and never fail the request: the status is 201 when at
// least one file loaded and 200 otherwise.
func (s *Server) handleAPIUpload(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	results, err := s.service.Ingest(r.Context(), sessionID(r), files)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := uploadResponse{Results: make([]uploadResult, len(results))}
	for i, res := range results {
		resp.Results[i] = uploadResult{FileName: res.FileName, File: res.File}
		if res.Err != nil {
			e := newErrorResponse(core.MapError(res.Err))
			resp.Results[i].Error = &e
			resp.Failed++
			continue
		}
		resp.Loaded++
	}

	status := http.StatusOK
	if resp.Loaded > 0 {
		status = http.StatusCreated
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func (s *Server) handleAPIListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.Files(r.Context(), sessionID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if files == nil {
		files = []core.FileSummary{}
	}
	render.JSON(w, r, filesResponse{Files: files})
}

func (s *Server) handleAPIGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.service.File(r.Context(), sessionID(r), chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, f)
}

func (s *Server) handleAPIDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveFile(r.Context(), sessionID(r), chi.URLParam(r, "fileID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// handleAPIPreview returns the first ?rows=N rows of the file's current view.
func (s *Server) handleAPIPreview(w http.ResponseWriter, r *http.Request) {
	rows := parseIntParam(r, "rows", s.service.Display().PreviewRows)

	p, err := s.service.Preview(r.Context(), sessionID(r), chi.URLParam(r, "fileID"), rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

func (s *Server) handleAPICleaning(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	f, err := s.service.SetCleaning(r.Context(), sessionID(r), chi.URLParam(r, "fileID"), *req.Enabled)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, f)
}

func (s *Server) handleAPIDedupe(w http.ResponseWriter, r *http.Request) {
	f, removed, err := s.service.RemoveDuplicates(r.Context(), sessionID(r), chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, dedupeResponse{File: f, Removed: removed})
}

func (s *Server) handleAPIFill(w http.ResponseWriter, r *http.Request) {
	f, filled, err := s.service.FillMissing(r.Context(), sessionID(r), chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, fillResponse{File: f, Filled: filled})
}

func (s *Server) handleAPIColumns(w http.ResponseWriter, r *http.Request) {
	var req columnsRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	f, err := s.service.SelectColumns(r.Context(), sessionID(r), chi.URLParam(r, "fileID"), req.Columns)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, f)
}

func (s *Server) handleAPISetChart(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	f, err := s.service.SetShowChart(r.Context(), sessionID(r), chi.URLParam(r, "fileID"), *req.Enabled)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, f)
}

func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	c, err := s.service.Chart(r.Context(), sessionID(r), chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	render.JSON(w, r, c)
}

// handleAPIConvert exports the file's current view as an attachment. The
// target comes from a JSON body, a form field or the ?target= query.
func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if isJSONRequest(r) {
		if err := s.decodeJSON(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
	} else {
		req.Target = r.FormValue("target")
		if err := s.validateStruct(&req); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	art, err := s.service.Convert(r.Context(), sessionID(r), chi.URLParam(r, "fileID"), req.Target)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	serveArtifact(w, r, art)
}
