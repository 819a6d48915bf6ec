package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/table"
)

const scenarioCSV = "a,b\n1,\n1,3\n2,4\n"

type upload struct {
	name    string
	content string
}

// newTestServer builds a server on default configuration with rate limiting
// off. mutate may adjust the configuration first.
func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg, err := config.LoadFrom(func(string) string { return "" })
	require.NoError(t, err)
	cfg.Rate.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	reg := prometheus.NewRegistry()
	svc := core.NewService(core.Options{
		SessionTTL:         cfg.Session.TTL,
		MaxFileSize:        cfg.Upload.MaxFileSize,
		MaxFilesPerSession: cfg.Session.MaxFiles,
		MaxConcurrent:      cfg.Upload.MaxConcurrent,
		MaxWait:            cfg.Upload.MaxWaitTime,
		Display: core.DisplayOptions{
			PreviewRows: cfg.Display.PreviewRows,
			ChartSeries: cfg.Display.ChartSeries,
			ChartBars:   cfg.Display.ChartBars,
		},
		Registerer: reg,
	})
	return NewServer(cfg, svc, reg)
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// apiClient talks to the JSON API within one session.
type apiClient struct {
	t   *testing.T
	srv *Server
	sid string
}

func newAPIClient(t *testing.T, srv *Server) *apiClient {
	t.Helper()
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.Equal(t, resp.SessionID, rec.Header().Get(SessionHeader))
	return &apiClient{t: t, srv: srv, sid: resp.SessionID}
}

func (c *apiClient) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(SessionHeader, c.sid)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return serve(c.srv, req)
}

func (c *apiClient) json(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return c.do(method, path, r, "application/json")
}

func (c *apiClient) upload(files ...upload) uploadResponse {
	c.t.Helper()
	body, ct := multipartBody(c.t, files...)
	rec := c.do(http.MethodPost, "/api/files", body, ct)
	require.Contains(c.t, []int{http.StatusOK, http.StatusCreated}, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (c *apiClient) uploadOne(name, content string) core.FileSummary {
	c.t.Helper()
	resp := c.upload(upload{name, content})
	require.Len(c.t, resp.Results, 1)
	require.Nil(c.t, resp.Results[0].Error)
	require.NotNil(c.t, resp.Results[0].File)
	return *resp.Results[0].File
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 5, resp.Uploads.MaxConcurrent)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAPI_ScenarioPipeline(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newAPIClient(t, srv)

	f := c.uploadOne("data.csv", scenarioCSV)
	assert.Equal(t, 3, f.Rows)
	assert.Equal(t, 1, f.Missing)
	assert.Equal(t, []string{"a", "b"}, f.SelectedColumns())

	rec := c.json(http.MethodPut, "/api/files/"+f.ID+"/cleaning", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.json(http.MethodPost, "/api/files/"+f.ID+"/dedupe", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dedupe dedupeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dedupe))
	assert.Equal(t, 0, dedupe.Removed)
	assert.Equal(t, 3, dedupe.File.Rows)

	rec = c.json(http.MethodPost, "/api/files/"+f.ID+"/fill", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var fill fillResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fill))
	assert.Equal(t, 1, fill.Filled)
	assert.Equal(t, 0, fill.File.Missing)

	rec = c.json(http.MethodPost, "/api/files/"+f.ID+"/convert", `{"target":"csv"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "a,b\n1,3.5\n1,3\n2,4\n", rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=data.csv`, rec.Header().Get("Content-Disposition"))

	rec = c.do(http.MethodPost, "/api/files/"+f.ID+"/convert?target=excel", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename=data.xlsx`, rec.Header().Get("Content-Disposition"))

	got, err := table.Load(rec.Body.Bytes(), table.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Names())
	assert.Equal(t, [][]string{{"1", "3.5"}, {"1", "3"}, {"2", "4"}}, got.Head(-1))

	rec = c.json(http.MethodGet, "/api/files/"+f.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary core.FileSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "xlsx", summary.Target)
}

func TestAPI_UploadReportsEachFile(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newAPIClient(t, srv)

	resp := c.upload(
		upload{"notes.txt", "hello"},
		upload{"data.csv", scenarioCSV},
		upload{"broken.csv", "a,b\n\"unterminated\n"},
	)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, 1, resp.Loaded)
	assert.Equal(t, 2, resp.Failed)

	require.NotNil(t, resp.Results[0].Error)
	assert.Equal(t, "FMT001", resp.Results[0].Error.Code)
	assert.NotNil(t, resp.Results[1].File)
	require.NotNil(t, resp.Results[2].Error)
	assert.Equal(t, "PARSE001", resp.Results[2].Error.Code)

	rec := c.json(http.MethodGet, "/api/files", "")
	var files filesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files.Files, 1)
	assert.Equal(t, "data.csv", files.Files[0].Name)
}

func TestAPI_UploadAllFailedIsOK(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newAPIClient(t, srv)

	body, ct := multipartBody(t, upload{"notes.txt", "hello"})
	rec := c.do(http.MethodPost, "/api/files", body, ct)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_UploadErrors(t *testing.T) {
	t.Run("no files", func(t *testing.T) {
		srv := newTestServer(t, nil)
		c := newAPIClient(t, srv)

		body, ct := multipartBody(t)
		rec := c.do(http.MethodPost, "/api/files", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE004", decodeError(t, rec).Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		srv := newTestServer(t, nil)
		c := newAPIClient(t, srv)

		rec := c.json(http.MethodPost, "/api/files", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "FILE004", decodeError(t, rec).Code)
	})

	t.Run("file over size limit", func(t *testing.T) {
		srv := newTestServer(t, func(c *config.Config) { c.Upload.MaxFileSize = 8 })
		c := newAPIClient(t, srv)

		resp := c.upload(upload{"data.csv", scenarioCSV})
		require.NotNil(t, resp.Results[0].Error)
		assert.Equal(t, "FILE001", resp.Results[0].Error.Code)
	})

	t.Run("too many files per request", func(t *testing.T) {
		srv := newTestServer(t, func(c *config.Config) { c.Upload.MaxFiles = 1 })
		c := newAPIClient(t, srv)

		body, ct := multipartBody(t, upload{"a.csv", "a\n1\n"}, upload{"b.csv", "b\n2\n"})
		rec := c.do(http.MethodPost, "/api/files", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "REQ001", decodeError(t, rec).Code)
	})
}

func TestAPI_CleaningRequiresToggle(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newAPIClient(t, srv)
	f := c.uploadOne("data.csv", scenarioCSV)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/dedupe", ""},
		{http.MethodPost, "/fill", ""},
		{http.MethodPut, "/columns", `{"columns":["a"]}`},
		{http.MethodPut, "/chart", `{"enabled":true}`},
		{http.MethodGet, "/chart", ""},
	} {
		rec := c.json(tc.method, "/api/files/"+f.ID+tc.path, tc.body)
		assert.Equal(t, http.StatusConflict, rec.Code, tc.path)
		assert.Equal(t, "CLN001", decodeError(t, rec).Code, tc.path)
	}
}

func TestAPI_ColumnsPreviewAndChart(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newAPIClient(t, srv)
	f := c.uploadOne("data.csv", "name,a,b\nx,1,2\ny,3,\nz,5,6\n")

	require.Equal(t, http.StatusOK, c.json(http.MethodPut, "/api/files/"+f.ID+"/cleaning", `{"enabled":true}`).Code)

	rec := c.json(http.MethodPut, "/api/files/"+f.ID+"/columns", `{"columns":["b","name"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.json(http.MethodGet, "/api/files/"+f.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary core.FileSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, []string{"b", "name"}, summary.Selected, "selection keeps the requested order")

	rec = c.json(http.MethodGet, "/api/files/"+f.ID+"/preview?rows=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p core.Preview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, []string{"b", "name"}, p.Columns)
	assert.Equal(t, [][]string{{"2", "x"}, {"", "y"}}, p.Rows)
	assert.Equal(t, 3, p.TotalRows)

	rec = c.json(http.MethodGet, "/api/files/"+f.ID+"/chart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var chart table.Chart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chart))
	require.Len(t, chart.Series, 1)
	assert.Equal(t, "b", chart.Series[0].Name)
	assert.Nil(t, chart.Series[0].Values[1])

	rec = c.json(http.MethodPut, "/api/files/"+f.ID+"/columns", `{"columns":["nope"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "COL001", decodeError(t, rec).Code)

	rec = c.json(http.MethodPut, "/api/files/"+f.ID+"/columns", `{"columns":["name"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.json(http.MethodGet, "/api/files/"+f.ID+"/chart", "")
	var empty table.Chart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Empty(t, empty.Series)
	assert.Equal(t, table.NoNumericWarning, empty.Warning)
}

func TestAPI_RequestValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newAPIClient(t, srv)
	f := c.uploadOne("data.csv", scenarioCSV)

	tests := []struct {
		name, method, path, body string
	}{
		{"missing enabled", http.MethodPut, "/cleaning", `{}`},
		{"malformed json", http.MethodPut, "/cleaning", `{"enabled":`},
		{"empty body", http.MethodPut, "/chart", ""},
		{"missing columns", http.MethodPut, "/columns", `{"cols":["a"]}`},
		{"missing target", http.MethodPost, "/convert", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.json(tt.method, "/api/files/"+f.ID+tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "REQ001", decodeError(t, rec).Code)
		})
	}
}

func TestAPI_ConvertErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newAPIClient(t, srv)
	f := c.uploadOne("data.csv", scenarioCSV)

	rec := c.json(http.MethodPost, "/api/files/"+f.ID+"/convert", `{"target":"pdf"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "SER001", decodeError(t, rec).Code)

	rec = c.json(http.MethodPost, "/api/files/missing/convert", `{"target":"csv"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES002", decodeError(t, rec).Code)
}

func TestAPI_DeleteFile(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newAPIClient(t, srv)
	f := c.uploadOne("data.csv", scenarioCSV)

	rec := c.json(http.MethodDelete, "/api/files/"+f.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.json(http.MethodGet, "/api/files/"+f.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES002", decodeError(t, rec).Code)
}

func TestAPI_Sessions(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("unknown header session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
		req.Header.Set(SessionHeader, "does-not-exist")
		rec := serve(srv, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "SES001", decodeError(t, rec).Code)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		a := newAPIClient(t, srv)
		b := newAPIClient(t, srv)
		f := a.uploadOne("data.csv", scenarioCSV)

		rec := b.json(http.MethodGet, "/api/files/"+f.ID, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cookie session", func(t *testing.T) {
		rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/session", nil))
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "sweeper_session", cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)

		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.AddCookie(cookies[0])
		rec2 := serve(srv, req)
		assert.Equal(t, cookies[0].Value, rec2.Header().Get(SessionHeader))
	})
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 1
		c.Rate.Burst = 1
	})

	first := serve(srv, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(srv, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE001", decodeError(t, second).Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestAPIKeyRequired(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, serve(srv, req).Code)

	assert.Equal(t, http.StatusOK, serve(srv, httptest.NewRequest(http.MethodGet, "/", nil)).Code,
		"pages do not need a key")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	c := newAPIClient(t, srv)
	c.uploadOne("data.csv", scenarioCSV)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sweeper_files_ingested_total{format="csv",result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "sweeper_sessions 1")
	assert.Contains(t, rec.Body.String(), `sweeper_http_requests_total{method="POST",route="/api/files",status="201"} 1`)
	assert.Contains(t, rec.Body.String(), "sweeper_http_request_duration_seconds_bucket")

	off := newTestServer(t, func(c *config.Config) { c.Metrics.Enabled = false })
	assert.Equal(t, http.StatusNotFound, serve(off, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

func TestStatusForCode(t *testing.T) {
	tests := map[string]int{
		"FMT001":   http.StatusUnsupportedMediaType,
		"PARSE003": http.StatusUnprocessableEntity,
		"SES001":   http.StatusNotFound,
		"CLN001":   http.StatusConflict,
		"FILE001":  http.StatusRequestEntityTooLarge,
		"UPL002":   http.StatusServiceUnavailable,
		"ERR000":   http.StatusInternalServerError,
		"":         http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, statusForCode(code), code)
	}
}
