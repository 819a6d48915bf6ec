package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
)

// browser drives the HTML UI with a session cookie.
type browser struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func newBrowser(t *testing.T, srv *Server) *browser {
	t.Helper()
	b := &browser{t: t, srv: srv}
	rec := b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	return b
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := serve(b.srv, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == b.srv.cfg.Session.CookieName {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) upload(files ...upload) *httptest.ResponseRecorder {
	body, ct := multipartBody(b.t, files...)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	return b.send(req)
}

// onlyFile returns the single file in the browser's session.
func (b *browser) onlyFile() core.FileSummary {
	b.t.Helper()
	files, err := b.srv.service.Files(context.Background(), b.cookie.Value)
	require.NoError(b.t, err)
	require.Len(b.t, files, 1)
	return files[0]
}

func TestDashboard_NewSessionCookie(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Data Sweeper")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestDashboard_ExpiredCookieStartsNewSession(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sweeper_session", Value: "gone"})
	rec := serve(srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, "gone", cookies[0].Value)
}

func TestUploadForm_ShowsFileAndNotices(t *testing.T) {
	srv := newTestServer(t, nil)
	b := newBrowser(t, srv)

	rec := b.upload(upload{"data.csv", scenarioCSV}, upload{"notes.txt", "x"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	page := b.get("/").Body.String()
	assert.Contains(t, page, "Loaded data.csv (3 rows, 2 columns)")
	assert.Contains(t, page, "notes.txt: This file type is not supported (Code: FMT001)")
	assert.Contains(t, page, "<h2>data.csv</h2>")
	assert.Contains(t, page, "Clean data")

	again := b.get("/").Body.String()
	assert.NotContains(t, again, "Loaded data.csv", "notices are shown once")
}

func TestUploadForm_NoFiles(t *testing.T) {
	srv := newTestServer(t, nil)
	b := newBrowser(t, srv)

	rec := b.upload()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, b.get("/").Body.String(), "FILE004")
}

func TestCleaningFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	b := newBrowser(t, srv)
	b.upload(upload{"data.csv", scenarioCSV})
	f := b.onlyFile()
	base := "/files/" + f.ID

	rec := b.post(base+"/dedupe", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, b.get("/").Body.String(), "CLN001")

	rec = b.post(base+"/cleaning", url.Values{"enabled": {"true"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/#file-"+f.ID, rec.Header().Get("Location"))

	page := b.get("/").Body.String()
	assert.Contains(t, page, "Remove duplicates")
	assert.Contains(t, page, "Fill missing values")

	b.post(base+"/dedupe", nil)
	b.post(base+"/fill", nil)
	page = b.get("/").Body.String()
	assert.Contains(t, page, "Duplicates removed from data.csv: 0 rows dropped")
	assert.Contains(t, page, "Missing values filled in data.csv: 1 cells")
	assert.Contains(t, page, "<td>3.5</td>")

	b.post(base+"/chart", url.Values{"enabled": {"true"}})
	assert.Contains(t, b.get("/").Body.String(), "<svg")

	b.post(base+"/columns", url.Values{"columns": {"a"}})
	f = b.onlyFile()
	assert.Equal(t, []string{"a"}, f.SelectedColumns())

	b.post(base+"/columns", url.Values{})
	f = b.onlyFile()
	assert.Empty(t, f.SelectedColumns())
	assert.Contains(t, b.get("/").Body.String(), "No columns selected.")

	b.post(base+"/cleaning", url.Values{"enabled": {"false"}})
	page = b.get("/").Body.String()
	assert.NotContains(t, page, "Remove duplicates")
	assert.Contains(t, page, "<th scope=\"col\">b</th>", "selection is ignored while cleaning is off")
}

func TestConvertForm_Downloads(t *testing.T) {
	srv := newTestServer(t, nil)
	b := newBrowser(t, srv)
	b.upload(upload{"report.csv", "x,y\n1,2\n"})
	f := b.onlyFile()

	rec := b.post("/files/"+f.ID+"/convert", url.Values{"target": {"csv"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "x,y\n1,2\n", rec.Body.String())
	assert.Equal(t, "attachment; filename=report.csv", rec.Header().Get("Content-Disposition"))

	rec = b.post("/files/"+f.ID+"/convert", url.Values{"target": {"xlsx"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=report.xlsx", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"), "xlsx is a zip archive")

	rec = b.post("/files/"+f.ID+"/convert", url.Values{"target": {"pdf"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, b.get("/").Body.String(), "SER001")
}

func TestDeleteForm(t *testing.T) {
	srv := newTestServer(t, nil)
	b := newBrowser(t, srv)
	b.upload(upload{"data.csv", scenarioCSV})
	f := b.onlyFile()

	rec := b.post("/files/"+f.ID+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := b.get("/").Body.String()
	assert.Contains(t, page, "Removed data.csv")
	assert.Contains(t, page, "Upload a CSV or Excel file")

	b.post("/files/"+f.ID+"/delete", nil)
	assert.Contains(t, b.get("/").Body.String(), "SES002")
}

func TestErrorPage_HTML(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 1
		c.Rate.Burst = 1
	})
	serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Code: RATE001")
}
