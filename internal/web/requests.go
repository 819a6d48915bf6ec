package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/sweeper/internal/core"
)

// multipartMemory is how much of a multipart upload is buffered in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

// toggleRequest turns a per-file option on or off.
type toggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// columnsRequest selects the columns to keep, in order. An empty list keeps none.
type columnsRequest struct {
	Columns []string `json:"columns" validate:"required"`
}

// convertRequest chooses the export format.
type convertRequest struct {
	Target string `json:"target" validate:"required"`
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates it. Failures are
// returned as "invalid request" errors.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("invalid request: empty body")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return s.validateStruct(dst)
}

func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid request: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("invalid request: %s", strings.Join(msgs, "; "))
}

// formatFieldError formats validation error messages.
func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// maxUploadBytes bounds the whole multipart body of one upload request.
func (s *Server) maxUploadBytes() int64 {
	n := s.cfg.Upload.MaxFiles
	if n <= 0 {
		n = 1
	}
	return s.cfg.Upload.MaxFileSize*int64(n) + multipartMemory
}

// readUploads reads every part named "files" from a multipart request.
// A file is read up to one byte past the size limit so the service can
// reject it without buffering the rest.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]core.UploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request body too large", core.ErrFileTooLarge)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, core.ErrNoFiles
		}
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, core.ErrNoFiles
	}
	if maxFiles := s.cfg.Upload.MaxFiles; maxFiles > 0 && len(headers) > maxFiles {
		return nil, fmt.Errorf("invalid request: %d files exceeds limit of %d per upload", len(headers), maxFiles)
	}

	limit := s.cfg.Upload.MaxFileSize
	files := make([]core.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		var src io.Reader = f
		if limit > 0 {
			src = io.LimitReader(f, limit+1)
		}
		content, err := io.ReadAll(src)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, core.UploadedFile{
			Name:    fh.Filename,
			Size:    fh.Size,
			Content: content,
		})
	}
	return files, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolForm reads a boolean form field; anything unparsable is false.
func parseBoolForm(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.PostFormValue(name))
	return v || r.PostFormValue(name) == "on"
}

// isJSONRequest reports whether the request body is JSON.
func isJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
