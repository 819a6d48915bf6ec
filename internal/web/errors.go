package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via core.MapError to a user-friendly message and code
//  4. The code picks the HTTP status
//  5. Technical error + context is logged with request ID for correlation
//  6. User message is rendered as JSON for API clients, as a page otherwise

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func newErrorResponse(msg core.UserMessage) ErrorResponse {
	return ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}

// statusByCode maps user message codes to HTTP status codes.
var statusByCode = map[string]int{
	"FMT001":   http.StatusUnsupportedMediaType,
	"PARSE001": http.StatusUnprocessableEntity,
	"PARSE002": http.StatusUnprocessableEntity,
	"PARSE003": http.StatusUnprocessableEntity,
	"PARSE004": http.StatusUnprocessableEntity,
	"SER001":   http.StatusUnprocessableEntity,
	"SER002":   http.StatusUnprocessableEntity,
	"COL001":   http.StatusBadRequest,
	"CLN001":   http.StatusConflict,
	"SES001":   http.StatusNotFound,
	"SES002":   http.StatusNotFound,
	"SES003":   http.StatusConflict,
	"FILE001":  http.StatusRequestEntityTooLarge,
	"FILE004":  http.StatusBadRequest,
	"UPL002":   http.StatusServiceUnavailable,
	"UPL004":   http.StatusRequestTimeout,
	"UPL005":   http.StatusGatewayTimeout,
	"REQ001":   http.StatusBadRequest,
	"RATE001":  http.StatusTooManyRequests,
}

// statusForCode returns the HTTP status for a user message code.
func statusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs err server-side and writes the mapped user message with
// the matching status code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := statusForCode(msg.Code)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if wantsJSON(r) {
		respondErrorJSON(w, r, msg, status)
		return
	}
	respondErrorHTML(w, r, msg, status)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	render.Status(r, status)
	render.JSON(w, r, newErrorResponse(msg))
}

// respondErrorHTML writes an error page.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorPage(msg).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error page", "error", err)
	}
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
