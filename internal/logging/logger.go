// Package logging configures log/slog for the service and carries
// request-scoped attributes through context.Context.
//
// chi's RequestID middleware supplies the request ID; other middleware adds
// attributes such as the session ID with ContextWith. Loggers returned by
// FromContext include both.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type attrsKey struct{}

// Setup installs a stdout logger as the slog default and returns it.
// level is debug, info, warn or error; format is text or json. Unknown
// values fall back to info and text.
func Setup(level, format string) *slog.Logger {
	l := New(os.Stdout, level, format)
	slog.SetDefault(l)
	return l
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	levels := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	if l, ok := levels[strings.ToLower(s)]; ok {
		return l
	}
	return slog.LevelInfo
}

// ContextWith returns ctx with extra log attributes appended, given as
// alternating keys and values in the style of slog.Logger.With.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]any)
	return context.WithValue(ctx, attrsKey{}, append(prev[:len(prev):len(prev)], args...))
}

// FromContext returns the default logger with the request ID and any
// ContextWith attributes attached.
//
//	logging.FromContext(r.Context()).Info("file loaded", "rows", n)
func FromContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := middleware.GetReqID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if attrs, _ := ctx.Value(attrsKey{}).([]any); len(attrs) > 0 {
		l = l.With(attrs...)
	}
	return l
}

// WithFields is FromContext(ctx).With(args...).
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
