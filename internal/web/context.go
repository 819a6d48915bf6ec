package web

import (
	"net/http"

	"github.com/JonMunkholm/sweeper/internal/core"
)

// requestMetadata adds the client IP to the request context for the core
// layer. It runs after TrustedRealIP, so RemoteAddr already holds the bare
// client address.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClientIP(r.Context(), r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
