package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
)

// SessionHeader carries the session ID for API clients that do not keep
// cookies. It is echoed on every API response.
const SessionHeader = "X-Session-ID"

// withSession resolves the caller's session from the X-Session-ID header or
// the session cookie and stores its ID in the request context.
//
// Browsers whose session expired silently get a new one. API clients that
// name an unknown session in the header get SES001 instead, so they notice
// their files are gone. A request with no session starts a new one.
func (s *Server) withSession(api bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, fromHeader := s.requestSessionID(r, api)
			if id != "" {
				if _, err := s.service.Sessions().Get(id); err != nil {
					if fromHeader && errors.Is(err, core.ErrSessionNotFound) {
						s.respondError(w, r, err)
						return
					}
					id = ""
				}
			}

			if id == "" {
				id = s.service.NewSession()
				logging.FromContext(r.Context()).Debug("session started", "session_id", id)
			}
			if !fromHeader {
				// Refreshed on every request so the cookie lives as long as the idle TTL.
				http.SetCookie(w, s.sessionCookie(id))
			}
			if api {
				w.Header().Set(SessionHeader, id)
			}

			ctx := core.ContextWithSessionID(r.Context(), id)
			ctx = logging.ContextWith(ctx, "session_id", id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestSessionID returns the session ID sent by the client and whether it
// came from the header. Only API requests may use the header.
func (s *Server) requestSessionID(r *http.Request, api bool) (string, bool) {
	if api {
		if id := r.Header.Get(SessionHeader); id != "" {
			return id, true
		}
	}
	if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil && c.Value != "" {
		return c.Value, false
	}
	return "", false
}

func (s *Server) sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.Session.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionID returns the session resolved by withSession.
func sessionID(r *http.Request) string {
	return core.SessionIDFromContext(r.Context())
}
