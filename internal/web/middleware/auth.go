package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/logging"
)

// APIKeyHeader carries the API key on /api requests.
const APIKeyHeader = "X-API-Key"

// authFailure is the JSON body of a rejected request. It uses the same
// field names as the handlers' error responses.
type authFailure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// APIKeyAuth guards the API with the configured keys. With RequireAPIKey off
// it is a pass-through; with it on and no keys configured nothing gets in.
// A missing key is a 401, an unknown key a 403.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	if !cfg.RequireAPIKey {
		return func(next http.Handler) http.Handler { return next }
	}

	keys := make([][]byte, len(cfg.APIKeys))
	for i, k := range cfg.APIKeys {
		keys[i] = []byte(k)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(APIKeyHeader)

			var fail *authFailure
			status := http.StatusUnauthorized
			switch {
			case presented == "":
				fail = &authFailure{Error: "missing API key", Code: "AUTH_MISSING_KEY"}
			case !keyMatches([]byte(presented), keys):
				fail = &authFailure{Error: "invalid API key", Code: "AUTH_INVALID_KEY"}
				status = http.StatusForbidden
			default:
				next.ServeHTTP(w, r)
				return
			}

			logging.FromContext(r.Context()).Warn("api key rejected",
				"code", fail.Code,
				"method", r.Method,
				"path", r.URL.Path,
				"ip", r.RemoteAddr,
			)
			fail.Message = fail.Error
			render.Status(r, status)
			render.JSON(w, r, fail)
		})
	}
}

// keyMatches compares against every key so timing does not reveal which
// one matched.
func keyMatches(presented []byte, keys [][]byte) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(presented, k)
	}
	return match == 1
}
