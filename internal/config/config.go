// Package config loads the server's settings from environment variables.
// Defaults live in struct tags; Load validates the result so a bad
// deployment fails at startup instead of on first use.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Session  SessionConfig
	Display  DisplayConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig covers the HTTP listener.
type ServerConfig struct {
	// Host is the bind interface
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port falls back to PORT for platforms that set it
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout bounds reading a request, upload body included
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout bounds writing a response, downloads included
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds the graceful drain on SIGTERM
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout cancels a request's context
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds upload and processing limits.
type UploadConfig struct {
	// MaxFileSize is the maximum size of one file; accepts "200MiB" style sizes
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"200MiB" unit:"bytes"`

	// MaxFiles is the maximum number of files in one upload request
	MaxFiles int `env:"UPLOAD_MAX_FILES" default:"20"`

	// MaxConcurrent is the maximum number of files parsed or exported at once
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a processing slot
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// SessionConfig holds in-memory session settings.
type SessionConfig struct {
	// TTL is how long an idle session is kept
	TTL time.Duration `env:"SESSION_TTL" default:"1h"`

	// SweepInterval is how often expired sessions are dropped
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1m"`

	// CookieName is the name of the session cookie
	CookieName string `env:"SESSION_COOKIE_NAME" default:"sweeper_session"`

	// CookieSecure marks the session cookie Secure; enable behind HTTPS
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`

	// MaxFiles is the maximum number of files one session can hold
	MaxFiles int `env:"SESSION_MAX_FILES" default:"50"`
}

// DisplayConfig controls how much data the UI shows.
type DisplayConfig struct {
	// PreviewRows is the default number of preview rows
	PreviewRows int `env:"DISPLAY_PREVIEW_ROWS" default:"5"`

	// ChartSeries is the number of numeric columns charted
	ChartSeries int `env:"DISPLAY_CHART_SERIES" default:"2"`

	// ChartBars is the maximum number of rows charted; 0 means all
	ChartBars int `env:"DISPLAY_CHART_BARS" default:"200"`
}

// RateLimitConfig is the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// Burst is the number of requests allowed above the sustained rate
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig covers proxies, headers and API keys.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey requires X-API-Key on /api routes
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is text or json
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr is the listen address, host:port.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
