package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct fills the tagged fields of v, descending into nested structs.
// It keeps going after a bad value so one run reports every problem.
//
// Tags:
//
//	env      variable name
//	envAlt   variable consulted when env is unset
//	default  value used when neither is set
//	required "true" makes an unset variable an error
//	unit     "bytes" accepts sizes such as "200MB" or "1.5 GiB"
func loadStruct(v reflect.Value, getenv func(string) string) error {
	var errs []error

	for i := range v.NumField() {
		field, fv := v.Type().Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if fv.Kind() == reflect.Struct {
			if err := loadStruct(fv, getenv); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		raw, ok := lookup(field.Tag, getenv)
		if !ok {
			errs = append(errs, fmt.Errorf("%s must be set", name))
			continue
		}
		if raw == "" {
			continue
		}

		if err := assign(fv, raw, field.Tag.Get("unit")); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", name, raw, err))
		}
	}

	return errors.Join(errs...)
}

// lookup resolves a field's raw value from its env, envAlt and default
// tags. ok is false only for an unset required variable.
func lookup(tag reflect.StructTag, getenv func(string) string) (raw string, ok bool) {
	for _, key := range []string{"env", "envAlt"} {
		if name := tag.Get(key); name != "" {
			if raw = getenv(name); raw != "" {
				return raw, true
			}
		}
	}
	if tag.Get("required") == "true" {
		return "", false
	}
	return tag.Get("default"), true
}

var durationType = reflect.TypeFor[time.Duration]()

// assign parses raw into fv according to its kind.
func assign(fv reflect.Value, raw, unit string) error {
	switch kind := fv.Kind(); {
	case fv.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("not a duration: %w", err)
		}
		fv.SetInt(int64(d))

	case kind == reflect.Int || kind == reflect.Int64:
		var n int64
		var err error
		if unit == "bytes" {
			var u uint64
			u, err = humanize.ParseBytes(raw)
			n = int64(u)
		} else {
			n, err = strconv.ParseInt(raw, 10, 64)
		}
		if err != nil {
			return fmt.Errorf("not a number: %w", err)
		}
		fv.SetInt(n)

	case kind == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("not a boolean: %w", err)
		}
		fv.SetBool(b)

	case kind == reflect.String:
		fv.SetString(raw)

	case kind == reflect.Slice && fv.Type().Elem().Kind() == reflect.String:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		fv.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("cannot load field of type %s", fv.Type())
	}
	return nil
}

// Validate reports every setting that is out of range, one per line.
func (c *Config) Validate() error {
	level := strings.ToLower(c.Logging.Level)
	format := strings.ToLower(c.Logging.Format)

	rules := []struct {
		broken bool
		msg    string
	}{
		{c.Server.Port <= 0 || c.Server.Port > 65535, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port)},
		{c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0, "SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must be non-negative"},
		{c.Server.ShutdownTimeout <= 0, "SERVER_SHUTDOWN_TIMEOUT must be positive"},
		{c.Server.RequestTimeout <= 0, "SERVER_REQUEST_TIMEOUT must be positive"},

		{c.Upload.MaxFileSize <= 0, "UPLOAD_MAX_FILE_SIZE must be positive"},
		{c.Upload.MaxFiles <= 0, "UPLOAD_MAX_FILES must be positive"},
		{c.Upload.MaxConcurrent <= 0, "UPLOAD_MAX_CONCURRENT must be positive"},
		{c.Upload.MaxWaitTime <= 0, "UPLOAD_MAX_WAIT_TIME must be positive"},

		{c.Session.TTL <= 0, "SESSION_TTL must be positive"},
		{c.Session.SweepInterval <= 0, "SESSION_SWEEP_INTERVAL must be positive"},
		{c.Session.CookieName == "", "SESSION_COOKIE_NAME must not be empty"},
		{c.Session.MaxFiles <= 0, "SESSION_MAX_FILES must be positive"},

		{c.Display.PreviewRows <= 0, "DISPLAY_PREVIEW_ROWS must be positive"},
		{c.Display.ChartSeries <= 0, "DISPLAY_CHART_SERIES must be positive"},
		{c.Display.ChartBars < 0, "DISPLAY_CHART_BARS must be non-negative"},

		{c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is on"},
		{c.Rate.Enabled && c.Rate.Burst <= 0, "RATE_LIMIT_BURST must be positive when rate limiting is on"},

		{c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0, "REQUIRE_API_KEY is set but API_KEYS is empty"},

		{level != "debug" && level != "info" && level != "warn" && level != "error",
			fmt.Sprintf("LOG_LEVEL (%q) must be debug, info, warn or error", c.Logging.Level)},
		{format != "text" && format != "json", fmt.Sprintf("LOG_FORMAT (%q) must be text or json", c.Logging.Format)},

		{c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/"), fmt.Sprintf("METRICS_PATH (%q) must start with /", c.Metrics.Path)},
	}

	var broken []string
	for _, r := range rules {
		if r.broken {
			broken = append(broken, r.msg)
		}
	}
	if len(broken) == 0 {
		return nil
	}
	return fmt.Errorf("invalid settings:\n  - %s", strings.Join(broken, "\n  - "))
}

// String returns a safe string representation of the config for logging.
// API keys are never included.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %s, MaxFiles: %d, MaxConcurrent: %d}, ",
		humanize.IBytes(uint64(c.Upload.MaxFileSize)), c.Upload.MaxFiles, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Session: {TTL: %s, MaxFiles: %d}, ", c.Session.TTL, c.Session.MaxFiles)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
