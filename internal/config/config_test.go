package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// envMap returns a lookup function backed by vars.
func envMap(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Upload.MaxFileSize != 200<<20 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 200<<20)
	}
	if cfg.Session.CookieName != "sweeper_session" {
		t.Errorf("Session.CookieName = %q, want %q", cfg.Session.CookieName, "sweeper_session")
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("Session.TTL = %v, want %v", cfg.Session.TTL, time.Hour)
	}
	if cfg.Display.PreviewRows != 5 || cfg.Display.ChartSeries != 2 {
		t.Errorf("Display = %+v, want 5 preview rows and 2 chart series", cfg.Display)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled at /metrics", cfg.Metrics)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"SERVER_PORT":           "9090",
		"UPLOAD_MAX_CONCURRENT": "10",
		"UPLOAD_MAX_FILE_SIZE":  "5MB",
		"LOG_LEVEL":             "debug",
		"SESSION_TTL":           "15m",
		"RATE_LIMIT_ENABLED":    "false",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Upload.MaxConcurrent != 10 {
		t.Errorf("Upload.MaxConcurrent = %d, want %d", cfg.Upload.MaxConcurrent, 10)
	}
	if cfg.Upload.MaxFileSize != 5_000_000 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 5_000_000)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Session.TTL != 15*time.Minute {
		t.Errorf("Session.TTL = %v, want %v", cfg.Session.TTL, 15*time.Minute)
	}
	if cfg.Rate.Enabled {
		t.Error("Rate.Enabled = true, want false")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{"PORT": "3000"}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 3000)
	}

	cfg, err = LoadFrom(envMap(map[string]string{"PORT": "3000", "SERVER_PORT": "4000"}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("primary variable should win: Server.Port = %d, want %d", cfg.Server.Port, 4000)
	}
}

func TestLoadStruct_Required(t *testing.T) {
	var target struct {
		Key   string `env:"KEY" required:"true"`
		Other string `env:"OTHER" required:"true"`
	}

	err := loadStruct(reflect.ValueOf(&target).Elem(), envMap(map[string]string{"OTHER": "x"}))
	if err == nil {
		t.Fatal("loadStruct() expected error for missing KEY")
	}
	if !strings.Contains(err.Error(), "KEY") {
		t.Errorf("error should mention KEY: %v", err)
	}
	if target.Other != "x" {
		t.Errorf("Other = %q, want %q", target.Other, "x")
	}
}

func TestLoad_ReportsEveryBadValue(t *testing.T) {
	_, err := LoadFrom(envMap(map[string]string{
		"SERVER_PORT":          "eighty",
		"SESSION_TTL":          "forever",
		"UPLOAD_MAX_FILE_SIZE": "lots",
	}))
	if err == nil {
		t.Fatal("LoadFrom() expected error")
	}
	for _, name := range []string{"SERVER_PORT", "SESSION_TTL", "UPLOAD_MAX_FILE_SIZE"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s: %v", name, err)
		}
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	cfg, err := LoadFrom(envMap(map[string]string{
		"TRUSTED_PROXIES": "10.0.0.0/8, 172.16.0.0/12 , ,192.168.0.0/16",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if !reflect.DeepEqual(cfg.Security.TrustedProxies, expected) {
		t.Errorf("TrustedProxies = %q, want %q", cfg.Security.TrustedProxies, expected)
	}
}

// validConfig returns a config that passes Validate.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFrom(envMap(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		mention string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"zero session ttl", func(c *Config) { c.Session.TTL = 0 }, "SESSION_TTL"},
		{"empty cookie name", func(c *Config) { c.Session.CookieName = "" }, "SESSION_COOKIE_NAME"},
		{"zero preview rows", func(c *Config) { c.Display.PreviewRows = 0 }, "DISPLAY_PREVIEW_ROWS"},
		{"zero burst", func(c *Config) { c.Rate.Burst = 0 }, "RATE_LIMIT_BURST"},
		{"api key required without keys", func(c *Config) { c.Security.RequireAPIKey = true }, "API_KEYS"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "METRICS_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error should mention %s: %v", tt.mention, err)
			}
		})
	}
}

func TestValidate_DisabledRateLimitSkipsChecks(t *testing.T) {
	cfg := validConfig(t)
	cfg.Rate.Enabled = false
	cfg.Rate.RequestsPerMinute = 0
	cfg.Rate.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"::1", 443, "[::1]:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		if got := cfg.Addr(); got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString_OmitsAPIKeys(t *testing.T) {
	cfg := validConfig(t)
	cfg.Security.APIKeys = []string{"super-secret-key"}

	str := cfg.String()
	if strings.Contains(str, "super-secret-key") {
		t.Error("String() should not include API keys")
	}
	if !strings.Contains(str, "1 configured") {
		t.Errorf("String() should count API keys: %s", str)
	}
}
