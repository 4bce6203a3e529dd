package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(FileEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Photo.Timeout != 5*time.Second {
		t.Errorf("Photo.Timeout = %v, want %v", cfg.Photo.Timeout, 5*time.Second)
	}
	if !cfg.Photo.Enabled {
		t.Error("Photo.Enabled = false, want true")
	}
	if cfg.Export.Mode != "per-contact" {
		t.Errorf("Export.Mode = %q, want %q", cfg.Export.Mode, "per-contact")
	}
	if cfg.Export.EscapeValues {
		t.Error("Export.EscapeValues = true, want false")
	}
	if cfg.Convert.MaxConcurrent != 4 {
		t.Errorf("Convert.MaxConcurrent = %d, want %d", cfg.Convert.MaxConcurrent, 4)
	}
	if cfg.Convert.MaxFileSize != 10485760 {
		t.Errorf("Convert.MaxFileSize = %d, want %d", cfg.Convert.MaxFileSize, 10485760)
	}
	if cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 100)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("EXPORT_MODE", "combined")
	t.Setenv("PHOTO_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Export.Mode != "combined" {
		t.Errorf("Export.Mode = %q, want %q", cfg.Export.Mode, "combined")
	}
	if cfg.Photo.Enabled {
		t.Error("Photo.Enabled = true, want false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_Duration(t *testing.T) {
	t.Setenv("PHOTO_TIMEOUT", "1500ms")
	t.Setenv("CONVERT_MAX_WAIT_TIME", "1m30s")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Photo.Timeout != 1500*time.Millisecond {
		t.Errorf("Photo.Timeout = %v, want %v", cfg.Photo.Timeout, 1500*time.Millisecond)
	}
	if cfg.Convert.MaxWaitTime != 90*time.Second {
		t.Errorf("Convert.MaxWaitTime = %v, want %v", cfg.Convert.MaxWaitTime, 90*time.Second)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("PHOTO_TIMEOUT", "soon")

	if _, err := LoadFile(""); err == nil {
		t.Fatal("LoadFile() expected error for invalid duration")
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12 , 192.168.0.0/16")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}
}

func TestLoadFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contactcard.toml")
	content := `
[server]
port = 9191

[photo]
timeout = "2s"
enabled = false

[export]
mode = "combined"
output_dir = "/tmp/cards"

[security]
require_api_key = true
api_keys = ["k1", "k2"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9191)
	}
	if cfg.Photo.Timeout != 2*time.Second {
		t.Errorf("Photo.Timeout = %v, want %v", cfg.Photo.Timeout, 2*time.Second)
	}
	if cfg.Photo.Enabled {
		t.Error("Photo.Enabled = true, want false")
	}
	if cfg.Export.OutputDir != "/tmp/cards" {
		t.Errorf("Export.OutputDir = %q, want %q", cfg.Export.OutputDir, "/tmp/cards")
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[1] != "k2" {
		t.Errorf("Security.APIKeys = %v, want [k1 k2]", cfg.Security.APIKeys)
	}
	// Untouched keys keep their defaults
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contactcard.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9191\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 7070)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("LoadFile() expected error for missing file")
	}
}

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Photo:   PhotoConfig{Enabled: true, Timeout: 5 * time.Second, MaxBytes: 1},
		Export:  ExportConfig{Mode: "per-contact"},
		Convert: ConvertConfig{MaxFileSize: 1, MaxConcurrent: 1, MaxWaitTime: time.Second},
		Rate:    RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ConvertLimit: 10},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"zero photo timeout", func(c *Config) { c.Photo.Timeout = 0 }, "PHOTO_TIMEOUT"},
		{"unknown export mode", func(c *Config) { c.Export.Mode = "zip" }, "EXPORT_MODE"},
		{"zero concurrency", func(c *Config) { c.Convert.MaxConcurrent = 0 }, "CONVERT_MAX_CONCURRENT"},
		{"api key required without keys", func(c *Config) { c.Security.RequireAPIKey = true }, "REQUIRE_API_KEY"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("error should mention %s: %v", tt.wantKey, err)
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() on valid config = %v", err)
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
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		if got := cfg.Addr(); got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString_MasksAPIKeys(t *testing.T) {
	cfg := validConfig()
	cfg.Security.APIKeys = []string{"super-secret"}

	str := cfg.String()
	if strings.Contains(str, "super-secret") {
		t.Error("String() should mask API keys")
	}
	if !strings.Contains(str, "MASKED") {
		t.Error("String() should contain MASKED placeholder")
	}
}
