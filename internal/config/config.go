// Package config provides centralized configuration management for the application.
// It loads configuration from an optional TOML file and environment variables
// with sensible defaults, and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// Every setting can be configured via environment variables; the same keys
// can be set in the TOML file named by CONTACTCARD_CONFIG.
type Config struct {
	Server   ServerConfig    `toml:"server"`
	Photo    PhotoConfig     `toml:"photo"`
	Export   ExportConfig    `toml:"export"`
	Convert  ConvertConfig   `toml:"convert"`
	Rate     RateLimitConfig `toml:"rate"`
	Security SecurityConfig  `toml:"security"`
	Logging  LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" toml:"host" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" toml:"port" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" toml:"read_timeout" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" toml:"write_timeout" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" toml:"idle_timeout" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" toml:"shutdown_timeout" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m).
	// Photo fetches run inline, so this must cover a whole batch.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" toml:"request_timeout" default:"5m"`
}

// PhotoConfig holds remote photo fetch settings.
type PhotoConfig struct {
	// Enabled controls whether mapped photo URLs are fetched (default: true)
	Enabled bool `env:"PHOTO_ENABLED" toml:"enabled" default:"true"`

	// Timeout bounds a single photo fetch (default: 5s)
	Timeout time.Duration `env:"PHOTO_TIMEOUT" toml:"timeout" default:"5s"`

	// MaxBytes is the largest photo accepted (default: 10MB)
	MaxBytes int64 `env:"PHOTO_MAX_BYTES" toml:"max_bytes" default:"10485760"`
}

// ExportConfig holds defaults for writing vCards.
type ExportConfig struct {
	// Mode is per-contact or combined (default: per-contact)
	Mode string `env:"EXPORT_MODE" toml:"mode" default:"per-contact"`

	// OutputDir is the default destination directory for the CLI (default: .)
	OutputDir string `env:"EXPORT_OUTPUT_DIR" toml:"output_dir" default:"."`

	// EscapeValues applies RFC 6350 text escaping to values (default: false)
	EscapeValues bool `env:"VCARD_ESCAPE_VALUES" toml:"escape_values" default:"false"`
}

// ConvertConfig holds limits for conversions served over HTTP.
type ConvertConfig struct {
	// MaxFileSize is the maximum accepted CSV size in bytes (default: 10MB)
	MaxFileSize int64 `env:"CONVERT_MAX_FILE_SIZE" toml:"max_file_size" default:"10485760"`

	// MaxConcurrent is the maximum number of batches converted at once (default: 4)
	MaxConcurrent int `env:"CONVERT_MAX_CONCURRENT" toml:"max_concurrent" default:"4"`

	// MaxWaitTime is how long a request waits for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"CONVERT_MAX_WAIT_TIME" toml:"max_wait_time" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" toml:"enabled" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" toml:"requests_per_minute" default:"100"`

	// ConvertLimit is requests per minute for conversion endpoints (default: 10)
	ConvertLimit int `env:"RATE_LIMIT_CONVERT" toml:"convert_limit" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" toml:"trusted_proxies"`

	// RequireAPIKey rejects API requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" toml:"require_api_key" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS" toml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" toml:"level" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" toml:"format" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
