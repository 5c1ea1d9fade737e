// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables (and an optional .env
// file) with defaults, and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Session  SessionConfig
	Pass     PassConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `envconfig:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request, body included (default: 60s)
	ReadTimeout time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig limits what a single upload request may carry.
type UploadConfig struct {
	// MaxRequestSize is the maximum multipart body size in bytes (default: 200MB)
	MaxRequestSize int64 `envconfig:"UPLOAD_MAX_REQUEST_SIZE" default:"209715200"`

	// MaxFiles is the maximum number of files per request (default: 20)
	MaxFiles int `envconfig:"UPLOAD_MAX_FILES" default:"20"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// TTL is how long an idle session is kept (default: 30m)
	TTL time.Duration `envconfig:"SESSION_TTL" default:"30m"`

	// SweepInterval is how often expired sessions are dropped (default: 1m)
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`

	CookieName string `envconfig:"SESSION_COOKIE_NAME" default:"sweeper_session"`

	// SecureCookie sets the Secure flag; enable behind HTTPS (default: false)
	SecureCookie bool `envconfig:"SESSION_SECURE_COOKIE" default:"false"`
}

// PassConfig bounds processing passes across all sessions.
type PassConfig struct {
	// MaxConcurrent is the maximum number of passes running at once (default: 8)
	MaxConcurrent int `envconfig:"PASS_MAX_CONCURRENT" default:"8"`

	// MaxWait is how long a pass waits for a slot (default: 10s)
	MaxWait time.Duration `envconfig:"PASS_MAX_WAIT" default:"10s"`

	// PreviewRows is the number of rows in a file preview (default: 5)
	PreviewRows int `envconfig:"PREVIEW_ROWS" default:"5"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerSecond is the sustained rate per IP (default: 10)
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`

	// Burst is the number of requests allowed above the sustained rate (default: 30)
	Burst int `envconfig:"RATE_LIMIT_BURST" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies List `envconfig:"TRUSTED_PROXIES"`

	// RequireAPIKey enforces X-API-Key on /api routes (default: false)
	RequireAPIKey bool `envconfig:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys List `envconfig:"API_KEYS"`

	// AllowedOrigins is a comma-separated list of CORS origins for /api
	AllowedOrigins List `envconfig:"CORS_ALLOWED_ORIGINS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `envconfig:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// AuditConfig selects where conversion events go. With no database URL
// events are only logged.
type AuditConfig struct {
	// DatabaseURL is a PostgreSQL connection string; DATABASE_URL is used when unset
	DatabaseURL string `envconfig:"AUDIT_DATABASE_URL"`

	// MaxConns is the maximum pool size (default: 4)
	MaxConns int `envconfig:"AUDIT_DB_MAX_CONNS" default:"4"`
}

// Enabled reports whether events are written to PostgreSQL.
func (c *AuditConfig) Enabled() bool { return c.DatabaseURL != "" }

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics (default: true)
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// List is a comma-separated environment value. Entries are trimmed and
// empty entries dropped.
type List []string

// Decode implements envconfig.Decoder.
func (l *List) Decode(value string) error {
	parts := strings.Split(value, ",")
	out := make(List, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}
