// Package config provides centralized configuration management for stocksync.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	API     APIConfig
	Upload  UploadConfig
	Store   StoreConfig
	Share   ShareConfig
	Server  ServerConfig
	Logging LoggingConfig
}

// APIConfig holds comparison service settings.
type APIConfig struct {
	// BaseURL is the comparison service root (default: the hosted backend)
	BaseURL string `env:"STOCKSYNC_API_URL" envAlt:"API_URL" default:"https://backend-jtl6.onrender.com"`

	// Timeout bounds last-record and delete-table calls (default: 30s)
	Timeout time.Duration `env:"STOCKSYNC_API_TIMEOUT" default:"30s"`

	// LastRecordTTL caches last-record lookups; 0 disables the cache (default: 1m)
	LastRecordTTL time.Duration `env:"STOCKSYNC_LAST_RECORD_TTL" default:"1m"`
}

// UploadConfig holds spreadsheet upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// Timeout is the maximum duration for a single upload, 0 for none (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`

	// AllowedExtensions lists accepted file extensions
	AllowedExtensions []string `env:"UPLOAD_ALLOWED_EXTENSIONS" default:".xlsx,.xls,.csv"`
}

// StoreConfig selects and configures the local record store backend.
type StoreConfig struct {
	// Kind is the backend: memory, file, postgres or redis (default: file)
	Kind string `env:"STORE_KIND" default:"file"`

	// Path is the state file for the file backend (default: ~/.stocksync_state.json)
	Path string `env:"STORE_PATH"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Table is the postgres table name (default: stocksync_state)
	Table string `env:"STORE_TABLE" default:"stocksync_state"`

	// RedisAddr is host:port of the redis backend
	RedisAddr string `env:"REDIS_ADDR"`

	// RedisDB is the redis database number (default: 0)
	RedisDB int `env:"REDIS_DB" default:"0"`

	// Prefix namespaces redis keys (default: stocksync:)
	Prefix string `env:"STORE_PREFIX" default:"stocksync:"`
}

// ShareConfig holds WhatsApp share and reconciliation settings.
type ShareConfig struct {
	// Phone is the recipient of locally built share links
	Phone string `env:"SHARE_PHONE" default:"919359748376"`

	// Mobile builds whatsapp:// links instead of web.whatsapp.com links (default: false)
	Mobile bool `env:"SHARE_MOBILE" default:"false"`

	// Policy is replace or accumulate (default: replace)
	Policy string `env:"RECONCILE_POLICY" default:"replace"`
}

// ServerConfig holds local web server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 5m)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"5m"`

	// WriteTimeout is the maximum duration for writing response (default: 0, uploads can be slow)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// APIKeys is a comma-separated list of keys accepted in X-API-Key.
	// Empty leaves the local API open.
	APIKeys []string `env:"SERVER_API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File sends logs to a rotating file instead of stderr
	File string `env:"LOG_FILE"`

	// MaxSizeMB is the size at which the log file rotates (default: 10)
	MaxSizeMB int `env:"LOG_MAX_SIZE_MB" default:"10"`

	// MaxBackups is the number of rotated files kept (default: 3)
	MaxBackups int `env:"LOG_MAX_BACKUPS" default:"3"`

	// MaxAgeDays is how long rotated files are kept (default: 28)
	MaxAgeDays int `env:"LOG_MAX_AGE_DAYS" default:"28"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
