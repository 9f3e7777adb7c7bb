package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// API validation
	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("STOCKSYNC_API_URL (%q) must be an http(s) URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, "STOCKSYNC_API_TIMEOUT must be positive")
	}
	if c.API.LastRecordTTL < 0 {
		errs = append(errs, "STOCKSYNC_LAST_RECORD_TTL must be non-negative")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.Timeout < 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be non-negative")
	}

	// Store validation
	switch strings.ToLower(c.Store.Kind) {
	case "memory", "file":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when STORE_KIND is postgres")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			errs = append(errs, "REDIS_ADDR is required when STORE_KIND is redis")
		}
		if c.Store.RedisDB < 0 {
			errs = append(errs, "REDIS_DB must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_KIND (%q) must be one of: memory, file, postgres, redis", c.Store.Kind))
	}

	// Share validation
	if c.Share.Phone == "" {
		errs = append(errs, "SHARE_PHONE must not be empty")
	}
	for _, r := range c.Share.Phone {
		if r < '0' || r > '9' {
			errs = append(errs, fmt.Sprintf("SHARE_PHONE (%q) must contain digits only", c.Share.Phone))
			break
		}
	}
	validPolicies := map[string]bool{"replace": true, "accumulate": true}
	if !validPolicies[strings.ToLower(c.Share.Policy)] {
		errs = append(errs, fmt.Sprintf("RECONCILE_POLICY (%q) must be one of: replace, accumulate", c.Share.Policy))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, "LOG_MAX_SIZE_MB must be positive when LOG_FILE is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Connection strings are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("API: {BaseURL: %q, Timeout: %s}, ", c.API.BaseURL, c.API.Timeout))
	b.WriteString(fmt.Sprintf("Upload: {MaxFileSize: %d, Timeout: %s}, ", c.Upload.MaxFileSize, c.Upload.Timeout))
	dbURL := ""
	if c.Store.DatabaseURL != "" {
		dbURL = "[MASKED]"
	}
	b.WriteString(fmt.Sprintf("Store: {Kind: %q, Path: %q, DatabaseURL: %s, RedisAddr: %q}, ",
		c.Store.Kind, c.Store.Path, dbURL, c.Store.RedisAddr))
	b.WriteString(fmt.Sprintf("Share: {Phone: %q, Mobile: %v, Policy: %q}, ",
		c.Share.Phone, c.Share.Mobile, c.Share.Policy))
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d, APIKeys: %d configured}, ",
		c.Server.Host, c.Server.Port, len(c.Server.APIKeys)))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q, File: %q}",
		c.Logging.Level, c.Logging.Format, c.Logging.File))
	b.WriteString("}")
	return b.String()
}
