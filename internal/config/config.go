// Package config loads client settings from the environment. Command-line
// flags override individual fields after Load.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config centralizes runtime settings for the compression client.
type Config struct {
	ServiceURL string

	RequestTimeout   time.Duration
	RetrievalTimeout time.Duration
	RetrievalDelay   time.Duration
	ProgressInterval time.Duration

	OutputDir string
	MaxFiles  int
}

// Defaults.
const (
	DefaultServiceURL       = "http://localhost:8000"
	DefaultRequestTimeout   = 10 * time.Minute
	DefaultRetrievalTimeout = 5 * time.Minute
	DefaultRetrievalDelay   = 500 * time.Millisecond
	DefaultProgressInterval = 500 * time.Millisecond
	// DefaultMaxFiles is also the ceiling: a batch never holds more.
	DefaultMaxFiles = 50
)

// Load reads COMPRESS_* environment variables, applying defaults for unset
// ones. Malformed values are errors rather than silent fallbacks.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceURL: getEnv("COMPRESS_SERVICE_URL", DefaultServiceURL),
		OutputDir:  getEnv("COMPRESS_OUTPUT_DIR", "."),
	}

	var err error
	if cfg.RequestTimeout, err = getEnvDuration("COMPRESS_REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.RetrievalTimeout, err = getEnvDuration("COMPRESS_RETRIEVAL_TIMEOUT", DefaultRetrievalTimeout); err != nil {
		return nil, err
	}
	if cfg.RetrievalDelay, err = getEnvDuration("COMPRESS_RETRIEVAL_DELAY", DefaultRetrievalDelay); err != nil {
		return nil, err
	}
	if cfg.ProgressInterval, err = getEnvDuration("COMPRESS_PROGRESS_INTERVAL", DefaultProgressInterval); err != nil {
		return nil, err
	}
	if cfg.MaxFiles, err = getEnvInt("COMPRESS_MAX_FILES", DefaultMaxFiles); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values. Call it again after applying flag overrides.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("COMPRESS_SERVICE_URL must be an http(s) URL, got %q", c.ServiceURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RetrievalTimeout <= 0 {
		return fmt.Errorf("retrieval timeout must be positive, got %s", c.RetrievalTimeout)
	}
	if c.RetrievalDelay < 0 {
		return fmt.Errorf("retrieval delay must not be negative, got %s", c.RetrievalDelay)
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress interval must be positive, got %s", c.ProgressInterval)
	}
	if c.MaxFiles <= 0 || c.MaxFiles > DefaultMaxFiles {
		return fmt.Errorf("max files must be between 1 and %d, got %d", DefaultMaxFiles, c.MaxFiles)
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}
