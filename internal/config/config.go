// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends selectable with STORAGE.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required unless
	// Storage is "memory".
	DatabaseURL string

	// Storage selects the PollRepo implementation: "postgres" (default) or
	// "memory". The memory store loses everything on restart.
	Storage string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:3000"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// BaseURL is the public origin put in front of every /e/<id>/<token>
	// link. Defaults to "http://localhost:3000".
	BaseURL string

	// RateLimitMax requests are allowed per client and path in every
	// RateLimitWindow. Defaults to 30 per 1m.
	RateLimitMax    int
	RateLimitWindow time.Duration

	// MaxBodyBytes caps request bodies on /api routes. Defaults to 64 KiB.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, joined
// with any variables that are set but malformed.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Storage:     strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),
	}

	var (
		missing []string
		errs    []error
		err     error
	)

	switch cfg.Storage {
	case StoragePostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StorageMemory:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	default:
		errs = append(errs, fmt.Errorf("STORAGE: unknown backend %q (want %s or %s)", cfg.Storage, StoragePostgres, StorageMemory))
	}

	if cfg.RateLimitMax, err = getPositiveInt("RATE_LIMIT_MAX", 30); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		errs = append(errs, err)
	}
	maxBody, err := getPositiveInt("MAX_BODY_BYTES", 64<<10)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MaxBodyBytes = int64(maxBody)

	if len(missing) > 0 {
		errs = append([]error{fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))}, errs...)
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getPositiveInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: want a positive integer, got %q", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: want a positive duration such as 1m, got %q", key, v)
	}
	return d, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
