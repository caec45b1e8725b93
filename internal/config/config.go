package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
)

// Settings storage backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the ME-Dictionary server
type Config struct {
	// HTTPPort is the port the API server listens on
	HTTPPort string
	// PprofPort serves net/http/pprof; empty disables it
	PprofPort string
	// RedisURL is the connection URL for Redis
	RedisURL string
	// RedisEnabled turns on the Redis-backed publisher and lock
	RedisEnabled bool
	// SettingsBackend selects where prayer settings live: "memory" or "redis"
	SettingsBackend string
	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout time.Duration
	// Quiet configures the quiet-period watchers
	Quiet QuietConfig
	// Logging configuration
	Logging *logger.Config
}

// QuietConfig configures the per-user quiet-period watchers
type QuietConfig struct {
	// Cadence is a cron expression for recheck ticks, e.g. "* * * * *" or "@every 1m"
	Cadence string
	// Timezone is the IANA zone wall-clock times are read in; "Local" uses the host zone
	Timezone string
	// DefaultUsers get a watcher at boot (comma-separated)
	DefaultUsers []string
	// LockTTL bounds how long a crashed replica can hold a user's publish lock
	LockTTL time.Duration
}

// LoadConfig loads configuration from environment variables with sensible defaults
func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		PprofPort:       getEnv("PPROF_PORT", ""),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		RedisEnabled:    getEnvAsBool("REDIS_ENABLED", false),
		SettingsBackend: strings.ToLower(getEnv("SETTINGS_BACKEND", BackendMemory)),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Quiet: QuietConfig{
			Cadence:      getEnv("QUIET_CADENCE", "* * * * *"),
			Timezone:     getEnv("QUIET_TIMEZONE", "Local"),
			DefaultUsers: getEnvAsStringSlice("QUIET_DEFAULT_USERS", nil),
			LockTTL:      getEnvAsDuration("QUIET_LOCK_TTL", 30*time.Second),
		},
		Logging: loadLoggingConfig(),
	}

	if cfg.HTTPPort == "" {
		return nil, fmt.Errorf("HTTP_PORT cannot be empty")
	}
	switch cfg.SettingsBackend {
	case BackendMemory:
	case BackendRedis:
		if !cfg.RedisEnabled {
			return nil, fmt.Errorf("SETTINGS_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return nil, fmt.Errorf("SETTINGS_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, cfg.SettingsBackend)
	}
	if cfg.RedisEnabled && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL cannot be empty when REDIS_ENABLED=true")
	}
	if cfg.Quiet.Cadence == "" {
		return nil, fmt.Errorf("QUIET_CADENCE cannot be empty")
	}
	if cfg.Quiet.LockTTL <= 0 {
		return nil, fmt.Errorf("QUIET_LOCK_TTL must be positive")
	}
	if _, err := cfg.Quiet.Location(); err != nil {
		return nil, fmt.Errorf("invalid QUIET_TIMEZONE: %w", err)
	}

	if err := cfg.Logging.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	return cfg, nil
}

// Location resolves Timezone
func (q QuietConfig) Location() (*time.Location, error) {
	if q.Timezone == "" || q.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(q.Timezone)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsStringSlice retrieves an environment variable as a comma-separated list
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// loadLoggingConfig loads logging configuration from environment variables
func loadLoggingConfig() *logger.Config {
	cfg := logger.DefaultConfig()

	if level := getEnv("LOG_LEVEL", ""); level != "" {
		cfg.Level = logger.LogLevel(strings.ToLower(level))
	}
	if format := getEnv("LOG_FORMAT", ""); format != "" {
		cfg.Format = logger.LogFormat(strings.ToLower(format))
	}

	// Tier 1: Console
	cfg.Console.Enabled = getEnvAsBool("LOG_CONSOLE_ENABLED", cfg.Console.Enabled)
	cfg.Console.Color = getEnvAsBool("LOG_COLOR", cfg.Console.Color)

	// Tier 2: File
	cfg.File.Enabled = getEnvAsBool("LOG_FILE_ENABLED", cfg.File.Enabled)
	cfg.File.Path = getEnv("LOG_FILE_PATH", cfg.File.Path)
	cfg.File.MaxSizeMB = getEnvAsInt("LOG_FILE_MAX_SIZE_MB", cfg.File.MaxSizeMB)
	cfg.File.MaxBackups = getEnvAsInt("LOG_FILE_MAX_BACKUPS", cfg.File.MaxBackups)
	cfg.File.MaxAgeDays = getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", cfg.File.MaxAgeDays)
	cfg.File.Compress = getEnvAsBool("LOG_FILE_COMPRESS", cfg.File.Compress)
	cfg.File.BufferSize = getEnvAsInt("LOG_FILE_BUFFER_SIZE", cfg.File.BufferSize)
	cfg.File.BatchSize = getEnvAsInt("LOG_FILE_BATCH_SIZE", cfg.File.BatchSize)
	cfg.File.BatchInterval = getEnvAsDuration("LOG_FILE_BATCH_INTERVAL", cfg.File.BatchInterval)

	return cfg
}
