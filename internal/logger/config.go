package logger

import (
	"fmt"
	"io"
	"time"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// LogSource separates internal service logs from request-scoped logs
type LogSource string

const (
	LogSourceInternal LogSource = "medict_internal"
	LogSourceRequest  LogSource = "medict_request"
)

// Component identifies which part of the system generated the log
type Component string

const (
	ComponentAPI       Component = "api"
	ComponentScheduler Component = "scheduler"
	ComponentQuiet     Component = "quiet"
	ComponentSettings  Component = "settings"
	ComponentRedis     Component = "redis"
	ComponentLogger    Component = "logger"
)

// Config holds the logging configuration for all tiers
type Config struct {
	Level  LogLevel  `json:"level"`
	Format LogFormat `json:"format"`

	// Tier 1: Console
	Console ConsoleConfig `json:"console"`

	// Tier 2: rotating file
	File FileConfig `json:"file"`
}

// ConsoleConfig configures console logging (Tier 1)
type ConsoleConfig struct {
	Enabled bool `json:"enabled"`
	Color   bool `json:"color"` // text format only

	// Output defaults to os.Stdout when nil
	Output io.Writer `json:"-"`
}

// FileConfig configures file-based logging (Tier 2)
type FileConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`

	BufferSize    int           `json:"buffer_size"`    // entries queued before dropping
	BatchSize     int           `json:"batch_size"`     // entries per write batch
	BatchInterval time.Duration `json:"batch_interval"` // max delay before a partial batch is written
}

// DefaultConfig returns a default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Console: ConsoleConfig{
			Enabled: true,
			Color:   true,
		},
		File: FileConfig{
			Enabled:       false,
			Path:          "/var/log/medict/medict.log",
			MaxSizeMB:     50,
			MaxBackups:    5,
			MaxAgeDays:    14,
			Compress:      true,
			BufferSize:    4096,
			BatchSize:     64,
			BatchInterval: 200 * time.Millisecond,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	switch c.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	if c.File.Enabled {
		if c.File.Path == "" {
			return fmt.Errorf("file logging enabled but path is empty")
		}
		if c.File.MaxSizeMB <= 0 {
			return fmt.Errorf("file max size must be > 0")
		}
		if c.File.BatchSize <= 0 {
			return fmt.Errorf("file batch size must be > 0")
		}
		if c.File.BatchInterval <= 0 {
			return fmt.Errorf("file batch interval must be > 0")
		}
	}

	return nil
}

// rank orders levels for filtering
func (l LogLevel) rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}
