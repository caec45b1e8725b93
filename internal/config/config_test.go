package config

import (
	"testing"
	"time"

	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
)

// clearEnv blanks every variable LoadConfig reads so host settings don't leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_PORT", "PPROF_PORT", "REDIS_URL", "REDIS_ENABLED", "SETTINGS_BACKEND",
		"SHUTDOWN_TIMEOUT", "QUIET_CADENCE", "QUIET_TIMEZONE", "QUIET_DEFAULT_USERS",
		"QUIET_LOCK_TTL", "LOG_LEVEL", "LOG_FORMAT", "LOG_CONSOLE_ENABLED", "LOG_COLOR",
		"LOG_FILE_ENABLED", "LOG_FILE_PATH", "LOG_FILE_MAX_SIZE_MB",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.HTTPPort != "8080" {
		t.Errorf("Expected HTTP port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.RedisEnabled {
		t.Error("Expected Redis to be disabled by default")
	}
	if cfg.SettingsBackend != BackendMemory {
		t.Errorf("Expected memory backend, got %s", cfg.SettingsBackend)
	}
	if cfg.Quiet.Cadence != "* * * * *" {
		t.Errorf("Expected minute cadence, got %q", cfg.Quiet.Cadence)
	}
	if cfg.Quiet.LockTTL != 30*time.Second {
		t.Errorf("Expected 30s lock TTL, got %v", cfg.Quiet.LockTTL)
	}
	if len(cfg.Quiet.DefaultUsers) != 0 {
		t.Errorf("Expected no default users, got %v", cfg.Quiet.DefaultUsers)
	}
	if cfg.Logging.Level != logger.LevelInfo {
		t.Errorf("Expected info log level, got %s", cfg.Logging.Level)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("SETTINGS_BACKEND", "Redis")
	t.Setenv("QUIET_CADENCE", "@every 1m")
	t.Setenv("QUIET_TIMEZONE", "UTC")
	t.Setenv("QUIET_DEFAULT_USERS", "default-user, user-2 ,,")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.HTTPPort != "9090" {
		t.Errorf("Expected HTTP port 9090, got %s", cfg.HTTPPort)
	}
	if cfg.SettingsBackend != BackendRedis {
		t.Errorf("Expected redis backend, got %s", cfg.SettingsBackend)
	}
	if cfg.Quiet.Cadence != "@every 1m" {
		t.Errorf("Expected fixed cadence, got %q", cfg.Quiet.Cadence)
	}
	want := []string{"default-user", "user-2"}
	if len(cfg.Quiet.DefaultUsers) != len(want) {
		t.Fatalf("Expected users %v, got %v", want, cfg.Quiet.DefaultUsers)
	}
	for i := range want {
		if cfg.Quiet.DefaultUsers[i] != want[i] {
			t.Errorf("Expected user %q at %d, got %q", want[i], i, cfg.Quiet.DefaultUsers[i])
		}
	}
	loc, err := cfg.Quiet.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Expected UTC location, got %v (err %v)", loc, err)
	}
	if cfg.Logging.Level != logger.LevelDebug || cfg.Logging.Format != logger.FormatText {
		t.Errorf("Expected debug/text logging, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"SETTINGS_BACKEND": "sqlite"}},
		{"redis backend without redis", map[string]string{"SETTINGS_BACKEND": "redis"}},
		{"bad timezone", map[string]string{"QUIET_TIMEZONE": "Mars/Olympus"}},
		{"non-positive lock ttl", map[string]string{"QUIET_LOCK_TTL": "0s"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("MEDICT_TEST_INT", "not-a-number")
	if got := getEnvAsInt("MEDICT_TEST_INT", 7); got != 7 {
		t.Errorf("Expected fallback 7, got %d", got)
	}

	t.Setenv("MEDICT_TEST_DUR", "1m30s")
	if got := getEnvAsDuration("MEDICT_TEST_DUR", time.Second); got != 90*time.Second {
		t.Errorf("Expected 90s, got %v", got)
	}

	t.Setenv("MEDICT_TEST_BOOL", "yes")
	if got := getEnvAsBool("MEDICT_TEST_BOOL", true); !got {
		t.Error("Expected fallback true for unparsable bool")
	}

	t.Setenv("MEDICT_TEST_LIST", " , ")
	if got := getEnvAsStringSlice("MEDICT_TEST_LIST", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Errorf("Expected fallback list, got %v", got)
	}
}
