// Package logger provides the structured, multi-tier logger used across the service.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger is the main interface for logging throughout the application.
// Variadic args are key/value pairs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	DebugContext(ctx context.Context, msg string, args ...interface{})
	InfoContext(ctx context.Context, msg string, args ...interface{})
	WarnContext(ctx context.Context, msg string, args ...interface{})
	ErrorContext(ctx context.Context, msg string, args ...interface{})

	// WithFields returns a logger with additional fields
	WithFields(fields map[string]interface{}) Logger

	// WithComponent returns a logger tagged with a component
	WithComponent(component Component) Logger

	// WithSource returns a logger tagged with a log source
	WithSource(source LogSource) Logger

	// Close flushes and closes all log destinations
	Close() error
}

// LogEntry is the on-disk representation of a log line
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Component Component              `json:"component,omitempty"`
	Source    LogSource              `json:"log_source,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

func newEntry(level LogLevel, msg string, component Component, source LogSource, fields map[string]interface{}) *LogEntry {
	entry := &LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   msg,
		Component: component,
		Source:    source,
		Fields:    fields,
	}
	if v, ok := fields["user_id"].(string); ok {
		entry.UserID = v
	}
	if v, ok := fields["request_id"].(string); ok {
		entry.RequestID = v
	}
	if err, ok := fields["error"]; ok && err != nil {
		entry.Error = fmt.Sprintf("%v", err)
	}
	return entry
}

type ctxKey string

const (
	userIDKey    ctxKey = "user_id"
	requestIDKey ctxKey = "request_id"
)

// ContextWithUserID attaches a user id that *Context log calls pick up
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// ContextWithRequestID attaches a request id that *Context log calls pick up
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// MultiLogger implements Logger by dispatching to every enabled tier
type MultiLogger struct {
	config     *Config
	console    *ConsoleLogger
	file       *FileLogger
	baseFields map[string]interface{}
	component  Component
	source     LogSource
}

// NewLogger creates a new multi-tier logger based on configuration
func NewLogger(config *Config) (*MultiLogger, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	ml := &MultiLogger{
		config:     config,
		baseFields: map[string]interface{}{},
	}

	if config.Console.Enabled {
		console, err := NewConsoleLogger(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create console logger: %w", err)
		}
		ml.console = console
	}

	// File logging is optional; a bad path must not keep the service down
	if config.File.Enabled {
		file, err := NewFileLogger(config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to create file logger: %v\n", err)
		} else {
			ml.file = file
		}
	}

	return ml, nil
}

func (ml *MultiLogger) Debug(msg string, args ...interface{}) {
	ml.log(context.Background(), LevelDebug, msg, args)
}

func (ml *MultiLogger) Info(msg string, args ...interface{}) {
	ml.log(context.Background(), LevelInfo, msg, args)
}

func (ml *MultiLogger) Warn(msg string, args ...interface{}) {
	ml.log(context.Background(), LevelWarn, msg, args)
}

func (ml *MultiLogger) Error(msg string, args ...interface{}) {
	ml.log(context.Background(), LevelError, msg, args)
}

func (ml *MultiLogger) DebugContext(ctx context.Context, msg string, args ...interface{}) {
	ml.log(ctx, LevelDebug, msg, args)
}

func (ml *MultiLogger) InfoContext(ctx context.Context, msg string, args ...interface{}) {
	ml.log(ctx, LevelInfo, msg, args)
}

func (ml *MultiLogger) WarnContext(ctx context.Context, msg string, args ...interface{}) {
	ml.log(ctx, LevelWarn, msg, args)
}

func (ml *MultiLogger) ErrorContext(ctx context.Context, msg string, args ...interface{}) {
	ml.log(ctx, LevelError, msg, args)
}

// WithFields returns a new logger with additional fields
func (ml *MultiLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(ml.baseFields)+len(fields))
	for k, v := range ml.baseFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	clone := *ml
	clone.baseFields = merged
	return &clone
}

// WithComponent returns a new logger tagged with a component
func (ml *MultiLogger) WithComponent(component Component) Logger {
	clone := *ml
	clone.component = component
	return &clone
}

// WithSource returns a new logger tagged with a log source
func (ml *MultiLogger) WithSource(source LogSource) Logger {
	clone := *ml
	clone.source = source
	return &clone
}

// Close flushes and closes all log destinations. Derived loggers share
// tiers with their parent, so only the root logger should be closed.
func (ml *MultiLogger) Close() error {
	var errs []string

	if ml.console != nil {
		if err := ml.console.Close(); err != nil {
			errs = append(errs, "console close: "+err.Error())
		}
	}
	if ml.file != nil {
		if err := ml.file.Close(); err != nil {
			errs = append(errs, "file close: "+err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing logger: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (ml *MultiLogger) log(ctx context.Context, level LogLevel, msg string, args []interface{}) {
	if level.rank() < ml.config.Level.rank() {
		return
	}

	fields := make(map[string]interface{}, len(ml.baseFields)+len(args)/2+2)
	for k, v := range ml.baseFields {
		fields[k] = v
	}
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprintf("%v", args[i])] = args[i+1]
	}
	if err, ok := fields["error"].(error); ok {
		fields["error"] = err.Error()
	}

	if ctx != nil {
		if v, ok := ctx.Value(userIDKey).(string); ok {
			fields["user_id"] = v
		}
		if v, ok := ctx.Value(requestIDKey).(string); ok {
			fields["request_id"] = v
		}
	}

	if ml.console != nil {
		ml.console.log(level, msg, ml.component, ml.source, fields)
	}
	if ml.file != nil {
		ml.file.log(level, msg, ml.component, ml.source, fields)
	}
}

// Rotate reopens the log file, moving the current one aside. It is a
// no-op without a file tier.
func (ml *MultiLogger) Rotate() error {
	if ml.file == nil {
		return nil
	}
	return ml.file.Rotate()
}

// NoOpLogger is a logger that does nothing (for testing)
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{})                            {}
func (n *NoOpLogger) Info(msg string, args ...interface{})                             {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})                             {}
func (n *NoOpLogger) Error(msg string, args ...interface{})                            {}
func (n *NoOpLogger) DebugContext(ctx context.Context, msg string, args ...interface{}) {}
func (n *NoOpLogger) InfoContext(ctx context.Context, msg string, args ...interface{})  {}
func (n *NoOpLogger) WarnContext(ctx context.Context, msg string, args ...interface{})  {}
func (n *NoOpLogger) ErrorContext(ctx context.Context, msg string, args ...interface{}) {}
func (n *NoOpLogger) WithFields(fields map[string]interface{}) Logger                  { return n }
func (n *NoOpLogger) WithComponent(component Component) Logger                         { return n }
func (n *NoOpLogger) WithSource(source LogSource) Logger                               { return n }
func (n *NoOpLogger) Close() error                                                     { return nil }

var _ Logger = (*NoOpLogger)(nil)

var (
	defaultLogger Logger = &NoOpLogger{}
	loggerMu      sync.RWMutex
)

// SetDefault sets the process-wide fallback logger
func SetDefault(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = l
}

// Default returns the process-wide fallback logger
func Default() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return defaultLogger
}

// OrDefault returns l, or Default() when l is nil
func OrDefault(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}

// Writer adapts a Logger to io.Writer, e.g. for http.Server.ErrorLog
type Writer struct {
	logger Logger
	level  LogLevel
}

func NewWriter(logger Logger, level LogLevel) io.Writer {
	return &Writer{logger: logger, level: level}
}

func (w *Writer) Write(p []byte) (n int, err error) {
	msg := strings.TrimRight(string(p), "\n")
	switch w.level {
	case LevelDebug:
		w.logger.Debug(msg)
	case LevelWarn:
		w.logger.Warn(msg)
	case LevelError:
		w.logger.Error(msg)
	default:
		w.logger.Info(msg)
	}
	return len(p), nil
}
