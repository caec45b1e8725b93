package logger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ConsoleLogger implements Tier 1: structured console logging on log/slog.
// JSON output uses the slog JSON handler; text output is optionally colored.
type ConsoleLogger struct {
	handler slog.Handler
}

// lockedWriter serializes writes from concurrent handlers
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// NewConsoleLogger creates a new console logger
func NewConsoleLogger(config *Config) (*ConsoleLogger, error) {
	out := config.Console.Output
	if out == nil {
		out = os.Stdout
	}
	w := &lockedWriter{w: out}

	opts := &slog.HandlerOptions{Level: slogLevel(config.Level)}

	var handler slog.Handler
	switch {
	case config.Format == FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case config.Console.Color:
		handler = newColorTextHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return &ConsoleLogger{handler: handler}, nil
}

// log writes a log entry to console
func (cl *ConsoleLogger) log(level LogLevel, msg string, component Component, source LogSource, fields map[string]interface{}) {
	lvl := slogLevel(level)
	if !cl.handler.Enabled(context.Background(), lvl) {
		return
	}

	record := slog.NewRecord(time.Now(), lvl, msg, 0)
	if component != "" {
		record.AddAttrs(slog.String("component", string(component)))
	}
	if source != "" {
		record.AddAttrs(slog.String("log_source", string(source)))
	}

	// Stable attribute order keeps output diffable
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		record.AddAttrs(slog.Any(k, fields[k]))
	}

	// Nothing sensible to do with a console write error
	_ = cl.handler.Handle(context.Background(), record)
}

// Close is a no-op; console writes are synchronous
func (cl *ConsoleLogger) Close() error {
	return nil
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// colorTextHandler renders one JSON object per line with a colored level tag
type colorTextHandler struct {
	w     io.Writer
	opts  *slog.HandlerOptions
	attrs []slog.Attr

	debugColor *color.Color
	infoColor  *color.Color
	warnColor  *color.Color
	errorColor *color.Color
}

func newColorTextHandler(w io.Writer, opts *slog.HandlerOptions) *colorTextHandler {
	return &colorTextHandler{
		w:          w,
		opts:       opts,
		debugColor: color.New(color.FgCyan),
		infoColor:  color.New(color.FgGreen),
		warnColor:  color.New(color.FgYellow),
		errorColor: color.New(color.FgRed, color.Bold),
	}
}

// Enabled implements slog.Handler
func (h *colorTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts != nil && h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle implements slog.Handler
func (h *colorTextHandler) Handle(_ context.Context, r slog.Record) error {
	var tag string
	switch {
	case r.Level >= slog.LevelError:
		tag = h.errorColor.Sprint("ERROR")
	case r.Level >= slog.LevelWarn:
		tag = h.warnColor.Sprint("WARN")
	case r.Level >= slog.LevelInfo:
		tag = h.infoColor.Sprint("INFO")
	default:
		tag = h.debugColor.Sprint("DEBUG")
	}

	attrs := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	body, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	line := r.Time.Format(time.RFC3339) + " " + tag + " " + r.Message + " " + string(body) + "\n"
	_, err = io.WriteString(h.w, line)
	return err
}

// WithAttrs implements slog.Handler
func (h *colorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *colorTextHandler) WithGroup(string) slog.Handler {
	return h
}
