package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Options selects where log lines go.
type Options struct {
	Level  string
	File   string
	Stdout bool
}

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(newJSONHandler(os.Stdout, slog.LevelInfo)))
}

// Setup installs the process logger. JSON lines go to stdout and, when a file
// is configured, to that file as well. If the file cannot be opened the
// remaining outputs stay active and the error is returned.
func Setup(opts Options) (func() error, error) {
	level := ParseLevel(opts.Level)
	var handlers []slog.Handler
	if opts.Stdout {
		handlers = append(handlers, newJSONHandler(os.Stdout, level))
	}

	cleanup := func() error { return nil }
	var openErr error
	if strings.TrimSpace(opts.File) != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			openErr = fmt.Errorf("open log file %s: %w", opts.File, err)
		} else {
			handlers = append(handlers, newJSONHandler(f, level))
			cleanup = f.Close
		}
	}

	switch len(handlers) {
	case 0:
		current.Store(slog.New(newJSONHandler(io.Discard, level)))
	case 1:
		current.Store(slog.New(handlers[0]))
	default:
		current.Store(slog.New(slogmulti.Fanout(handlers...)))
	}
	return cleanup, openErr
}

// SetOutput points the logger at w. Intended for tests.
func SetOutput(w io.Writer) {
	current.Store(slog.New(newJSONHandler(w, slog.LevelDebug)))
}

// Logger returns the active slog logger.
func Logger() *slog.Logger {
	return current.Load()
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug writes a debug-level log line with the given fields.
func Debug(msg string, fields map[string]any) {
	write(slog.LevelDebug, msg, fields)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(slog.LevelInfo, msg, fields)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	write(slog.LevelWarn, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(slog.LevelError, msg, fields)
}

func write(level slog.Level, msg string, fields map[string]any) {
	logger := current.Load()
	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	logger.LogAttrs(ctx, level, msg, attrs...)
}

func newJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339))
			case slog.LevelKey:
				return slog.String("level", strings.ToLower(a.Value.String()))
			}
			return a
		},
	})
}
