package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"
)

var (
	outMu sync.RWMutex
	out   io.Writer
)

// SetOutput redirects log lines to w. A nil writer restores os.Stdout.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	out = w
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

func writer() io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	if out == nil {
		return os.Stdout
	}
	return out
}

func write(level slog.Level, msg string, fields map[string]any) {
	handler := slog.NewJSONHandler(writer(), &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: replaceAttr,
	})

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
	slog.New(handler).LogAttrs(context.Background(), level, msg, attrs...)
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339))
	case slog.LevelKey:
		switch a.Value.Any().(slog.Level) {
		case slog.LevelError:
			return slog.String("level", "error")
		case slog.LevelWarn:
			return slog.String("level", "warn")
		case slog.LevelDebug:
			return slog.String("level", "debug")
		default:
			return slog.String("level", "info")
		}
	}
	return a
}
