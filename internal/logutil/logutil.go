// Package logutil provides the JSON structured logger used across the client,
// the CLI and the stub backend, plus an observe.Sink that writes to it.
package logutil

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var std atomic.Pointer[slog.Logger]

func init() {
	std.Store(New(os.Stderr, "info"))
}

// New returns a JSON logger writing to w at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// SetDefault replaces the package logger used by Info and Error.
func SetDefault(l *slog.Logger) {
	if l != nil {
		std.Store(l)
	}
}

// Default returns the package logger.
func Default() *slog.Logger {
	return std.Load()
}

// Info logs a structured info message.
func Info(msg string, fields map[string]interface{}) {
	std.Load().Info(msg, attrs(fields)...)
}

// Error logs a structured error message including the error string.
func Error(msg string, err error, fields map[string]interface{}) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	std.Load().Error(msg, args...)
}

func attrs(fields map[string]interface{}) []any {
	args := make([]any, 0, len(fields))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return args
}
