// Package logger provides process-wide structured logging for intentflow.
// Messages carry slog key/value pairs; the attribute helpers in attrs.go keep
// field names consistent across packages.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu     sync.RWMutex
	level  = new(slog.LevelVar)
	output io.Writer = os.Stderr
	format           = FormatText
	logger           = build()
)

// build creates a logger for the current output and format (caller must hold lock).
func build() *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// SetVerbose switches between debug and info level.
func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

// IsVerbose returns true if debug messages are emitted.
func IsVerbose() bool {
	return level.Level() <= slog.LevelDebug
}

// SetLevel sets the minimum level by name: debug, info, warn or error.
func SetLevel(name string) error {
	return level.UnmarshalText([]byte(strings.ToUpper(name)))
}

// SetFormat selects text or JSON output. Unknown formats fall back to text.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	format = strings.ToLower(f)
	logger = build()
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	logger = build()
}

// Slog returns the underlying structured logger.
func Slog() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Slog().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Slog().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	Slog().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Slog().Error(msg, args...)
}
