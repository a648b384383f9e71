// Package logger provides the leveled logging used across the engine and
// the CLI. It wraps log/slog so call sites stay as short as the rest of the
// corpus (logger.Info/logger.Error/logger.Debug) while output is structured.
package logger

import (
	"log/slog"
	"os"
)

var base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetLevel adjusts the minimum level emitted, used by the CLI when
// config.yaml sets log_level: debug.
func SetLevel(level slog.Level) {
	base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Info logs an informational line with optional structured fields.
func Info(msg string, args ...any) {
	base.Info(msg, args...)
}

// Debug logs a line only visible at debug level.
func Debug(msg string, args ...any) {
	base.Debug(msg, args...)
}

// Error logs err against an operation name, plus any extra fields.
func Error(op string, err error, args ...any) {
	args = append([]any{"op", op, "err", err}, args...)
	base.Error("operation failed", args...)
}
