// Package log provides a structured logging interface for neurago training runs.
//
// The interface is slog-compatible so any backend can sit behind it; the
// default implementation is backed by zerolog. Attribute keys for the
// training loop (epoch, loss, batch size, ...) live in attributes.go.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ModelNameKey, "Sequential",
//	)
//	logger.Info("epoch finished",
//	    log.EpochKey, 5,
//	    log.LossKey, 0.031,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key/value pairs. Error treats an error
// passed as the first field specially and attaches its stack trace.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error, its stack trace is included.
	//
	// Example:
	//   logger.Error("training failed",
	//       err,
	//       log.EpochKey, 12,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	// Use it to skip building expensive messages such as model summaries.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
