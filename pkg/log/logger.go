package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	cockroach "github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger returns a Logger writing JSON lines to w.
// Records below level are discarded.
func NewZerologLogger(w io.Writer, level Level) Logger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

// NewConsoleLogger returns a human readable Logger for examples and CLIs.
func NewConsoleLogger(w io.Writer, level Level) Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	zl := zerolog.New(cw).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	ev := l.zl.Error()
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			if st := extractStacktrace(err); st != "" {
				ev = ev.Str(StacktraceAttrKey, st)
			}
			fields = fields[1:]
		}
	}
	l.emit(ev, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	if len(fields) == 0 {
		return l
	}
	return &zerologLogger{zl: l.zl.With().Fields(normalizeFields(fields)).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	// A nil event means the level is disabled.
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		ev = ev.Fields(normalizeFields(fields))
	}
	ev.Msg(msg)
}

// normalizeFields turns alternating key/value pairs into a map zerolog can
// encode. Non-string keys are formatted with %v, a trailing key without a
// value is recorded under "!BADKEY" the way log/slog does.
func normalizeFields(fields []any) map[string]any {
	out := make(map[string]any, len(fields)/2+1)
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			out["!BADKEY"] = fields[i]
			break
		}
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		out[key] = fields[i+1]
	}
	return out
}

// extractStacktrace returns the first stack trace recorded by cockroachdb/errors.
func extractStacktrace(err error) string {
	for _, detail := range cockroach.GetSafeDetails(err).SafeDetails {
		if strings.Contains(detail, "\n") {
			return detail
		}
	}
	return ""
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ParseLevel converts "debug", "info", "warn" or "error" to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewArgumentError("level", "unknown log level", level)
	}
}

var (
	globalMu     sync.RWMutex
	globalLogger = NewZerologLogger(os.Stderr, LevelInfo)
)

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the process-wide logger. A nil logger is ignored.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// SetupLogger installs a JSON zerolog logger on stdout at the given level and
// routes library warnings (errors.Warn) through it.
func SetupLogger(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l := NewZerologLogger(os.Stdout, lvl)
	SetLogger(l)
	errors.SetZerologWarnFunc(func(w error) {
		l.Warn(w.Error(), ErrorTypeKey, fmt.Sprintf("%T", w))
	})
	return nil
}
