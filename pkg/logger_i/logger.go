package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/akolanti/DocQA/internal/config"
)

type Logger struct {
	inner *slog.Logger
}

// Init installs the process default handler: JSON in prod, text otherwise.
func Init(isProd bool, level string) {
	options := &slog.HandlerOptions{
		Level: parseLevel(level, isProd),
	}

	var handler slog.Handler
	if isProd {
		handler = slog.NewJSONHandler(os.Stdout, options)
	} else {
		handler = slog.NewTextHandler(os.Stdout, options)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string, isProd bool) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if isProd {
		return config.LOG_LEVEL_PROD
	}
	return slog.LevelDebug
}

func NewLogger(section string) *Logger {
	return &Logger{
		inner: slog.Default().With("component", section),
	}
}

// FromSlog wraps an existing slog logger so callers can route diagnostics to their own sink.
func FromSlog(l *slog.Logger, section string) *Logger {
	if l == nil {
		return NewLogger(section)
	}
	return &Logger{inner: l.With("component", section)}
}

func NewDiscardLogger() *Logger {
	return &Logger{inner: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if !l.inner.Enabled(context.Background(), level) {
		return
	}
	l.inner.Log(context.Background(), level, msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		inner: l.inner.With(args...),
	}
}

// WithTrace attaches the trace id carried by ctx, if any.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && trace != "" {
		return l.With("traceId", trace)
	}
	return l
}
