package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// contextKey is a typed key for values the logger lifts out of a context.
type contextKey string

const (
	// RequestIDKey carries the HTTP request id.
	RequestIDKey contextKey = "request_id"
	// UserIDKey carries the authenticated user id.
	UserIDKey contextKey = "user_id"
	// BucketIDKey carries the bucket a ledger operation is working on.
	BucketIDKey contextKey = "bucket_id"
)

var contextKeys = []contextKey{RequestIDKey, UserIDKey, BucketIDKey}

// Logger is a structured logger wrapper around slog
type Logger struct {
	*slog.Logger
}

// Options controls how New builds the handler.
type Options struct {
	Env    string
	Format string // "json" or "text"; production is always json
	Level  string // debug, info, warn, error
}

// New creates a structured logger writing to output.
func New(opts Options, output io.Writer) *Logger {
	handlerOpts := &slog.HandlerOptions{
		Level:       parseLevel(opts),
		AddSource:   true,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	if opts.Env == "production" || opts.Format == "json" {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewDefault creates a logger for env on stdout, honouring LOG_FORMAT.
func NewDefault(env string) *Logger {
	return New(Options{Env: env, Format: os.Getenv("LOG_FORMAT")}, os.Stdout)
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return New(Options{Env: "test"}, io.Discard)
}

func parseLevel(opts Options) slog.Level {
	switch opts.Level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if opts.Env == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format(time.RFC3339))
		}
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok {
			a.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		}
	}
	return a
}

// WithContext returns a logger carrying the request, user and bucket ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	args := make([]any, 0, len(contextKeys)*2)
	for _, key := range contextKeys {
		if v := ctx.Value(key); v != nil {
			args = append(args, string(key), v)
		}
	}
	if len(args) == 0 {
		return l
	}
	return &Logger{Logger: l.With(args...)}
}

// WithField creates a new logger with an additional field
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(key, value)}
}

// WithFields creates a new logger with additional fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.With(args...)}
}

// WithError creates a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With("error", err.Error())}
}
