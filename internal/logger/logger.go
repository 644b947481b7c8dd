package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	userEmailKey ctxKey = "user_email"
)

var defaultLogger *slog.Logger

// Init initializes the global logger with the specified level and format
func Init(level, format string) {
	defaultLogger = New(os.Stdout, level, format)
	slog.SetDefault(defaultLogger)
}

// New builds a logger writing to w; used by Init and by tests that capture output
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the default logger instance
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init("INFO", "json")
	}
	return defaultLogger
}

// ContextWithRequestID stores the request id for WithContext
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithUser stores the authenticated e-mail for WithContext
func ContextWithUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userEmailKey, email)
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithContext returns a logger with context-specific fields
func WithContext(ctx context.Context) *slog.Logger {
	logger := Get()

	if reqID := RequestID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	if email, ok := ctx.Value(userEmailKey).(string); ok && email != "" {
		logger = logger.With("user_email", email)
	}

	return logger
}

// NewRequestID generates a new UUID for request tracking
func NewRequestID() string {
	return uuid.New().String()
}

// Leveled adapts a slog.Logger to printf-style leveled logging interfaces
// such as the payment processor SDK's.
type Leveled struct {
	L *slog.Logger
}

func (l Leveled) Debugf(format string, v ...interface{}) { l.L.Debug(fmt.Sprintf(format, v...)) }
func (l Leveled) Infof(format string, v ...interface{})  { l.L.Info(fmt.Sprintf(format, v...)) }
func (l Leveled) Warnf(format string, v ...interface{})  { l.L.Warn(fmt.Sprintf(format, v...)) }
func (l Leveled) Errorf(format string, v ...interface{}) { l.L.Error(fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the application
func Fatal(msg string, args ...any) {
	Get().Error(msg, args...)
	os.Exit(1)
}
