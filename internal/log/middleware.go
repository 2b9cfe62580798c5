package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// Middleware creates HTTP middleware that adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Add logger to request context
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	// Return default logger if not found
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPStart logs the start of an HTTP request
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogDatasetLoaded logs a successful dataset load
func (sl *StructuredLogger) LogDatasetLoaded(ctx context.Context, name, source string, rows int, durationMs int64) {
	fields := NewFields().
		WithDataset(name, source, rows).
		WithOperation(OpLoad).
		WithComponent(ComponentLoader).
		ToSlice()

	fields = append(fields, FieldDuration, durationMs)

	sl.logger.InfoContext(ctx, "Dataset loaded", fields...)
}

// LogDatasetUnavailable logs a dataset that could not be loaded. The rest of
// the dashboard keeps working without it.
func (sl *StructuredLogger) LogDatasetUnavailable(ctx context.Context, name, source string, err error) {
	fields := NewFields().
		WithDataset(name, source, 0).
		WithError(err).
		WithOperation(OpLoad).
		WithComponent(ComponentLoader)
	fields[FieldErrorType] = ErrorTypeUnavailable

	sl.logger.WarnContext(ctx, "Dataset unavailable", fields.ToSlice()...)
}

// LogError logs an error with structured context. The component field is
// left out when the logger is already scoped to that component.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)
	if component != "" && component != sl.logger.Component() {
		allFields.WithComponent(component)
	}

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
