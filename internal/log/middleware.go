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

// WithLogger returns a copy of ctx carrying logger
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// Middleware adds a logger to the request context
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}

// FromContext extracts a logger from the context, falling back to the slog default
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// RequestIDMiddleware enriches the context logger with the request ID
func RequestIDMiddleware(extractRequestID func(context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := extractRequestID(r.Context())
			if requestID == "" {
				next.ServeHTTP(w, r)
				return
			}
			logger := FromContext(r.Context()).With(FieldRequestID, requestID)
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}

// StructuredLogger provides domain-level logging helpers
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogIngest records the outcome of parsing an uploaded statement
func (sl *StructuredLogger) LogIngest(ctx context.Context, sessionID, fileName string, size int64, read, dropped, excluded, kept int) {
	fields := NewFields().
		WithSession(sessionID).
		WithUpload(fileName, size).
		WithIngestCounts(read, dropped, excluded, kept).
		WithOperation(OpUpload)

	sl.logger.WithComponent(ComponentIngest).InfoContext(ctx, "Statement ingested", fields.ToSlice()...)
}

// LogRejected records an upload that could not be parsed
func (sl *StructuredLogger) LogRejected(ctx context.Context, sessionID, fileName string, size int64, err error) {
	fields := NewFields().
		WithSession(sessionID).
		WithUpload(fileName, size).
		WithError(err).
		WithErrorType(ErrorTypeValidation).
		WithOperation(OpUpload)

	sl.logger.WithComponent(ComponentIngest).WarnContext(ctx, "Statement rejected", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}

// Logger returns the underlying logger
func (sl *StructuredLogger) Logger() *Logger {
	return sl.logger
}
