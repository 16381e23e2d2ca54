package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a copy of ctx carrying logger
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
			return logger
		}
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// FromContextOr returns the logger carried by ctx, or fallback when there is none
func FromContextOr(ctx context.Context, fallback *Logger) *Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
			return logger
		}
	}
	return fallback
}
