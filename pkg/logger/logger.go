package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

// Setup installs a slog default logger with the given level and format
// ("json" or "text").
func Setup(level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithOperationID stamps an operation identifier into the context so all
// logging of one Index or Search call can be correlated.
func WithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, contextKey{}, operationID)
}

// FromContext returns the default logger, annotated with the operation ID
// from the context if one is present.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if operationID, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("operation_id", operationID)
	}
	return logger
}

// WithComponent returns a child of the default logger tagged with a
// component name.
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
