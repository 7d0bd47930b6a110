package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stamps the request id onto the context so audit
// entries can be correlated with request logs
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the stamped request id, or "" when the
// context carries none
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, actor, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("actor", actor),
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestIDFromContext(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

// LogSync records a reconciliation outcome driven by a provider event
func (al *Logger) LogSync(ctx context.Context, eventType, resource, resourceID, status string) {
	al.LogAction(ctx, "identity-provider", eventType, resource, resourceID, status, "")
}

// LogRevalidate records a manual cache invalidation request
func (al *Logger) LogRevalidate(ctx context.Context, userID, kind, id string) {
	al.LogAction(ctx, userID, "revalidate", kind, id, "initiated", "")
}

// LogDenied records a rejected API request
func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}
