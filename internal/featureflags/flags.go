package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	// WebhookInline reconciles events in the webhook request instead
	// of through the queue (single-process deployments)
	WebhookInline = "webhook_inline"
	// ImmediateInvalidation uses the immediate freshness profile on
	// every invalidation
	ImmediateInvalidation = "immediate_invalidation"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
