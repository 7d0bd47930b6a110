package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yourorg/jobboard/internal/security/audit"
	"github.com/yourorg/jobboard/internal/security/auth"
	"github.com/yourorg/jobboard/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// adminPrefixes lists path prefixes that require an admin bearer token
var adminPrefixes = []string{
	"/api/revalidate",
	"/api/listings",
}

func requiresAdmin(r *http.Request) bool {
	// Preflight requests carry no credentials
	if r.Method == http.MethodGet || r.Method == http.MethodOptions {
		return false
	}
	for _, prefix := range adminPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	// Listing mutations live under the organization routes
	if strings.HasPrefix(r.URL.Path, "/api/organizations/") && r.Method != http.MethodGet {
		return true
	}
	return false
}

// JWTMiddleware enforces an admin bearer token on mutating API routes,
// recording every rejection in the audit trail. Webhooks authenticate
// by signature, not JWT, and stay out of scope.
func JWTMiddleware(tm *auth.TokenManager, auditor *audit.Logger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requiresAdmin(r) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				auditor.LogDenied(r.Context(), "", "missing auth header")
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				auditor.LogDenied(r.Context(), "", "malformed auth header")
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				auditor.LogDenied(r.Context(), "", "invalid token")
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			if claims.Role != auth.RoleAdmin {
				log.Warn("non-admin token on admin route",
					slog.String("path", r.URL.Path),
					slog.String("user_id", claims.UserID),
				)
				auditor.LogDenied(r.Context(), claims.UserID, "role lacks admin")
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware limits requests per client on the API routes.
// The webhook route is excluded: the provider controls its own rate
// and retries must not be shed.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			client := ""
			if c := r.Context().Value(ClaimsContextKey{}); c != nil {
				client = c.(*auth.Claims).UserID
			}
			if client == "" {
				client = clientIP(r)
			}

			if !limiter.Allow(client) {
				log.Warn("rate limit exceeded",
					slog.String("client", client),
					slog.String("path", r.URL.Path),
				)
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClaimsFromContext returns validated claims, or nil on public routes
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
