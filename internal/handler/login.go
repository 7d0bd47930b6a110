package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/jobboard/internal/security/auth"
	"github.com/yourorg/jobboard/internal/security/ratelimit"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse contains the JWT token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginHandler authenticates the admin account
type LoginHandler struct {
	tokenManager *auth.TokenManager
	adminStore   *auth.AdminStore
	limiter      *ratelimit.Limiter
	logger       *slog.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(tm *auth.TokenManager, store *auth.AdminStore, limiter *ratelimit.Limiter, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{
		tokenManager: tm,
		adminStore:   store,
		limiter:      limiter,
		logger:       logger,
	}
}

// ServeHTTP handles POST /api/auth/login
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"email and password required"}`, http.StatusBadRequest)
		return
	}

	// Tight limit on credential guessing
	if h.limiter != nil && !h.limiter.AllowStrict(req.Email, 5, time.Minute) {
		http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
		return
	}

	if err := h.adminStore.Authenticate(req.Email, req.Password); err != nil {
		h.logger.Warn("authentication failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		// Generic error to prevent account enumeration
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	expiresIn := 24 * time.Hour
	token, err := h.tokenManager.GenerateToken("admin", req.Email, auth.RoleAdmin, expiresIn)
	if err != nil {
		h.logger.Error("failed to generate token", slog.String("error", err.Error()))
		http.Error(w, `{"error":"token generation failed"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("admin logged in", slog.String("email", req.Email))

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(expiresIn),
	})
}
