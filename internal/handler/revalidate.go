package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/jobboard/internal/cachetag"
	"github.com/yourorg/jobboard/internal/security/audit"
	"github.com/yourorg/jobboard/internal/security/middleware"
)

// RevalidateRequest names the tag set to stale
type RevalidateRequest struct {
	Kind       string `json:"kind"`
	ID         string `json:"id,omitempty"`
	ParentKind string `json:"parentKind,omitempty"`
	ParentID   string `json:"parentId,omitempty"`
	Immediate  bool   `json:"immediate,omitempty"`
}

// RevalidateHandler lets any authorized write path invalidate the tag
// set for an entity it mutated outside the webhook workflow
type RevalidateHandler struct {
	registry *cachetag.Registry
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewRevalidateHandler creates a new revalidate handler
func NewRevalidateHandler(registry *cachetag.Registry, auditLogger *audit.Logger, logger *slog.Logger) *RevalidateHandler {
	return &RevalidateHandler{
		registry: registry,
		audit:    auditLogger,
		logger:   logger,
	}
}

// ServeHTTP handles POST /api/revalidate
func (h *RevalidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RevalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}

	kind, ok := knownKind(req.Kind)
	if !ok {
		http.Error(w, `{"error":"unknown kind"}`, http.StatusBadRequest)
		return
	}

	scope := cachetag.Scope{ID: req.ID, ParentID: req.ParentID}
	if req.ParentID != "" {
		parentKind, ok := knownKind(req.ParentKind)
		if !ok {
			http.Error(w, `{"error":"unknown parentKind"}`, http.StatusBadRequest)
			return
		}
		scope.ParentKind = parentKind
	}
	if req.Immediate {
		scope.Profile = cachetag.ProfileImmediate
	}

	actor := ""
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		actor = claims.UserID
	}
	h.audit.LogRevalidate(r.Context(), actor, req.Kind, req.ID)

	h.registry.Invalidate(r.Context(), kind, scope)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func knownKind(s string) (cachetag.Kind, bool) {
	for _, k := range cachetag.Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
