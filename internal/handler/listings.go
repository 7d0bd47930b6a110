package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/jobboard/internal/domain"
	"github.com/yourorg/jobboard/internal/service"
)

// CreateListingRequest is the body of a listing creation
type CreateListingRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Wage           *int   `json:"wage,omitempty"`
	City           string `json:"city,omitempty"`
	StateAbbr      string `json:"stateAbbr,omitempty"`
	LocationType   string `json:"locationType,omitempty"`
	EmploymentType string `json:"employmentType,omitempty"`
	ExperienceTier string `json:"experienceTier,omitempty"`
}

// ListingResponse is the wire shape of one job listing
type ListingResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Wage           *int       `json:"wage,omitempty"`
	City           string     `json:"city,omitempty"`
	StateAbbr      string     `json:"stateAbbr,omitempty"`
	LocationType   string     `json:"locationType"`
	EmploymentType string     `json:"employmentType"`
	ExperienceTier string     `json:"experienceTier"`
	Status         string     `json:"status"`
	PostedAt       *time.Time `json:"postedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ListingsHandler serves the organization listing routes
type ListingsHandler struct {
	listings *service.ListingService
	logger   *slog.Logger
}

// NewListingsHandler creates a new listings handler
func NewListingsHandler(listings *service.ListingService, logger *slog.Logger) *ListingsHandler {
	return &ListingsHandler{
		listings: listings,
		logger:   logger,
	}
}

// List handles GET /api/organizations/{id}/listings
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("id")
	if orgID == "" {
		http.Error(w, "missing organization id", http.StatusBadRequest)
		return
	}

	listings, err := h.listings.GetForOrganization(r.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to list job listings",
			slog.String("organization_id", orgID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "failed to list job listings", http.StatusInternalServerError)
		return
	}

	resp := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		resp = append(resp, toListingResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /api/organizations/{id}/listings
func (h *ListingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("id")
	if orgID == "" {
		http.Error(w, "missing organization id", http.StatusBadRequest)
		return
	}

	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}

	listing := &domain.JobListing{
		OrganizationID: orgID,
		Title:          req.Title,
		Description:    req.Description,
		Wage:           req.Wage,
		City:           req.City,
		StateAbbr:      req.StateAbbr,
		LocationType:   defaultString(req.LocationType, "in-office"),
		EmploymentType: defaultString(req.EmploymentType, "full-time"),
		ExperienceTier: defaultString(req.ExperienceTier, "junior"),
	}

	if err := h.listings.CreateListing(r.Context(), listing); err != nil {
		h.logger.Error("failed to create job listing",
			slog.String("organization_id", orgID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "failed to create job listing", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, toListingResponse(listing))
}

// UpdateStatus handles PATCH /api/listings/{id}/status
func (h *ListingsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "missing listing id", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}

	if err := h.listings.UpdateListingStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, `{"error":"listing not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update listing status",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		http.Error(w, `{"error":"failed to update status"}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toListingResponse(l *domain.JobListing) ListingResponse {
	return ListingResponse{
		ID:             l.ID,
		OrganizationID: l.OrganizationID,
		Title:          l.Title,
		Description:    l.Description,
		Wage:           l.Wage,
		City:           l.City,
		StateAbbr:      l.StateAbbr,
		LocationType:   l.LocationType,
		EmploymentType: l.EmploymentType,
		ExperienceTier: l.ExperienceTier,
		Status:         l.Status,
		PostedAt:       l.PostedAt,
		CreatedAt:      l.CreatedAt,
	}
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
