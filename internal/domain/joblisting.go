package domain

import (
	"context"
	"time"
)

// Job listing lifecycle states
const (
	ListingStatusDraft     = "draft"
	ListingStatusPublished = "published"
	ListingStatusDelisted  = "delisted"
)

// JobListing is a posting owned by an organization
type JobListing struct {
	ID             string // UUID
	OrganizationID string
	Title          string
	Description    string
	Wage           *int
	City           string
	StateAbbr      string
	LocationType   string // in-office, hybrid, remote
	EmploymentType string // full-time, part-time, internship
	ExperienceTier string // junior, mid-level, senior
	Status         string
	PostedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// JobListingRepository defines data access for job listings
type JobListingRepository interface {
	GetByID(ctx context.Context, id string) (*JobListing, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]*JobListing, error)
	Create(ctx context.Context, listing *JobListing) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) (deleted bool, err error)
}
