package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/jobboard/internal/domain"
)

// PostgresJobListingRepository implements domain.JobListingRepository
// using PostgreSQL
type PostgresJobListingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresJobListingRepository creates a new job listing repository
func NewPostgresJobListingRepository(db *sql.DB, logger *slog.Logger) *PostgresJobListingRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobListingRepository{
		db:     db,
		logger: logger,
	}
}

const listingColumns = `id, organization_id, title, description, wage, city, state_abbr,
		location_type, employment_type, experience_tier, status, posted_at, created_at, updated_at`

// GetByID retrieves a job listing by ID
func (r *PostgresJobListingRepository) GetByID(ctx context.Context, id string) (*domain.JobListing, error) {
	query := `SELECT ` + listingColumns + ` FROM job_listings WHERE id = $1`

	listing, err := scanListing(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job listing: %w", err)
	}

	return listing, nil
}

// ListByOrganization lists all listings for one organization
func (r *PostgresJobListingRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*domain.JobListing, error) {
	query := `SELECT ` + listingColumns + `
		FROM job_listings
		WHERE organization_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		r.logger.Error("failed to list job listings",
			slog.String("organization_id", organizationID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list job listings: %w", err)
	}
	defer rows.Close()

	var listings []*domain.JobListing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job listing: %w", err)
		}
		listings = append(listings, listing)
	}

	return listings, rows.Err()
}

// Create inserts a new job listing
func (r *PostgresJobListingRepository) Create(ctx context.Context, listing *domain.JobListing) error {
	query := `
		INSERT INTO job_listings (id, organization_id, title, description, wage, city, state_abbr,
			location_type, employment_type, experience_tier, status, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		listing.ID,
		listing.OrganizationID,
		listing.Title,
		listing.Description,
		listing.Wage,
		listing.City,
		listing.StateAbbr,
		listing.LocationType,
		listing.EmploymentType,
		listing.ExperienceTier,
		listing.Status,
		listing.PostedAt,
	).Scan(&listing.CreatedAt, &listing.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create job listing",
			slog.String("organization_id", listing.OrganizationID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create job listing: %w", err)
	}

	return nil
}

// UpdateStatus moves a listing through its lifecycle states
func (r *PostgresJobListingRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE job_listings
		SET status = $1,
			posted_at = CASE WHEN $1 = 'published' AND posted_at IS NULL THEN now() ELSE posted_at END,
			updated_at = now()
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update job listing status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Delete removes a job listing by id
func (r *PostgresJobListingRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM job_listings WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete job listing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*domain.JobListing, error) {
	listing := &domain.JobListing{}
	err := row.Scan(
		&listing.ID,
		&listing.OrganizationID,
		&listing.Title,
		&listing.Description,
		&listing.Wage,
		&listing.City,
		&listing.StateAbbr,
		&listing.LocationType,
		&listing.EmploymentType,
		&listing.ExperienceTier,
		&listing.Status,
		&listing.PostedAt,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return listing, nil
}
