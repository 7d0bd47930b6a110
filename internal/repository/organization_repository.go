package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/jobboard/internal/domain"
)

// PostgresOrganizationRepository implements domain.OrganizationRepository
// using PostgreSQL
type PostgresOrganizationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrganizationRepository creates a new organization repository
func NewPostgresOrganizationRepository(db *sql.DB, logger *slog.Logger) *PostgresOrganizationRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOrganizationRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an organization by ID
func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	org := &domain.Organization{}

	query := `
		SELECT id, name, image_url, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.ImageURL,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// Create inserts an organization. Duplicate ids are a no-op; created
// reports whether this call inserted the row.
func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *domain.Organization) (bool, error) {
	query := `
		INSERT INTO organizations (id, name, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.ImageURL,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolationOn(err, "organizations_pkey") {
			return false, nil
		}
		r.logger.Error("failed to create organization",
			slog.String("id", org.ID),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("failed to create organization: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}

// Upsert overwrites mutable fields, inserting the row when missing
func (r *PostgresOrganizationRepository) Upsert(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (id, name, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			image_url = EXCLUDED.image_url,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.ImageURL,
		org.CreatedAt,
		org.UpdatedAt,
	); err != nil {
		r.logger.Error("failed to upsert organization",
			slog.String("id", org.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to upsert organization: %w", err)
	}

	return nil
}

// Delete removes an organization by id. Listings and member settings
// cascade in the schema. A missing row is a no-op.
func (r *PostgresOrganizationRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete organization: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}
