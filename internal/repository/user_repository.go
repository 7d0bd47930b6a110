package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/jobboard/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user := &domain.User{}

	query := `
		SELECT id, name, email, image_url, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.ImageURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get user by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// CreateWithSettings inserts the user row and its notification
// settings row in one transaction. The primary-key constraint, not the
// prior existence check, is what makes duplicate deliveries safe: on
// conflict both inserts are skipped and created is false.
func (r *PostgresUserRepository) CreateWithSettings(ctx context.Context, user *domain.User) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertUser := `
		INSERT INTO users (id, name, email, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := tx.ExecContext(ctx, insertUser,
		user.ID,
		user.Name,
		user.Email,
		user.ImageURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolationOn(err, "users_pkey") {
			// Another insert of the same id won the race
			return false, nil
		}
		r.logger.Error("failed to create user",
			slog.String("id", user.ID),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("failed to create user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		// Duplicate delivery, row already present
		return false, nil
	}

	insertSettings := `
		INSERT INTO user_notification_settings (user_id, created_at, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insertSettings, user.ID, user.CreatedAt, user.CreatedAt); err != nil {
		return false, fmt.Errorf("failed to create notification settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit user creation: %w", err)
	}

	return true, nil
}

// Upsert overwrites the mutable fields of an existing user, creating
// the row and its settings when it is missing. Updates arriving ahead
// of their create converge to the provider's state either way.
func (r *PostgresUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO users (id, name, email, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			email = EXCLUDED.email,
			image_url = EXCLUDED.image_url,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := tx.ExecContext(ctx, upsert,
		user.ID,
		user.Name,
		user.Email,
		user.ImageURL,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		r.logger.Error("failed to upsert user",
			slog.String("id", user.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	insertSettings := `
		INSERT INTO user_notification_settings (user_id, created_at, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insertSettings, user.ID, user.UpdatedAt, user.UpdatedAt); err != nil {
		return fmt.Errorf("failed to ensure notification settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user upsert: %w", err)
	}

	return nil
}

// Delete removes a user by id. Dependent rows cascade in the schema.
// A missing row is a no-op, not an error.
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows > 0, nil
}
