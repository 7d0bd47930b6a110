package database

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/yourorg/jobboard/migrations"
)

// Migrate applies the embedded goose migrations
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, cp.db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
