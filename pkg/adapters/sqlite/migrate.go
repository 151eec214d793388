package sqlite

import (
	"context"
	"embed"
	"fmt"

	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate creates the typed customers and orders tables.
// It is used by store preparation before seeding; the dashboard opens the
// store read-only and never migrates.
func (a *Adapter) Migrate(ctx context.Context) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, a.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version.
func (a *Adapter) MigrationVersion(ctx context.Context) (int64, error) {
	if a.DB == nil {
		return 0, adapter.ErrNotConnected
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, a.DB)
}
