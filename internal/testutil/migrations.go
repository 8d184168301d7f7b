package testutil

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	dbmigrations "github.com/helicityai/steward/internal/db/migrations"
	insightsmigrations "github.com/helicityai/steward/internal/insights/migrations"
)

// RunMigrations applies both embedded migration sets (directory store and
// telemetry store) to the given connection. Tests run both schemas against a
// single container database; each set tracks its version in its own table so
// the version numbers do not collide.
func RunMigrations(conn *sql.DB) error {
	sets := []struct {
		name  string
		table string
		fs    embed.FS
	}{
		{name: "directory", table: "schema_migrations_directory", fs: dbmigrations.FS},
		{name: "telemetry", table: "schema_migrations_telemetry", fs: insightsmigrations.FS},
	}

	for _, set := range sets {
		if err := runMigrationSet(conn, set.table, set.fs); err != nil {
			return fmt.Errorf("%s migrations: %w", set.name, err)
		}
	}
	return nil
}

func runMigrationSet(conn *sql.DB, table string, fs embed.FS) error {
	driver, err := postgres.WithInstance(conn, &postgres.Config{MigrationsTable: table})
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	source, err := iofs.New(fs, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
