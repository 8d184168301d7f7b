package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/helicityai/steward/internal/db"
)

// TestEnvironment holds test infrastructure (a PostgreSQL container carrying
// both the directory and telemetry schemas).
type TestEnvironment struct {
	DB                *db.DB
	PostgresContainer *postgres.PostgresContainer
	Ctx               context.Context
}

// SetupTestEnvironment starts a PostgreSQL container for integration testing
// and applies both migration sets. Call once per test or test suite.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	ctx := context.Background()

	t.Log("Starting PostgreSQL container...")
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("steward_test"),
		postgres.WithUsername("steward"),
		postgres.WithPassword("steward"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get postgres connection string: %v", err)
	}

	database, err := db.Connect(connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	t.Log("Running database migrations...")
	if err := RunMigrations(database.Conn()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	env := &TestEnvironment{
		DB:                database,
		PostgresContainer: postgresContainer,
		Ctx:               ctx,
	}

	t.Cleanup(func() {
		env.Cleanup(t)
	})

	t.Log("Test environment ready!")
	return env
}

// Cleanup stops the container and closes connections
func (e *TestEnvironment) Cleanup(t *testing.T) {
	t.Helper()

	if e.DB != nil {
		if err := e.DB.Close(); err != nil {
			t.Logf("Warning: failed to close database: %v", err)
		}
	}

	if e.PostgresContainer != nil {
		if err := e.PostgresContainer.Terminate(e.Ctx); err != nil {
			t.Logf("Warning: failed to terminate postgres container: %v", err)
		}
	}
}

// CleanDB truncates all tables so tests start from a known-empty state
func (e *TestEnvironment) CleanDB(t *testing.T) {
	t.Helper()

	tables := []string{
		"skill_invocations",
		"identity_observations",
		"session_behavior",
		"usage_events",
		"users",
	}
	for _, table := range tables {
		if _, err := e.DB.Exec(e.Ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
}
