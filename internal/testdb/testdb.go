//go:build integration

// Package testdb provides utilities for database-backed tests: connection
// acquisition with environment gating, schema migration, and per-test
// transaction isolation.
package testdb

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"

	"github.com/atelierhq/atelier-api/migrations"
)

// Environment variables consulted for the test database URL, in order.
var urlEnvVars = []string{"ATELIER_TEST_DB_URL", "DATABASE_URL"}

var (
	migrateOnce sync.Once
	migrateErr  error
)

// GetTestDatabaseURL returns the configured test database URL, or "" when
// none is set.
func GetTestDatabaseURL() string {
	for _, key := range urlEnvVars {
		if url := os.Getenv(key); url != "" {
			return url
		}
	}
	return ""
}

// GetTestDBWithT opens a connection to the test database and ensures the
// schema is migrated. Tests are skipped when no test database is configured.
// The connection is closed when the test finishes.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	url := GetTestDatabaseURL()
	if url == "" {
		t.Skip("no test database configured, set ATELIER_TEST_DB_URL to run")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	migrateOnce.Do(func() {
		goose.SetTableName("schema_migrations")
		goose.SetBaseFS(migrations.FS)
		if err := goose.SetDialect("postgres"); err != nil {
			migrateErr = err
			return
		}
		migrateErr = goose.Up(db, ".")
	})
	if migrateErr != nil {
		t.Fatalf("failed to migrate test database: %v", migrateErr)
	}

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// never leave rows behind and can run in parallel.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	fn(t, tx)
}
