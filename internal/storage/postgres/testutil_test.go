package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/memcore/memcore/internal/storage/postgres"
)

// postgresTestDSN returns the DSN for the integration test database.
// These tests only run when PGTEST_DSN points at a live Postgres instance
// with the pgvector extension installable by the connecting role; there is
// no in-process equivalent to sqlite's ":memory:" backend.
func postgresTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PGTEST_DSN")
	if dsn == "" {
		t.Skip("PGTEST_DSN not set; skipping postgres integration tests")
	}
	return dsn
}

func newTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	dsn := postgresTestDSN(t)
	db, err := postgres.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.TruncateForTest(context.Background()); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}
