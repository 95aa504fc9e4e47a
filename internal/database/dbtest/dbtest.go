// Package dbtest provides throwaway migrated stores for tests
package dbtest

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Shakha99/backend-repo/internal/database"
)

// PostgresURLEnv names the variable holding a Postgres URL for row-lock tests
const PostgresURLEnv = "GROUPBUY_TEST_POSTGRES_URL"

// New returns a migrated SQLite store in a per-test temp directory.
// The store is closed when the test finishes
func New(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrate(t, db)
	return db
}

// NewPostgres returns a migrated Postgres store living in its own schema, so
// packages testing in parallel never share rows. The test is skipped unless
// GROUPBUY_TEST_POSTGRES_URL is set. The schema is dropped on cleanup
func NewPostgres(t *testing.T) *database.DB {
	t.Helper()

	base := os.Getenv(PostgresURLEnv)
	if base == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}

	admin, err := database.NewPostgresConnection(base)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	t.Cleanup(func() { admin.Close() })

	schema := "groupbuy_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.ExecContext(context.Background(), "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() {
		if _, err := admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Errorf("failed to drop schema %s: %v", schema, err)
		}
	})

	db, err := database.NewPostgresConnection(withSearchPath(base, schema))
	if err != nil {
		t.Fatalf("failed to connect to schema %s: %v", schema, err)
	}
	t.Cleanup(func() { db.Close() })

	migrate(t, db)
	return db
}

// withSearchPath adds search_path to a URL or key=value connection string
// lib/pq sends unknown settings as session parameters
func withSearchPath(dsn, schema string) string {
	if u, err := url.Parse(dsn); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return dsn + " search_path=" + schema
}

func migrate(t *testing.T, db *database.DB) {
	t.Helper()
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
}
