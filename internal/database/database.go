// Package database owns the SQL connection, schema and transaction helpers
// shared by the feature repositories
//
// Two dialects are supported. PostgreSQL is the production store and relies
// on row-level locks (SELECT ... FOR UPDATE) for per-group serialization.
// SQLite is used for local runs and tests; its pool is limited to a single
// connection, so every transaction is serialized against every other one
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect identifies the SQL backend
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Querier is satisfied by *sql.DB, *sql.Tx and *DB
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is a connection pool tagged with its dialect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the store selected by driver
func Open(driver, url string) (*DB, error) {
	switch Dialect(driver) {
	case Postgres:
		return NewPostgresConnection(url)
	case SQLite:
		return NewSQLiteConnection(url)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// ForUpdate returns the row-locking suffix for SELECT statements.
// SQLite has no row locks; its single connection already serializes writers
func (db *DB) ForUpdate() string {
	if db.Dialect == Postgres {
		return "FOR UPDATE"
	}
	return ""
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise. Errors from fn are returned as-is
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
