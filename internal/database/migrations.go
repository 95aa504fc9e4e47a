package database

import (
	"context"
	"fmt"
)

// postgresSchema creates the tables for the PostgreSQL store.
// Tables are created in foreign-key order
const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    tg_id BIGINT PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT 'ru',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    price NUMERIC(14, 2) NOT NULL,
    discounted_price NUMERIC(14, 2) NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id BIGSERIAL PRIMARY KEY,
    initiator_tg_id BIGINT NOT NULL REFERENCES users(tg_id),
    status TEXT NOT NULL DEFAULT 'forming' CHECK (status IN ('forming', 'completed', 'failed')),
    start_time TIMESTAMPTZ NOT NULL,
    closed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS group_members (
    id BIGSERIAL PRIMARY KEY,
    group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    user_tg_id BIGINT NOT NULL REFERENCES users(tg_id),
    paid BOOLEAN NOT NULL DEFAULT FALSE,
    joined_at TIMESTAMPTZ NOT NULL,
    UNIQUE (group_id, user_tg_id)
);

CREATE TABLE IF NOT EXISTS invite_codes (
    code TEXT PRIMARY KEY,
    group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    owner_member_id BIGINT NOT NULL REFERENCES group_members(id) ON DELETE CASCADE,
    redeemed_by BIGINT REFERENCES users(tg_id),
    redeemed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
    id UUID PRIMARY KEY,
    group_id BIGINT NOT NULL,
    user_tg_id BIGINT NOT NULL,
    amount NUMERIC(14, 2) NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'paid')),
    transaction_id TEXT UNIQUE,
    provider TEXT,
    paid_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    UNIQUE (group_id, user_tg_id),
    FOREIGN KEY (group_id, user_tg_id) REFERENCES group_members(group_id, user_tg_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_groups_status_start_time ON groups(status, start_time);
CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_tg_id);
CREATE INDEX IF NOT EXISTS idx_invite_codes_owner ON invite_codes(owner_member_id);
`

// sqliteSchema mirrors postgresSchema for SQLite. Amounts are stored as
// decimal strings and timestamps use the TIMESTAMP declared type so the
// driver parses them back into time.Time
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    tg_id INTEGER PRIMARY KEY,
    username TEXT NOT NULL DEFAULT '',
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL DEFAULT 'ru',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    price TEXT NOT NULL,
    discounted_price TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    initiator_tg_id INTEGER NOT NULL REFERENCES users(tg_id),
    status TEXT NOT NULL DEFAULT 'forming' CHECK (status IN ('forming', 'completed', 'failed')),
    start_time TIMESTAMP NOT NULL,
    closed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS group_members (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    user_tg_id INTEGER NOT NULL REFERENCES users(tg_id),
    paid BOOLEAN NOT NULL DEFAULT FALSE,
    joined_at TIMESTAMP NOT NULL,
    UNIQUE (group_id, user_tg_id)
);

CREATE TABLE IF NOT EXISTS invite_codes (
    code TEXT PRIMARY KEY,
    group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    owner_member_id INTEGER NOT NULL REFERENCES group_members(id) ON DELETE CASCADE,
    redeemed_by INTEGER REFERENCES users(tg_id),
    redeemed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
    id TEXT PRIMARY KEY,
    group_id INTEGER NOT NULL,
    user_tg_id INTEGER NOT NULL,
    amount TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'paid')),
    transaction_id TEXT UNIQUE,
    provider TEXT,
    paid_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (group_id, user_tg_id),
    FOREIGN KEY (group_id, user_tg_id) REFERENCES group_members(group_id, user_tg_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_groups_status_start_time ON groups(status, start_time);
CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_tg_id);
CREATE INDEX IF NOT EXISTS idx_invite_codes_owner ON invite_codes(owner_member_id);
`

// Migrate creates the schema for the connection's dialect
func Migrate(ctx context.Context, db *DB) error {
	schema := postgresSchema
	if db.Dialect == SQLite {
		schema = sqliteSchema
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
