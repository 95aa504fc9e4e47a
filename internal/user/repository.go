package user

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Shakha99/backend-repo/internal/database"
)

// Repository handles user data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Upsert creates the user or refreshes the profile fields of an existing one.
// The stored language preference is kept on conflict
func (r *Repository) Upsert(ctx context.Context, u *User, now time.Time) error {
	query := `
		INSERT INTO users (tg_id, username, first_name, last_name, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tg_id) DO UPDATE
		SET username = excluded.username,
		    first_name = excluded.first_name,
		    last_name = excluded.last_name,
		    updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		u.TelegramID,
		u.Username,
		u.FirstName,
		u.LastName,
		u.Language,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their platform ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT tg_id, username, first_name, last_name, language, created_at, updated_at
		FROM users
		WHERE tg_id = $1
	`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Language,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdateLanguage sets the user's locale. Returns false when the user does not exist
func (r *Repository) UpdateLanguage(ctx context.Context, id int64, language string, now time.Time) (bool, error) {
	query := `UPDATE users SET language = $1, updated_at = $2 WHERE tg_id = $3`

	result, err := r.db.ExecContext(ctx, query, language, now, id)
	if err != nil {
		return false, fmt.Errorf("failed to update language: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
