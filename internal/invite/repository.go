package invite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Shakha99/backend-repo/internal/database"
)

// Repository handles invite code persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new invite repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a code. Returns false when the code is already taken
func (r *Repository) Insert(ctx context.Context, q database.Querier, inv *Invite) (bool, error) {
	query := `
		INSERT INTO invite_codes (code, group_id, owner_member_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO NOTHING
	`

	result, err := q.ExecContext(ctx, query, inv.Code, inv.GroupID, inv.OwnerMemberID, inv.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert invite code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// GetForUpdate loads a code and locks its row until tx ends
func (r *Repository) GetForUpdate(ctx context.Context, tx *sql.Tx, code string) (*Invite, error) {
	query := `
		SELECT code, group_id, owner_member_id, redeemed_by, redeemed_at, created_at
		FROM invite_codes
		WHERE code = $1
	` + r.db.ForUpdate()

	inv := &Invite{}
	var redeemedBy sql.NullInt64
	var redeemedAt sql.NullTime
	err := tx.QueryRowContext(ctx, query, code).Scan(
		&inv.Code,
		&inv.GroupID,
		&inv.OwnerMemberID,
		&redeemedBy,
		&redeemedAt,
		&inv.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invite code: %w", err)
	}

	if redeemedBy.Valid {
		inv.RedeemedBy = &redeemedBy.Int64
	}
	if redeemedAt.Valid {
		inv.RedeemedAt = &redeemedAt.Time
	}

	return inv, nil
}

// MarkRedeemed consumes an unredeemed code. Returns false when it was already consumed
func (r *Repository) MarkRedeemed(ctx context.Context, tx *sql.Tx, code string, userID int64, at time.Time) (bool, error) {
	query := `
		UPDATE invite_codes
		SET redeemed_by = $1, redeemed_at = $2
		WHERE code = $3 AND redeemed_by IS NULL
	`

	result, err := tx.ExecContext(ctx, query, userID, at, code)
	if err != nil {
		return false, fmt.Errorf("failed to redeem invite code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ListOpenByUser returns the unredeemed codes owned by the user's
// memberships in groups that are still forming
func (r *Repository) ListOpenByUser(ctx context.Context, userID int64) ([]*Invite, error) {
	query := `
		SELECT ic.code, ic.group_id, ic.owner_member_id, ic.created_at
		FROM invite_codes ic
		INNER JOIN group_members gm ON gm.id = ic.owner_member_id
		INNER JOIN groups g ON g.id = ic.group_id
		WHERE gm.user_tg_id = $1
		  AND ic.redeemed_by IS NULL
		  AND g.status = 'forming'
		ORDER BY ic.created_at, ic.code
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invite codes: %w", err)
	}
	defer rows.Close()

	var invites []*Invite
	for rows.Next() {
		inv := &Invite{}
		if err := rows.Scan(&inv.Code, &inv.GroupID, &inv.OwnerMemberID, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite code: %w", err)
		}
		invites = append(invites, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invite codes: %w", err)
	}

	return invites, nil
}
