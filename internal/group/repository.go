package group

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Shakha99/backend-repo/internal/database"
)

// Repository handles group data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new group repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const groupColumns = `id, initiator_tg_id, status, start_time, closed_at`

func scanGroup(row interface{ Scan(...any) error }) (*Group, error) {
	g := &Group{}
	var closedAt sql.NullTime
	if err := row.Scan(&g.ID, &g.InitiatorID, &g.Status, &g.StartTime, &closedAt); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		g.ClosedAt = &closedAt.Time
	}
	return g, nil
}

// Create inserts a new forming group
func (r *Repository) Create(ctx context.Context, q database.Querier, initiatorID int64, startTime time.Time) (*Group, error) {
	query := `
		INSERT INTO groups (initiator_tg_id, status, start_time)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	group := &Group{
		InitiatorID: initiatorID,
		Status:      StatusForming,
		StartTime:   startTime,
	}
	if err := q.QueryRowContext(ctx, query, initiatorID, StatusForming, startTime).Scan(&group.ID); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

// GetByID retrieves a group by its ID
func (r *Repository) GetByID(ctx context.Context, q database.Querier, id int64) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

	group, err := scanGroup(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// GetForUpdate retrieves a group and locks its row until tx ends
func (r *Repository) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1 ` + r.db.ForUpdate()

	group, err := scanGroup(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock group: %w", err)
	}

	return group, nil
}

// Transition moves a forming group into a terminal status.
// Returns false when the group was no longer forming
func (r *Repository) Transition(ctx context.Context, tx *sql.Tx, id int64, to Status, at time.Time) (bool, error) {
	query := `
		UPDATE groups
		SET status = $1, closed_at = $2
		WHERE id = $3 AND status = 'forming'
	`

	result, err := tx.ExecContext(ctx, query, to, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to update group status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ListExpired returns the ids of forming groups that started before cutoff
func (r *Repository) ListExpired(ctx context.Context, cutoff time.Time) ([]int64, error) {
	query := `
		SELECT id
		FROM groups
		WHERE status = 'forming' AND start_time < $1
		ORDER BY start_time
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired groups: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	return ids, nil
}

// AddMember inserts a membership
func (r *Repository) AddMember(ctx context.Context, q database.Querier, groupID, userID int64, joinedAt time.Time) (*Member, error) {
	query := `
		INSERT INTO group_members (group_id, user_tg_id, paid, joined_at)
		VALUES ($1, $2, FALSE, $3)
		RETURNING id
	`

	member := &Member{
		GroupID:  groupID,
		UserID:   userID,
		JoinedAt: joinedAt,
	}
	if err := q.QueryRowContext(ctx, query, groupID, userID, joinedAt).Scan(&member.ID); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// GetMembers retrieves all members of a group with their profile names
func (r *Repository) GetMembers(ctx context.Context, q database.Querier, groupID int64) ([]*Member, error) {
	query := `
		SELECT gm.id, gm.group_id, gm.user_tg_id, gm.paid, gm.joined_at, u.username, u.first_name
		FROM group_members gm
		INNER JOIN users u ON gm.user_tg_id = u.tg_id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at, gm.id
	`

	rows, err := q.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		err := rows.Scan(
			&m.ID,
			&m.GroupID,
			&m.UserID,
			&m.Paid,
			&m.JoinedAt,
			&m.Username,
			&m.FirstName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// SetPaid flags a membership as paid. Returns false when there is no such member
func (r *Repository) SetPaid(ctx context.Context, tx *sql.Tx, groupID, userID int64) (bool, error) {
	query := `UPDATE group_members SET paid = TRUE WHERE group_id = $1 AND user_tg_id = $2`

	result, err := tx.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark member paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
