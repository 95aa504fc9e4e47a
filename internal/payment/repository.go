package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Shakha99/backend-repo/internal/database"
)

// Repository handles payment persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new payment repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const paymentColumns = `id, group_id, user_tg_id, amount, status, transaction_id, provider, paid_at, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*Payment, error) {
	p := &Payment{}
	var (
		transactionID sql.NullString
		provider      sql.NullString
		paidAt        sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.GroupID,
		&p.UserID,
		&p.Amount,
		&p.Status,
		&transactionID,
		&provider,
		&paidAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if transactionID.Valid {
		p.TransactionID = &transactionID.String
	}
	if provider.Valid {
		p.Provider = &provider.String
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	return p, nil
}

// Create inserts a pending payment. Returns false when the member already has one
func (r *Repository) Create(ctx context.Context, q database.Querier, p *Payment) (bool, error) {
	query := `
		INSERT INTO payments (id, group_id, user_tg_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (group_id, user_tg_id) DO NOTHING
	`

	result, err := q.ExecContext(ctx, query,
		p.ID,
		p.GroupID,
		p.UserID,
		p.Amount,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create payment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// GetByID retrieves a payment by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// GetByMember retrieves the payment of a member of a group
func (r *Repository) GetByMember(ctx context.Context, groupID, userID int64) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE group_id = $1 AND user_tg_id = $2`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, groupID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// GetByTransactionForUpdate retrieves the payment bound to a remote
// transaction and locks its row until tx ends
func (r *Repository) GetByTransactionForUpdate(ctx context.Context, tx *sql.Tx, transactionID string) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1 ` + r.db.ForUpdate()

	p, err := scanPayment(tx.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}

	return p, nil
}

// Bind attaches a remote transaction to an unbound payment.
// Returns false when the payment is already bound
func (r *Repository) Bind(ctx context.Context, id uuid.UUID, transactionID, provider string, at time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET transaction_id = $1, provider = $2, updated_at = $3
		WHERE id = $4 AND transaction_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, transactionID, provider, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to bind transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// MarkPaid moves a pending payment to paid
func (r *Repository) MarkPaid(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE payments
		SET status = 'paid', paid_at = $1, updated_at = $2
		WHERE id = $3 AND status = 'pending'
	`

	if _, err := tx.ExecContext(ctx, query, at, at, id); err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}

	return nil
}
