package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the state of a member's payment
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Payment is one member's obligation within a group
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	GroupID       int64           `json:"group_id"`
	UserID        int64           `json:"user_tg_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Provider      *string         `json:"provider,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Bound reports whether a remote transaction has been attached
func (p *Payment) Bound() bool {
	return p.TransactionID != nil
}
