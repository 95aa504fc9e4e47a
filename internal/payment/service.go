// Package payment keeps the per-member payment ledger: it opens pending
// payments, binds them to remote gateway transactions and reconciles
// asynchronous gateway callbacks into member and group state
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shakha99/backend-repo/internal/apperr"
	"github.com/Shakha99/backend-repo/internal/catalog"
	"github.com/Shakha99/backend-repo/internal/database"
	"github.com/Shakha99/backend-repo/internal/gateway"
	"github.com/Shakha99/backend-repo/internal/group"
	"github.com/Shakha99/backend-repo/internal/metrics"
)

// Common errors
var (
	ErrPaymentNotFound    = apperr.New(apperr.KindNotFound, "payment not found")
	ErrDuplicatePayment   = apperr.New(apperr.KindConflict, "member already has a payment in this group")
	ErrAlreadyBound       = apperr.New(apperr.KindConflict, "payment is already bound to a transaction")
	ErrAlreadyPaid        = apperr.New(apperr.KindConflict, "payment is already paid")
	ErrUnknownTransaction = apperr.New(apperr.KindNotFound, "unknown transaction")
	ErrDowngrade          = apperr.New(apperr.KindInvalidState, "a paid payment cannot return to pending")
	ErrInvalidOutcome     = apperr.New(apperr.KindBadRequest, "unsupported payment outcome")
)

// Initiation is a started gateway transaction for a payment
type Initiation struct {
	Payment    *Payment
	PaymentURL string
}

// Service handles payment ledger business logic
type Service struct {
	db       *database.DB
	repo     *Repository
	groups   *group.Repository
	catalog  *catalog.Service
	gateways *gateway.Registry
	now      func() time.Time
}

// NewService creates a new payment service
func NewService(db *database.DB, repo *Repository, groups *group.Repository, catalog *catalog.Service, gateways *gateway.Registry, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, repo: repo, groups: groups, catalog: catalog, gateways: gateways, now: now}
}

// Open creates the pending payment of a member at the current offer price
// q is the caller's transaction
func (s *Service) Open(ctx context.Context, q database.Querier, groupID, userID int64) (*Payment, error) {
	amount, err := s.catalog.MemberPrice(ctx, q)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Payment{
		ID:        uuid.New(),
		GroupID:   groupID,
		UserID:    userID,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Create(ctx, q, p)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrDuplicatePayment
	}

	return p, nil
}

// OpenPayment satisfies group.PaymentOpener
func (s *Service) OpenPayment(ctx context.Context, q database.Querier, groupID, userID int64) error {
	_, err := s.Open(ctx, q, groupID, userID)
	return err
}

// Bind attaches a remote transaction to a payment exactly once
func (s *Service) Bind(ctx context.Context, paymentID uuid.UUID, transactionID string, provider gateway.Provider) error {
	ok, err := s.repo.Bind(ctx, paymentID, transactionID, string(provider), s.now().UTC())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: transaction %s belongs to another payment", ErrAlreadyBound, transactionID)
		}
		return err
	}
	if !ok {
		existing, err := s.repo.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrPaymentNotFound
		}
		return ErrAlreadyBound
	}
	return nil
}

// Initiate starts a gateway transaction for the caller's payment in a group
// and binds it. The gateway call runs outside any transaction
func (s *Service) Initiate(ctx context.Context, groupID, userID int64, provider string) (*Initiation, error) {
	gw, err := s.gateways.Get(provider)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.GetByMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}

	g, err := s.groups.GetByID(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, group.ErrGroupNotFound
	}
	if g.Status.Terminal() || g.Expired(s.now().UTC()) {
		return nil, group.ErrGroupClosed
	}

	if p.Status == StatusPaid {
		return nil, ErrAlreadyPaid
	}
	if p.Bound() {
		return nil, ErrAlreadyBound
	}

	tx, err := gw.CreateTransaction(ctx, gateway.Charge{PaymentID: p.ID.String(), Amount: p.Amount})
	if err != nil {
		metrics.GatewayCalls.WithLabelValues(string(gw.Provider()), metrics.ResultError).Inc()
		if apperr.KindOf(err) != apperr.KindUpstream {
			err = fmt.Errorf("%w: %v", gateway.ErrUpstream, err)
		}
		return nil, err
	}
	metrics.GatewayCalls.WithLabelValues(string(gw.Provider()), metrics.ResultOK).Inc()

	if err := s.Bind(ctx, p.ID, tx.ID, gw.Provider()); err != nil {
		return nil, err
	}

	txID, name := tx.ID, string(gw.Provider())
	p.TransactionID = &txID
	p.Provider = &name

	slog.Info("Payment initiated", "payment_id", p.ID, "group_id", groupID, "user", userID, "provider", name, "transaction_id", txID)
	return &Initiation{Payment: p, PaymentURL: tx.PaymentURL}, nil
}
