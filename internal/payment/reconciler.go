package payment

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/Shakha99/backend-repo/internal/database"
	"github.com/Shakha99/backend-repo/internal/gateway"
	"github.com/Shakha99/backend-repo/internal/group"
)

// GroupEvaluator marks a member paid and re-evaluates the group inside tx
type GroupEvaluator interface {
	MarkPaid(ctx context.Context, tx *sql.Tx, groupID, userID int64) (*group.Evaluation, error)
}

// Result is the outcome of applying a callback
type Result struct {
	Payment     *Payment
	Applied     bool
	GroupStatus group.Status
}

// Reconciler applies gateway callbacks to the ledger
type Reconciler struct {
	db        *database.DB
	repo      *Repository
	groups    *group.Repository
	evaluator GroupEvaluator
	now       func() time.Time
}

// NewReconciler creates a reconciler
func NewReconciler(db *database.DB, repo *Repository, groups *group.Repository, evaluator GroupEvaluator, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{db: db, repo: repo, groups: groups, evaluator: evaluator, now: now}
}

// ApplyOutcome applies a callback for transactionID in one transaction.
// The payment row is locked first, then the group row. Redelivery of an
// already applied outcome succeeds with Applied false
func (r *Reconciler) ApplyOutcome(ctx context.Context, transactionID string, outcome gateway.Outcome) (*Result, error) {
	target := Status(outcome)
	if target != StatusPending && target != StatusPaid {
		return nil, ErrInvalidOutcome
	}

	var res *Result
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		p, err := r.repo.GetByTransactionForUpdate(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrUnknownTransaction
		}

		res = &Result{Payment: p}

		if p.Status == target {
			g, err := r.groups.GetByID(ctx, tx, p.GroupID)
			if err != nil {
				return err
			}
			if g == nil {
				return group.ErrGroupNotFound
			}
			res.GroupStatus = g.Status
			return nil
		}
		if target == StatusPending {
			return ErrDowngrade
		}

		at := r.now().UTC()
		if err := r.repo.MarkPaid(ctx, tx, p.ID, at); err != nil {
			return err
		}
		p.Status = StatusPaid
		p.PaidAt = &at
		p.UpdatedAt = at

		eval, err := r.evaluator.MarkPaid(ctx, tx, p.GroupID, p.UserID)
		if err != nil {
			return err
		}

		res.Applied = true
		res.GroupStatus = eval.Group.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Applied {
		slog.Info("Payment confirmed", "payment_id", res.Payment.ID, "group_id", res.Payment.GroupID, "user", res.Payment.UserID, "group_status", res.GroupStatus)
	} else {
		slog.Info("Duplicate callback ignored", "transaction_id", transactionID, "status", res.Payment.Status)
	}
	return res, nil
}
