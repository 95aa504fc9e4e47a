// Package group implements the purchase group lifecycle: creation, joining
// by invite code, and the forming -> completed/failed state machine
//
// Every status write is a compare-and-set against 'forming' made while the
// group row is locked, so a group enters a terminal status exactly once no
// matter how many callbacks, joins or sweeps race on it
package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shakha99/backend-repo/internal/apperr"
	"github.com/Shakha99/backend-repo/internal/database"
	"github.com/Shakha99/backend-repo/internal/invite"
	"github.com/Shakha99/backend-repo/internal/metrics"
)

// Common errors
var (
	ErrGroupNotFound  = apperr.New(apperr.KindNotFound, "group not found")
	ErrMemberNotFound = apperr.New(apperr.KindNotFound, "member not found")
	ErrAlreadyMember  = apperr.New(apperr.KindConflict, "user is already a member of this group")
	ErrGroupFull      = apperr.New(apperr.KindConflict, "group already has all its members")
	ErrGroupClosed    = apperr.New(apperr.KindInvalidState, "group is no longer accepting members")
)

// PaymentOpener opens the pending payment of a new member in the caller's transaction
type PaymentOpener interface {
	OpenPayment(ctx context.Context, q database.Querier, groupID, userID int64) error
}

// Evaluation is the outcome of re-evaluating a group
type Evaluation struct {
	Group     *Group
	PaidCount int
	Changed   bool
}

// View is a group with its members as seen at a point in time
type View struct {
	Group    *Group
	Members  []*Member
	TimeLeft time.Duration
}

// Service handles group business logic
type Service struct {
	db       *database.DB
	repo     *Repository
	invites  *invite.Service
	payments PaymentOpener
	now      func() time.Time
}

// NewService creates a new group service
func NewService(db *database.DB, repo *Repository, invites *invite.Service, payments PaymentOpener, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, repo: repo, invites: invites, payments: payments, now: now}
}

// Participate joins the group behind refCode, or creates a new group when refCode is empty
func (s *Service) Participate(ctx context.Context, userID int64, refCode string) (*Group, error) {
	if invite.Normalize(refCode) == "" {
		return s.Create(ctx, userID)
	}
	return s.Join(ctx, refCode, userID)
}

// Create starts a forming group with the initiator as its first member,
// issues the initiator's invite codes and opens their payment
func (s *Service) Create(ctx context.Context, initiatorID int64) (*Group, error) {
	now := s.now().UTC()

	var group *Group
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		group, err = s.repo.Create(ctx, tx, initiatorID, now)
		if err != nil {
			return err
		}

		member, err := s.repo.AddMember(ctx, tx, group.ID, initiatorID, now)
		if err != nil {
			return err
		}

		if _, err := s.invites.Issue(ctx, tx, group.ID, member.ID, InvitesPerCreator); err != nil {
			return err
		}

		return s.payments.OpenPayment(ctx, tx, group.ID, initiatorID)
	})
	if err != nil {
		return nil, err
	}

	metrics.GroupsCreated.Inc()
	slog.Info("Group created", "group_id", group.ID, "initiator", initiatorID, "deadline", group.Deadline())
	return group, nil
}

// Join redeems code and adds the user to its group
func (s *Service) Join(ctx context.Context, code string, userID int64) (*Group, error) {
	var group *Group
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		inv, err := s.invites.Redeem(ctx, tx, code, userID)
		if err != nil {
			return err
		}

		group, err = s.repo.GetForUpdate(ctx, tx, inv.GroupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}

		now := s.now().UTC()
		if group.Status.Terminal() || group.Expired(now) {
			return ErrGroupClosed
		}

		members, err := s.repo.GetMembers(ctx, tx, group.ID)
		if err != nil {
			return err
		}
		for _, m := range members {
			if m.UserID == userID {
				return ErrAlreadyMember
			}
		}
		if len(members) >= RequiredMembers {
			return ErrGroupFull
		}

		if _, err := s.repo.AddMember(ctx, tx, group.ID, userID, now); err != nil {
			return err
		}

		return s.payments.OpenPayment(ctx, tx, group.ID, userID)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Member joined group", "group_id", group.ID, "user", userID)
	return group, nil
}

// Evaluate re-derives the group's status in its own transaction
func (s *Service) Evaluate(ctx context.Context, groupID int64) (*Evaluation, error) {
	var eval *Evaluation
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		eval, err = s.EvaluateTx(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return eval, nil
}

// EvaluateTx locks the group and re-derives its status inside tx
func (s *Service) EvaluateTx(ctx context.Context, tx *sql.Tx, groupID int64) (*Evaluation, error) {
	group, err := s.repo.GetForUpdate(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return s.evaluateLocked(ctx, tx, group)
}

// MarkPaid flags the member as paid and re-evaluates the group inside tx.
// A terminal group keeps its status
func (s *Service) MarkPaid(ctx context.Context, tx *sql.Tx, groupID, userID int64) (*Evaluation, error) {
	group, err := s.repo.GetForUpdate(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	ok, err := s.repo.SetPaid(ctx, tx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMemberNotFound
	}

	if group.Status.Terminal() {
		slog.Warn("Payment recorded on closed group", "group_id", groupID, "user", userID, "status", group.Status)
	}

	return s.evaluateLocked(ctx, tx, group)
}

// evaluateLocked applies the transition rules to a group whose row is locked by tx
func (s *Service) evaluateLocked(ctx context.Context, tx *sql.Tx, group *Group) (*Evaluation, error) {
	members, err := s.repo.GetMembers(ctx, tx, group.ID)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{Group: group, PaidCount: PaidCount(members)}
	if group.Status.Terminal() {
		return eval, nil
	}

	now := s.now().UTC()
	var next Status
	switch {
	case eval.PaidCount >= RequiredMembers:
		next = StatusCompleted
	case group.Expired(now):
		next = StatusFailed
	default:
		return eval, nil
	}

	ok, err := s.repo.Transition(ctx, tx, group.ID, next, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race that the row lock should have prevented; report the stored state
		current, err := s.repo.GetByID(ctx, tx, group.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrGroupNotFound
		}
		eval.Group = current
		return eval, nil
	}

	group.Status = next
	group.ClosedAt = &now
	eval.Changed = true

	metrics.GroupTransitions.WithLabelValues(string(next)).Inc()
	slog.Info("Group closed", "group_id", group.ID, "status", next, "paid", eval.PaidCount)
	return eval, nil
}

// Status returns the group with its members and remaining time. A forming
// group past its deadline is evaluated first
func (s *Service) Status(ctx context.Context, groupID int64) (*View, error) {
	group, err := s.repo.GetByID(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	now := s.now().UTC()
	if group.Status == StatusForming && group.Expired(now) {
		eval, err := s.Evaluate(ctx, groupID)
		if err != nil {
			return nil, err
		}
		group = eval.Group
	}

	members, err := s.repo.GetMembers(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}

	return &View{
		Group:    group,
		Members:  members,
		TimeLeft: group.TimeLeft(now),
	}, nil
}

// SweepExpired evaluates every forming group past its deadline.
// Returns the number of groups that were closed
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-Window)

	ids, err := s.repo.ListExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	closed := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		eval, err := s.Evaluate(ctx, id)
		if err != nil {
			slog.Error("Failed to evaluate expired group", "group_id", id, "error", err)
			errs = append(errs, fmt.Errorf("group %d: %w", id, err))
			continue
		}
		if eval.Changed {
			closed++
		}
	}

	if closed > 0 {
		slog.Info("Expired groups swept", "closed", closed, "candidates", len(ids))
	}
	return closed, errors.Join(errs...)
}
