// Package invite issues, redeems and lists single-use referral codes
package invite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shakha99/backend-repo/internal/apperr"
	"github.com/Shakha99/backend-repo/internal/database"
)

const (
	// codeBytes is the entropy of a code; hex encoding doubles its length
	codeBytes = 16
	// maxIssueAttempts bounds retries on a code collision
	maxIssueAttempts = 5
	// linkPrefix is prepended to a code in the startapp parameter
	linkPrefix = "ref_"
)

// Common errors
var (
	ErrInviteNotFound = apperr.New(apperr.KindNotFound, "invite code not found")
	ErrInviteRedeemed = apperr.New(apperr.KindConflict, "invite code already redeemed")
	errCodeExhausted  = errors.New("could not generate a unique invite code")
)

// Service handles invite code business logic
type Service struct {
	repo    *Repository
	botLink string
	now     func() time.Time
}

// NewService creates a new invite service. botLink is the Mini App link
// codes are appended to
func NewService(repo *Repository, botLink string, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, botLink: botLink, now: now}
}

// Issue generates count codes bound to the group and owned by the membership
func (s *Service) Issue(ctx context.Context, q database.Querier, groupID, ownerMemberID int64, count int) ([]*Invite, error) {
	invites := make([]*Invite, 0, count)
	for i := 0; i < count; i++ {
		inv, err := s.issueOne(ctx, q, groupID, ownerMemberID)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, nil
}

func (s *Service) issueOne(ctx context.Context, q database.Querier, groupID, ownerMemberID int64) (*Invite, error) {
	for i := 0; i < maxIssueAttempts; i++ {
		code, err := NewCode()
		if err != nil {
			return nil, err
		}

		inv := &Invite{
			Code:          code,
			GroupID:       groupID,
			OwnerMemberID: ownerMemberID,
			CreatedAt:     s.now().UTC(),
		}
		inserted, err := s.repo.Insert(ctx, q, inv)
		if err != nil {
			return nil, err
		}
		if inserted {
			return inv, nil
		}
	}
	return nil, errCodeExhausted
}

// Redeem consumes a code inside tx and returns it with its bound group.
// The code row stays locked until tx ends
func (s *Service) Redeem(ctx context.Context, tx *sql.Tx, code string, userID int64) (*Invite, error) {
	code = Normalize(code)

	inv, err := s.repo.GetForUpdate(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInviteNotFound
	}
	if inv.Redeemed() {
		return nil, ErrInviteRedeemed
	}

	at := s.now().UTC()
	ok, err := s.repo.MarkRedeemed(ctx, tx, code, userID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInviteRedeemed
	}

	inv.RedeemedBy = &userID
	inv.RedeemedAt = &at
	return inv, nil
}

// ListLinks returns deep links for every redeemable code the user owns
func (s *Service) ListLinks(ctx context.Context, userID int64) ([]string, error) {
	invites, err := s.repo.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, len(invites))
	for _, inv := range invites {
		links = append(links, s.Link(inv.Code))
	}
	return links, nil
}

// Link formats a code as a Mini App deep link
func (s *Service) Link(code string) string {
	return s.botLink + "?startapp=" + linkPrefix + code
}

// Normalize accepts a bare code or the startapp value "ref_<code>"
func Normalize(code string) string {
	return strings.TrimPrefix(strings.TrimSpace(code), linkPrefix)
}

// NewCode returns a random 128-bit hex code
func NewCode() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
