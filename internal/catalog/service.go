// Package catalog looks up the fixed price of the group-buy offer
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Shakha99/backend-repo/internal/apperr"
	"github.com/Shakha99/backend-repo/internal/database"
)

// ErrNoProduct is returned when the catalog has not been seeded
var ErrNoProduct = apperr.New(apperr.KindInvalidState, "no product is on offer")

// Service handles catalog lookups
type Service struct {
	repo *Repository
}

// NewService creates a new catalog service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Offer returns the group-buy product
func (s *Service) Offer(ctx context.Context, q database.Querier) (*Product, error) {
	p, err := s.repo.First(ctx, q)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNoProduct
	}
	return p, nil
}

// MemberPrice returns the amount each group member pays
func (s *Service) MemberPrice(ctx context.Context, q database.Querier) (decimal.Decimal, error) {
	p, err := s.Offer(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	return p.DiscountedPrice, nil
}

// SeedIfEmpty inserts p when the catalog has no products. Reports whether it inserted
func (s *Service) SeedIfEmpty(ctx context.Context, q database.Querier, p *Product) (bool, error) {
	existing, err := s.repo.First(ctx, q)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	if !p.DiscountedPrice.IsPositive() {
		return false, fmt.Errorf("discounted price must be positive, got %s", p.DiscountedPrice)
	}

	if err := s.repo.Create(ctx, q, p); err != nil {
		return false, err
	}

	slog.Info("Seeded product", "id", p.ID, "name", p.Name, "discounted_price", p.DiscountedPrice.String())
	return true, nil
}
