package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Shakha99/backend-repo/internal/database"
)

// Repository handles product persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new product repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// First returns the group-buy offer, the product with the lowest id
// q may be a transaction
func (r *Repository) First(ctx context.Context, q database.Querier) (*Product, error) {
	query := `
		SELECT id, name, price, discounted_price
		FROM products
		ORDER BY id
		LIMIT 1
	`

	p := &Product{}
	err := q.QueryRowContext(ctx, query).Scan(&p.ID, &p.Name, &p.Price, &p.DiscountedPrice)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return p, nil
}

// Create inserts a product
func (r *Repository) Create(ctx context.Context, q database.Querier, p *Product) error {
	query := `
		INSERT INTO products (name, price, discounted_price)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := q.QueryRowContext(ctx, query, p.Name, p.Price, p.DiscountedPrice).Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}
