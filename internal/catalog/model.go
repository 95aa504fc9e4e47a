package catalog

import "github.com/shopspring/decimal"

// Product is a purchasable offer. DiscountedPrice is what each group member pays
type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}
