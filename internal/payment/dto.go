package payment

import "github.com/shopspring/decimal"

// InitRequest starts a gateway transaction for the caller's payment
type InitRequest struct {
	GroupID  int64  `json:"group_id" validate:"required,gt=0"`
	Provider string `json:"provider" validate:"required,oneof=payme click"`
}

// InitResponse carries the URL the user pays at
type InitResponse struct {
	PaymentID     string          `json:"payment_id"`
	TransactionID string          `json:"transaction_id"`
	Provider      string          `json:"provider"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentURL    string          `json:"payment_url"`
}
