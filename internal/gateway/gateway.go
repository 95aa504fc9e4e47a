// Package gateway defines the contract between the payment ledger and the
// remote payment providers, and a registry to look providers up by name
package gateway

import (
	"context"
	"net/http"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Shakha99/backend-repo/internal/apperr"
)

// Provider names a payment provider
type Provider string

const (
	Payme Provider = "payme"
	Click Provider = "click"
)

// Outcome is the payment status a callback reports
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomePaid    Outcome = "paid"
)

// Common errors
var (
	ErrUnknownProvider = apperr.New(apperr.KindBadRequest, "unknown payment provider")
	ErrUpstream        = apperr.New(apperr.KindUpstream, "payment provider request failed")
	ErrUnauthorized    = apperr.New(apperr.KindUnauthenticated, "callback authentication failed")
	ErrMalformed       = apperr.New(apperr.KindBadRequest, "malformed callback")
)

// Charge is a request to collect Amount for an internal payment
type Charge struct {
	PaymentID string
	Amount    decimal.Decimal
}

// Transaction is the provider's record of a started payment
type Transaction struct {
	ID         string
	PaymentURL string
}

// Callback is a parsed, authenticated provider notification.
// An empty Outcome means the notification carries nothing to apply
type Callback struct {
	TransactionID string
	Outcome       Outcome

	// RequestID echoes the provider's request identifier in the reply
	RequestID any
}

// Gateway initiates remote transactions and interprets their callbacks
type Gateway interface {
	Provider() Provider
	CreateTransaction(ctx context.Context, charge Charge) (*Transaction, error)
	// ParseCallback authenticates and decodes an inbound notification
	ParseCallback(r *http.Request) (*Callback, error)
	// Respond writes the acknowledgement the provider expects. err is the
	// result of parsing or applying the callback
	Respond(w http.ResponseWriter, cb *Callback, err error)
}

// Registry maps provider names to gateways
type Registry struct {
	gateways map[Provider]Gateway
}

// NewRegistry creates a registry holding gws
func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[Provider]Gateway, len(gws))}
	for _, gw := range gws {
		r.gateways[gw.Provider()] = gw
	}
	return r
}

// Get returns the gateway for name
func (r *Registry) Get(name string) (Gateway, error) {
	gw, ok := r.gateways[Provider(name)]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return gw, nil
}

// Providers lists the registered provider names in order
func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.gateways))
	for p := range r.gateways {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
