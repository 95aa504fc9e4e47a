// Package click implements the Click merchant API: invoice creation and
// invoice status callbacks
package click

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Shakha99/backend-repo/internal/apperr"
	"github.com/Shakha99/backend-repo/internal/gateway"
)

const (
	authHeader   = "Auth"
	statusPaid   = "paid"
	invoicePath  = "/invoice/create"
	codeSuccess  = 0
	codeAuth     = -1
	codeBadInput = -8
	codeNotFound = -6
	codeRejected = -9
	codeInternal = -7
)

// Config holds the merchant credentials and endpoints
type Config struct {
	MerchantID  string
	Secret      string
	APIURL      string
	CheckoutURL string
	ReturnURL   string
}

// Gateway talks to the Click merchant API
type Gateway struct {
	cfg    Config
	client *http.Client
}

// New creates a Click gateway. client carries the request timeout
func New(cfg Config, client *http.Client) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{cfg: cfg, client: client}
}

type invoiceRequest struct {
	ServiceID       string      `json:"service_id"`
	MerchantTransID string      `json:"merchant_trans_id"`
	Amount          json.Number `json:"amount"`
	ReturnURL       string      `json:"return_url,omitempty"`
}

type invoiceResponse struct {
	ErrorCode int         `json:"error_code"`
	ErrorNote string      `json:"error_note"`
	InvoiceID json.Number `json:"invoice_id"`
}

// Provider returns gateway.Click
func (g *Gateway) Provider() gateway.Provider {
	return gateway.Click
}

// CreateTransaction creates an invoice and returns its checkout URL
func (g *Gateway) CreateTransaction(ctx context.Context, charge gateway.Charge) (*gateway.Transaction, error) {
	header := http.Header{}
	header.Set(authHeader, g.cfg.Secret)

	req := invoiceRequest{
		ServiceID:       g.cfg.MerchantID,
		MerchantTransID: charge.PaymentID,
		Amount:          json.Number(charge.Amount.StringFixed(2)),
		ReturnURL:       g.cfg.ReturnURL,
	}

	var resp invoiceResponse
	url := strings.TrimRight(g.cfg.APIURL, "/") + invoicePath
	if err := gateway.PostJSON(ctx, g.client, url, header, req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorCode != codeSuccess {
		return nil, fmt.Errorf("%w: invoice/create returned %d: %s", gateway.ErrUpstream, resp.ErrorCode, resp.ErrorNote)
	}

	invoiceID := resp.InvoiceID.String()
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: empty invoice id", gateway.ErrUpstream)
	}

	return &gateway.Transaction{
		ID:         invoiceID,
		PaymentURL: strings.TrimRight(g.cfg.CheckoutURL, "/") + "/" + invoiceID,
	}, nil
}

type callbackRequest struct {
	InvoiceID json.Number `json:"invoice_id"`
	Status    string      `json:"status"`
}

// ParseCallback authenticates and decodes an invoice status notification
func (g *Gateway) ParseCallback(r *http.Request) (*gateway.Callback, error) {
	if subtle.ConstantTimeCompare([]byte(r.Header.Get(authHeader)), []byte(g.cfg.Secret)) != 1 {
		return &gateway.Callback{}, gateway.ErrUnauthorized
	}

	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &gateway.Callback{}, fmt.Errorf("%w: %v", gateway.ErrMalformed, err)
	}

	cb := &gateway.Callback{TransactionID: req.InvoiceID.String()}
	if cb.TransactionID == "" {
		return cb, fmt.Errorf("%w: missing invoice_id", gateway.ErrMalformed)
	}
	if req.Status == statusPaid {
		cb.Outcome = gateway.OutcomePaid
	}

	return cb, nil
}

// Respond writes Click's {error, error_note} acknowledgement
func (g *Gateway) Respond(w http.ResponseWriter, _ *gateway.Callback, err error) {
	if err != nil {
		gateway.WriteJSON(w, map[string]any{
			"error":      errorCode(err),
			"error_note": apperr.MessageOf(err),
		})
		return
	}
	gateway.WriteJSON(w, map[string]any{"error": codeSuccess, "error_note": "Success"})
}

func errorCode(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthenticated:
		return codeAuth
	case apperr.KindBadRequest:
		return codeBadInput
	case apperr.KindNotFound:
		return codeNotFound
	case apperr.KindInvalidState, apperr.KindConflict:
		return codeRejected
	default:
		return codeInternal
	}
}
