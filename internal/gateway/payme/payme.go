// Package payme implements the Payme merchant API: JSON-RPC transaction
// creation and PerformTransaction callbacks
package payme

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shakha99/backend-repo/internal/apperr"
	"github.com/Shakha99/backend-repo/internal/gateway"
)

const (
	// callbackLogin is the fixed basic auth user Payme sends on callbacks
	callbackLogin = "Paycom"
	// transactionTTL is how long Payme keeps a created transaction open
	transactionTTL = 12 * time.Hour

	methodCheckPerform  = "CheckPerformTransaction"
	methodCreate        = "CreateTransaction"
	methodPerform       = "PerformTransaction"
	statePerformed      = 2
	stateCreated        = 1
	errCodeUnauthorized = -32504
	errCodeInvalidJSON  = -32700
	errCodeNotFound     = -31003
	errCodeCannotApply  = -31008
	errCodeSystem       = -32400
)

// Config holds the merchant credentials and endpoints
type Config struct {
	MerchantID  string
	Key         string
	APIURL      string
	CheckoutURL string
}

// Gateway talks to the Payme merchant API
type Gateway struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

// New creates a Payme gateway. client carries the request timeout
func New(cfg Config, client *http.Client, now func() time.Time) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	if now == nil {
		now = time.Now
	}
	return &Gateway{cfg: cfg, client: client, now: now}
}

type rpcRequest struct {
	ID     any    `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message json.RawMessage `json:"message,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type account struct {
	OrderID string `json:"order_id"`
}

type chargeParams struct {
	Amount  int64   `json:"amount"`
	Account account `json:"account"`
	Time    int64   `json:"time,omitempty"`
}

// Provider returns gateway.Payme
func (g *Gateway) Provider() gateway.Provider {
	return gateway.Payme
}

// CreateTransaction checks that the charge is allowed, then creates the
// transaction and returns its checkout URL
func (g *Gateway) CreateTransaction(ctx context.Context, charge gateway.Charge) (*gateway.Transaction, error) {
	params := chargeParams{
		Amount:  Tiyin(charge.Amount),
		Account: account{OrderID: charge.PaymentID},
	}

	var check struct {
		Allow bool `json:"allow"`
	}
	if err := g.call(ctx, methodCheckPerform, params, &check); err != nil {
		return nil, err
	}
	if !check.Allow {
		return nil, fmt.Errorf("%w: payment %s not allowed", gateway.ErrUpstream, charge.PaymentID)
	}

	params.Time = g.now().Add(transactionTTL).UnixMilli()
	var created struct {
		Transaction string `json:"transaction"`
	}
	if err := g.call(ctx, methodCreate, params, &created); err != nil {
		return nil, err
	}
	if created.Transaction == "" {
		return nil, fmt.Errorf("%w: empty transaction id", gateway.ErrUpstream)
	}

	return &gateway.Transaction{
		ID:         created.Transaction,
		PaymentURL: strings.TrimRight(g.cfg.CheckoutURL, "/") + "/" + created.Transaction,
	}, nil
}

func (g *Gateway) call(ctx context.Context, method string, params, result any) error {
	header := http.Header{}
	header.Set("Authorization", "Basic "+basicToken(g.cfg.MerchantID, g.cfg.Key))

	req := rpcRequest{ID: g.now().UnixMilli(), Method: method, Params: params}
	var resp rpcResponse
	if err := gateway.PostJSON(ctx, g.client, g.cfg.APIURL, header, req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s returned code %d: %s", gateway.ErrUpstream, method, resp.Error.Code, resp.Error.Message)
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("%w: %s result: %v", gateway.ErrUpstream, method, err)
	}
	return nil
}

type callbackRequest struct {
	ID     any    `json:"id"`
	Method string `json:"method"`
	Params struct {
		ID string `json:"id"`
	} `json:"params"`
}

// ParseCallback authenticates a merchant API call from Payme. Only
// PerformTransaction carries an outcome
func (g *Gateway) ParseCallback(r *http.Request) (*gateway.Callback, error) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &gateway.Callback{}, fmt.Errorf("%w: %v", gateway.ErrMalformed, err)
	}
	cb := &gateway.Callback{RequestID: req.ID, TransactionID: req.Params.ID}

	login, password, ok := r.BasicAuth()
	if !ok || login != callbackLogin || subtle.ConstantTimeCompare([]byte(password), []byte(g.cfg.Key)) != 1 {
		return cb, gateway.ErrUnauthorized
	}

	if cb.TransactionID == "" {
		return cb, fmt.Errorf("%w: missing params.id", gateway.ErrMalformed)
	}
	if req.Method == methodPerform {
		cb.Outcome = gateway.OutcomePaid
	}

	return cb, nil
}

// Respond writes a JSON-RPC reply. Payme expects HTTP 200 with an error object on failure
func (g *Gateway) Respond(w http.ResponseWriter, cb *gateway.Callback, err error) {
	var id any
	if cb != nil {
		id = cb.RequestID
	}

	if err != nil {
		gateway.WriteJSON(w, map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"error": map[string]any{
				"code":    errorCode(err),
				"message": apperr.MessageOf(err),
			},
		})
		return
	}

	state := stateCreated
	result := map[string]any{"transaction": cb.TransactionID}
	if cb.Outcome == gateway.OutcomePaid {
		state = statePerformed
		result["perform_time"] = g.now().UnixMilli()
	}
	result["state"] = state

	gateway.WriteJSON(w, map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
}

func errorCode(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthenticated:
		return errCodeUnauthorized
	case apperr.KindBadRequest:
		return errCodeInvalidJSON
	case apperr.KindNotFound:
		return errCodeNotFound
	case apperr.KindInvalidState, apperr.KindConflict:
		return errCodeCannotApply
	default:
		return errCodeSystem
	}
}

// Tiyin converts an amount in sum to the integer tiyin Payme expects
func Tiyin(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// CallbackAuth returns the Authorization header value Payme sends with key
func CallbackAuth(key string) string {
	return "Basic " + basicToken(callbackLogin, key)
}

func basicToken(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}
