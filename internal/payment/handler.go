package payment

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shakha99/backend-repo/internal/gateway"
	"github.com/Shakha99/backend-repo/internal/metrics"
	"github.com/Shakha99/backend-repo/pkg/middleware"
	"github.com/Shakha99/backend-repo/pkg/request"
	"github.com/Shakha99/backend-repo/pkg/response"
)

// Handler handles HTTP requests for payment operations
type Handler struct {
	service    *Service
	reconciler *Reconciler
	gateways   *gateway.Registry
}

// NewHandler creates a new payment handler
func NewHandler(service *Service, reconciler *Reconciler, gateways *gateway.Registry) *Handler {
	return &Handler{service: service, reconciler: reconciler, gateways: gateways}
}

// Routes returns the router for payment endpoints. Callbacks authenticate
// with provider credentials instead of session tokens
func (h *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(requireAuth).Post("/init", h.Init)
	r.Post("/callback/{provider}", h.Callback)
	return r
}

// Init handles POST /payment/init
// @Summary      Start a payment
// @Description  Create a gateway transaction for the caller's pending payment and return the URL to pay at
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body InitRequest true "Group and provider"
// @Success      200 {object} response.APIResponse{data=InitResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Failure      502 {object} response.APIResponse
// @Router       /payment/init [post]
func (h *Handler) Init(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req InitRequest
	if err := request.Decode(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	started, err := h.service.Initiate(r.Context(), req.GroupID, userID, req.Provider)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, &InitResponse{
		PaymentID:     started.Payment.ID.String(),
		TransactionID: *started.Payment.TransactionID,
		Provider:      *started.Payment.Provider,
		Amount:        started.Payment.Amount,
		PaymentURL:    started.PaymentURL,
	})
}

// Callback handles POST /payment/callback/{provider}
// @Summary      Payment provider callback
// @Description  Authenticated by provider credentials; replies in the provider's own format. Redelivery is acknowledged as success
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        provider path string true "payme or click"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.APIResponse
// @Router       /payment/callback/{provider} [post]
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	gw, err := h.gateways.Get(provider)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	cb, err := gw.ParseCallback(r)
	if err != nil {
		metrics.Callbacks.WithLabelValues(provider, metrics.ResultRejected).Inc()
		response.LogRejected(r, err)
		gw.Respond(w, cb, err)
		return
	}

	if cb.Outcome == "" {
		gw.Respond(w, cb, nil)
		return
	}

	res, err := h.reconciler.ApplyOutcome(r.Context(), cb.TransactionID, cb.Outcome)
	switch {
	case err != nil:
		metrics.Callbacks.WithLabelValues(provider, metrics.ResultError).Inc()
		response.LogRejected(r, err)
	case res.Applied:
		metrics.Callbacks.WithLabelValues(provider, metrics.ResultOK).Inc()
	default:
		metrics.Callbacks.WithLabelValues(provider, metrics.ResultDuplicate).Inc()
	}

	gw.Respond(w, cb, err)
}
