package invite

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shakha99/backend-repo/pkg/middleware"
	"github.com/Shakha99/backend-repo/pkg/response"
)

// Handler handles HTTP requests for invite operations
type Handler struct {
	service *Service
}

// NewHandler creates a new invite handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for invite endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// List handles GET /invites
// @Summary      List invite links
// @Description  Deep links for every unredeemed code the caller owns in a forming group
// @Tags         invites
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.APIResponse{data=LinksResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /invites [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	links, err := h.service.ListLinks(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, &LinksResponse{Links: links})
}
