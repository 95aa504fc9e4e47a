package group

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shakha99/backend-repo/pkg/middleware"
	"github.com/Shakha99/backend-repo/pkg/request"
	"github.com/Shakha99/backend-repo/pkg/response"
)

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.Status)
	return r
}

// Participate handles POST /participate
// @Summary      Create or join a group
// @Description  Without ref_code a new group is started with two invite codes; with ref_code the caller joins the inviter's group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ParticipateRequest false "Optional invite code"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /participate [post]
func (h *Handler) Participate(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req ParticipateRequest
	if err := request.DecodeOptional(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	group, err := h.service.Participate(r.Context(), userID, req.RefCode)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, group.ToResponse())
}

// Status handles GET /group/{id}
// @Summary      Group status
// @Description  Get a group with its members, paid count and remaining time
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=StatusResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /group/{id} [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	view, err := h.service.Status(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, view.ToResponse())
}
