package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shakha99/backend-repo/pkg/middleware"
	"github.com/Shakha99/backend-repo/pkg/request"
	"github.com/Shakha99/backend-repo/pkg/response"
)

// Handler handles HTTP requests for user operations
type Handler struct {
	service *Service
}

// NewHandler creates a new user handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the user endpoints. requireAuth guards everything except /auth
func (h *Handler) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/auth", h.Authenticate)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/me", h.Me)
		r.Post("/language", h.SetLanguage)
	})
}

// Authenticate handles POST /auth
// @Summary      Authenticate with Telegram initData
// @Description  Verify the signed Mini App payload, upsert the user and issue a session token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body AuthRequest true "Signed initData"
// @Success      200 {object} response.APIResponse{data=AuthResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /auth [post]
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := request.Decode(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	user, token, err := h.service.Authenticate(r.Context(), req.InitData)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, &AuthResponse{User: user.ToResponse(), Token: token})
}

// Me handles GET /me
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	user, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}

// SetLanguage handles POST /language
// @Summary      Switch language
// @Description  Store the user's locale preference (ru, uz or en)
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SetLanguageRequest true "Locale"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /language [post]
func (h *Handler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	var req SetLanguageRequest
	if err := request.Decode(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	user, err := h.service.SetLanguage(r.Context(), userID, req.Language)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}
