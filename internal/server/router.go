package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Shakha99/backend-repo/docs"
	"github.com/Shakha99/backend-repo/internal/group"
	"github.com/Shakha99/backend-repo/internal/invite"
	"github.com/Shakha99/backend-repo/internal/payment"
	"github.com/Shakha99/backend-repo/internal/user"
	"github.com/Shakha99/backend-repo/pkg/middleware"
)

// Handlers are the feature handlers mounted under /api
type Handlers struct {
	Users    *user.Handler
	Invites  *invite.Handler
	Groups   *group.Handler
	Payments *payment.Handler
}

// NewRouter builds the chi router
func NewRouter(h Handlers, tokens middleware.TokenValidator) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	requireAuth := middleware.RequireAuth(tokens)

	// API routes
	r.Route("/api", func(r chi.Router) {
		h.Users.Routes(r, requireAuth)

		r.Mount("/payment", h.Payments.Routes(requireAuth))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/participate", h.Groups.Participate)
			r.Mount("/invites", h.Invites.Routes())
			r.Mount("/group", h.Groups.Routes())
		})
	})

	return r
}
