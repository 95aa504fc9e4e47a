// Package server wires the feature packages into an HTTP application
package server

import (
	"net/http"
	"time"

	"github.com/Shakha99/backend-repo/internal/auth"
	"github.com/Shakha99/backend-repo/internal/catalog"
	"github.com/Shakha99/backend-repo/internal/config"
	"github.com/Shakha99/backend-repo/internal/database"
	"github.com/Shakha99/backend-repo/internal/gateway"
	"github.com/Shakha99/backend-repo/internal/gateway/click"
	"github.com/Shakha99/backend-repo/internal/gateway/payme"
	"github.com/Shakha99/backend-repo/internal/group"
	"github.com/Shakha99/backend-repo/internal/identity"
	"github.com/Shakha99/backend-repo/internal/invite"
	"github.com/Shakha99/backend-repo/internal/payment"
	"github.com/Shakha99/backend-repo/internal/user"
)

// App holds the constructed services and the HTTP handler
type App struct {
	Handler  http.Handler
	Users    *user.Service
	Catalog  *catalog.Service
	Groups   *group.Service
	Payments *payment.Service
}

// NewApp builds every service from cfg. now is the clock shared by all services
func NewApp(cfg *config.Config, db *database.DB, now func() time.Time) *App {
	if now == nil {
		now = time.Now
	}

	// Identity and sessions
	verifier := identity.NewVerifier(cfg.BotToken, cfg.InitDataMaxAge, now)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL, now)

	// Gateways share one client carrying the outbound timeout
	httpClient := &http.Client{Timeout: cfg.GatewayTimeout}
	gateways := gateway.NewRegistry(
		payme.New(payme.Config{
			MerchantID:  cfg.Payme.MerchantID,
			Key:         cfg.Payme.Key,
			APIURL:      cfg.Payme.APIURL,
			CheckoutURL: cfg.Payme.CheckoutURL,
		}, httpClient, now),
		click.New(click.Config{
			MerchantID:  cfg.Click.MerchantID,
			Secret:      cfg.Click.Secret,
			APIURL:      cfg.Click.APIURL,
			CheckoutURL: cfg.Click.CheckoutURL,
			ReturnURL:   cfg.Click.ReturnURL,
		}, httpClient),
	)

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, verifier, tokens, now)
	userHandler := user.NewHandler(userService)

	// Catalog
	catalogService := catalog.NewService(catalog.NewRepository(db))

	// Invite feature
	inviteService := invite.NewService(invite.NewRepository(db), cfg.BotLink, now)
	inviteHandler := invite.NewHandler(inviteService)

	// Payment ledger, then the group lifecycle that opens payments through it
	groupRepo := group.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	paymentService := payment.NewService(db, paymentRepo, groupRepo, catalogService, gateways, now)
	groupService := group.NewService(db, groupRepo, inviteService, paymentService, now)
	groupHandler := group.NewHandler(groupService)

	reconciler := payment.NewReconciler(db, paymentRepo, groupRepo, groupService, now)
	paymentHandler := payment.NewHandler(paymentService, reconciler, gateways)

	router := NewRouter(Handlers{
		Users:    userHandler,
		Invites:  inviteHandler,
		Groups:   groupHandler,
		Payments: paymentHandler,
	}, tokens)

	return &App{
		Handler:  router,
		Users:    userService,
		Catalog:  catalogService,
		Groups:   groupService,
		Payments: paymentService,
	}
}
