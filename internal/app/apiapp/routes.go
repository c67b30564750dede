package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/config"
	"github.com/ivankudzin/smmshop/internal/domain/rules"
	"github.com/ivankudzin/smmshop/internal/infra/metrics"
	accountsvc "github.com/ivankudzin/smmshop/internal/services/accounts"
	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
	catalogsvc "github.com/ivankudzin/smmshop/internal/services/catalog"
	dashboardsvc "github.com/ivankudzin/smmshop/internal/services/dashboard"
	ordersvc "github.com/ivankudzin/smmshop/internal/services/orders"
	profilesvc "github.com/ivankudzin/smmshop/internal/services/profiles"
	purchasesvc "github.com/ivankudzin/smmshop/internal/services/purchases"
	walletsvc "github.com/ivankudzin/smmshop/internal/services/wallet"
	"github.com/ivankudzin/smmshop/internal/transport/http/handlers"
	"github.com/ivankudzin/smmshop/internal/web"
)

type Dependencies struct {
	AuthService      *authsvc.Service
	AuthEvents       handlers.EventSubscriber
	AccountService   *accountsvc.Service
	CatalogService   *catalogsvc.Service
	DashboardService *dashboardsvc.Service
	OrderService     *ordersvc.Service
	ProfileService   *profilesvc.Service
	PurchaseService  *purchasesvc.Service
	WalletService    *walletsvc.Service
	Metrics          *metrics.Metrics
	Site             *web.Site
	Configured       func() bool
	PostgresCheck    handlers.HealthCheck
	RedisCheck       handlers.HealthCheck
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	cfg := deps.Config
	pricing := rules.Pricing{
		UnitScale:    cfg.Pricing.UnitScale,
		MinQuantity:  cfg.Pricing.MinQuantity,
		QuantityStep: cfg.Pricing.QuantityStep,
	}
	cookie := handlers.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}

	// A nil *authsvc.Service must stay a nil interface for the middlewares.
	var validator tokenValidator
	if deps.AuthService != nil {
		validator = deps.AuthService
	}

	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.AuthEvents, cookie, deps.Logger)
	configHandler := handlers.NewConfigHandler(deps.Configured, pricing)
	healthHandler := handlers.NewHealthHandler(deps.PostgresCheck, deps.RedisCheck)
	catalogHandler := handlers.NewCatalogHandler(deps.CatalogService, pricing, deps.Logger)
	purchaseHandler := handlers.NewPurchaseHandler(deps.PurchaseService, deps.Logger)
	ordersHandler := handlers.NewOrdersHandler(deps.OrderService, deps.Logger)
	walletHandler := handlers.NewWalletHandler(deps.WalletService, deps.Logger)
	dashboardHandler := handlers.NewDashboardHandler(deps.DashboardService, deps.Logger)
	profileHandler := handlers.NewProfileHandler(deps.ProfileService, deps.Logger)
	settingsHandler := handlers.NewSettingsHandler(deps.AuthService, deps.AccountService, cookie, deps.Logger)

	authMW := AuthMiddleware(validator, cookie.Name, deps.Logger)
	optionalAuthMW := OptionalAuth(validator, cookie.Name)
	configuredMW := RequireConfigured(deps.Configured)
	authRateMW := newIPLimiter(cfg.Rate.IPRPS, cfg.Rate.IPBurst).Middleware
	timeoutMW := chimiddleware.Timeout(requestTimeout)

	r.Get("/healthz", healthHandler.Get)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		// The event stream outlives the per-request timeout.
		r.With(configuredMW, authMW).Get("/auth/events", authHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(timeoutMW)

			r.Get("/config", configHandler.Handle)
			r.With(optionalAuthMW).Get("/auth/session", authHandler.Session)

			r.Group(func(r chi.Router) {
				r.Use(configuredMW, authRateMW)
				r.Post("/auth/signup", authHandler.SignUp)
				r.Post("/auth/signin", authHandler.SignIn)
				r.Post("/auth/refresh", authHandler.Refresh)
				r.With(authMW).Post("/auth/signout", authHandler.SignOut)
			})

			r.Group(func(r chi.Router) {
				r.Use(configuredMW)
				r.Get("/services", catalogHandler.List)
				r.Get("/services/{id}", catalogHandler.Get)
				r.With(optionalAuthMW).Post("/purchases", purchaseHandler.Create)

				r.Group(func(r chi.Router) {
					r.Use(authMW)
					r.Get("/orders", ordersHandler.List)
					r.Get("/wallet", walletHandler.Overview)
					r.Get("/wallet/add-funds", walletHandler.AddFunds)
					r.Post("/wallet/deposits", walletHandler.CreateDeposit)
					r.Put("/wallet/deposits/{reference}/receipt", walletHandler.UploadReceipt)
					r.Get("/dashboard", dashboardHandler.Get)
					r.Get("/profile", profileHandler.Get)
					r.Put("/profile", profileHandler.Update)
					r.Post("/settings/password", settingsHandler.ChangePassword)
					r.Post("/settings/delete-account", settingsHandler.DeleteAccount)
				})
			})
		})
	})

	if deps.Site != nil {
		pages := r.With(timeoutMW)
		for _, page := range web.Pages {
			pages.Method(http.MethodGet, page.Path, deps.Site)
		}
		r.NotFound(deps.Site.ServeHTTP)
	}
}
