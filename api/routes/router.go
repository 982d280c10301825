package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/calderahq/storefront-backend/api/controllers"
	"github.com/calderahq/storefront-backend/api/middleware"
	"github.com/calderahq/storefront-backend/internal/auth"
	"github.com/calderahq/storefront-backend/internal/orders"
	"github.com/calderahq/storefront-backend/pkg/config"
	"github.com/calderahq/storefront-backend/pkg/db"
	"github.com/calderahq/storefront-backend/pkg/enums"
	"github.com/calderahq/storefront-backend/pkg/logger"
	"github.com/calderahq/storefront-backend/pkg/mailer"
	"github.com/calderahq/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	idemStore redis.IdempotencyStore,
	mailP mailer.Pinger,
	authService auth.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, mailP))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", controllers.AuthSignup(authService, logg))
		r.Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/verify", controllers.AuthVerifyEmail(authService, logg))
		r.Post("/forgot-password", controllers.AuthForgotPassword(authService, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Order placement allows guests; identity is attached when a token
		// is present.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Post("/orders", controllers.CreateOrder(ordersService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/me", controllers.Me(authService, logg))

			r.Get("/orders", controllers.ListMyOrders(ordersService, logg))
			r.Get("/orders/{orderNumber}", controllers.OrderDetail(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

		r.Get("/ping", controllers.AdminPing())
	})

	return r
}
