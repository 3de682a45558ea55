package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidhalperin/gemcore-backend/api/controllers"
	"github.com/davidhalperin/gemcore-backend/api/middleware"
	"github.com/davidhalperin/gemcore-backend/internal/auth"
	"github.com/davidhalperin/gemcore-backend/internal/costs"
	"github.com/davidhalperin/gemcore-backend/internal/deductions"
	"github.com/davidhalperin/gemcore-backend/internal/inventory"
	"github.com/davidhalperin/gemcore-backend/internal/orders"
	"github.com/davidhalperin/gemcore-backend/internal/users"
	"github.com/davidhalperin/gemcore-backend/pkg/auth/session"
	"github.com/davidhalperin/gemcore-backend/pkg/config"
	"github.com/davidhalperin/gemcore-backend/pkg/logger"
	"github.com/davidhalperin/gemcore-backend/pkg/redis"
)

type dependencyPinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the wired business services the router exposes.
type Services struct {
	Auth       auth.Service
	Users      users.Service
	Inventory  inventory.Service
	Deductions deductions.Service
	Orders     orders.Service
	Costs      costs.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP dependencyPinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/parcels", func(r chi.Router) {
			r.Post("/", controllers.ParcelCreate(svcs.Inventory, logg))
			r.Get("/", controllers.ParcelList(svcs.Inventory, logg))
			r.Route("/{parcelId}", func(r chi.Router) {
				r.Get("/", controllers.ParcelGet(svcs.Inventory, logg))
				r.Patch("/", controllers.ParcelUpdate(svcs.Inventory, logg))
				r.Delete("/", controllers.ParcelDelete(svcs.Inventory, logg))
				r.Post("/adjust", controllers.ParcelAdjust(svcs.Inventory, logg))
				r.Post("/split", controllers.ParcelSplit(svcs.Inventory, logg))
				r.Get("/history", controllers.ParcelHistory(svcs.Inventory, logg))
			})
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(svcs.Orders, logg))
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderGet(svcs.Orders, logg))
				r.Patch("/", controllers.OrderUpdate(svcs.Orders, logg))

				r.Post("/items", controllers.OrderItemAdd(svcs.Orders, logg))
				r.Patch("/items/{itemId}", controllers.OrderItemUpdate(svcs.Orders, logg))
				r.Delete("/items/{itemId}", controllers.OrderItemRemove(svcs.Orders, logg))

				r.Post("/casting-lines", controllers.CastingLineAdd(svcs.Orders, logg))
				r.Delete("/casting-lines/{lineId}", controllers.CastingLineRemove(svcs.Orders, logg))

				r.Get("/deductions", controllers.DeductionListByOrder(svcs.Deductions, logg))
				r.Get("/history", controllers.OrderDeductionHistory(svcs.Deductions, logg))

				r.Get("/costs", controllers.OrderCostsGet(svcs.Costs, logg))
				r.Post("/costs/recalculate", controllers.OrderCostsRecalculate(svcs.Costs, logg))
			})
		})

		r.Route("/v1/deductions", func(r chi.Router) {
			r.Post("/", controllers.DeductionCreate(svcs.Deductions, logg))
			r.Post("/batch-delete", controllers.DeductionBatchDelete(svcs.Deductions, logg))
			r.Route("/{deductionId}", func(r chi.Router) {
				r.Get("/", controllers.DeductionGet(svcs.Deductions, logg))
				r.Patch("/", controllers.DeductionUpdate(svcs.Deductions, logg))
				r.Delete("/", controllers.DeductionDelete(svcs.Deductions, logg))
				r.Post("/include-in-cost", controllers.DeductionSetIncludeInCost(svcs.Deductions, logg))
				r.Post("/restore", controllers.DeductionRestore(svcs.Deductions, logg))
			})
		})

		r.Route("/v1/users", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Post("/", controllers.UserCreate(svcs.Users, logg))
			r.Get("/", controllers.UserList(svcs.Users, logg))
			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", controllers.UserGet(svcs.Users, logg))
				r.Patch("/", controllers.UserUpdate(svcs.Users, logg))
				r.Post("/active", controllers.UserSetActive(svcs.Users, logg))
			})
		})
	})

	return r
}
