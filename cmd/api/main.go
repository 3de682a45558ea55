package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/davidhalperin/gemcore-backend/api/routes"
	"github.com/davidhalperin/gemcore-backend/internal/auth"
	"github.com/davidhalperin/gemcore-backend/internal/costs"
	"github.com/davidhalperin/gemcore-backend/internal/deductions"
	"github.com/davidhalperin/gemcore-backend/internal/history"
	"github.com/davidhalperin/gemcore-backend/internal/inventory"
	"github.com/davidhalperin/gemcore-backend/internal/orders"
	"github.com/davidhalperin/gemcore-backend/internal/users"
	"github.com/davidhalperin/gemcore-backend/pkg/auth/session"
	"github.com/davidhalperin/gemcore-backend/pkg/config"
	"github.com/davidhalperin/gemcore-backend/pkg/db"
	"github.com/davidhalperin/gemcore-backend/pkg/logger"
	"github.com/davidhalperin/gemcore-backend/pkg/metrics"
	"github.com/davidhalperin/gemcore-backend/pkg/migrate"
	"github.com/davidhalperin/gemcore-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildServices wires the repositories and services in dependency order:
// users feed the history recorder, inventory and costs feed the deduction
// engine, and the deduction engine and orders both drive cost recalculation.
func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessionManager *session.Manager) (routes.Services, error) {
	gdb := dbClient.DB()

	usersRepo := users.NewRepository(gdb)
	usersService, err := users.NewService(usersRepo, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}

	deductionMetrics := metrics.NewDeductionMetrics(prometheus.DefaultRegisterer)

	historyRepo := history.NewRepository(gdb)
	recorder, err := history.NewRecorder(historyRepo, usersRepo, deductionMetrics, logg)
	if err != nil {
		return routes.Services{}, err
	}

	inventoryRepo := inventory.NewRepository(gdb)
	inventoryService, err := inventory.NewService(inventoryRepo, dbClient, recorder, historyRepo)
	if err != nil {
		return routes.Services{}, err
	}

	costsService, err := costs.NewService(costs.NewRepository(gdb), cfg.Labor)
	if err != nil {
		return routes.Services{}, err
	}

	deductionsService, err := deductions.NewService(
		deductions.NewRepository(gdb),
		dbClient,
		inventoryRepo,
		inventoryRepo,
		recorder,
		costsService,
		deductionMetrics,
		logg,
	)
	if err != nil {
		return routes.Services{}, err
	}

	ordersService, err := orders.NewService(orders.NewRepository(gdb), costsService)
	if err != nil {
		return routes.Services{}, err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:       authService,
		Users:      usersService,
		Inventory:  inventoryService,
		Deductions: deductionsService,
		Orders:     ordersService,
		Costs:      costsService,
	}, nil
}
