package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/davidhalperin/gemcore-backend/api/responses"
	"github.com/davidhalperin/gemcore-backend/pkg/config"
	"github.com/davidhalperin/gemcore-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type dependencyPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gemcore-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies. A failed ping flips the endpoint
// to 503 so the platform stops routing traffic at this instance.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP dependencyPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gemcore-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["postgres"] = pingStatus(ctx, logg, "postgres", dbP, &healthy)
		checks["redis"] = pingStatus(ctx, logg, "redis", redisP, &healthy)

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": map[bool]string{true: "ready", false: "degraded"}[healthy],
			"checks": checks,
		})
	}
}

func pingStatus(ctx context.Context, logg *logger.Logger, name string, p dependencyPinger, healthy *bool) string {
	if p == nil {
		*healthy = false
		return "unconfigured"
	}
	if err := p.Ping(ctx); err != nil {
		*healthy = false
		if logg != nil {
			logg.Error(logg.WithField(ctx, "dependency", name), "readiness ping failed", err)
		}
		return "down"
	}
	return "up"
}
