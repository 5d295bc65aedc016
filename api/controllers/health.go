package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dmarroquin/kitloop-backend/api/responses"
	"github.com/dmarroquin/kitloop-backend/pkg/config"
	"github.com/dmarroquin/kitloop-backend/pkg/db"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
	"github.com/dmarroquin/kitloop-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kitloop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kitloop-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		failed := false

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				checks["postgres"] = err.Error()
				failed = true
			} else {
				checks["postgres"] = "ok"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				failed = true
			} else {
				checks["redis"] = "ok"
			}
		}

		if failed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
