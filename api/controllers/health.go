package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/veritrace/veritrace-backend/api/responses"
	"github.com/veritrace/veritrace-backend/pkg/config"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is the connectivity check each backing service exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VeriTrace-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency. Nil pingers are skipped so the
// same handler serves deployments that omit optional services.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VeriTrace-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				if logg != nil {
					logg.Error(ctx, fmt.Sprintf("%s readiness check failed", name), err)
				}
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s unavailable", name)))
				return
			}
			checks[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{
			"status": "ready",
			"checks": checks,
		})
	}
}
