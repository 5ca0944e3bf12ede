package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veritrace/veritrace-backend/api/controllers"
	"github.com/veritrace/veritrace-backend/api/middleware"
	product "github.com/veritrace/veritrace-backend/internal/products"
	"github.com/veritrace/veritrace-backend/internal/verification"
	"github.com/veritrace/veritrace-backend/pkg/config"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/redis"
)

// Dependencies carries everything the router wires into handlers. Optional
// entries may be nil; the matching routes degrade gracefully.
type Dependencies struct {
	Verification *verification.Service
	Products     product.Service
	Redis        *redis.Client
	Pingers      map[string]controllers.Pinger
	Metrics      http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	publicPolicy := middleware.NewRateLimitPolicy(
		"public",
		cfg.RateLimit.PublicWindow,
		cfg.RateLimit.PublicIPLimit,
	)
	submitPolicy := middleware.NewRateLimitPolicy(
		"submit",
		cfg.RateLimit.PublicWindow,
		cfg.RateLimit.SubmitIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(limiter(submitPolicy, deps.Redis, logg)).
			Post("/products", controllers.SubmitProduct(deps.Verification, logg))
		r.With(limiter(publicPolicy, deps.Redis, logg)).
			Get("/verify/{batchID}", controllers.VerifyProduct(deps.Verification, logg))
		r.With(limiter(publicPolicy, deps.Redis, logg)).
			Get("/products/{batchID}", controllers.GetProduct(deps.Products, logg))
		r.With(limiter(publicPolicy, deps.Redis, logg)).
			Get("/admin/stats", controllers.RegistryStats(deps.Verification, logg))
	})

	return r
}

func limiter(policy middleware.RateLimitPolicy, client *redis.Client, logg *logger.Logger) func(http.Handler) http.Handler {
	if client == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(policy, client, logg)
}
