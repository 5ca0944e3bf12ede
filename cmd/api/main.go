package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veritrace/veritrace-backend/api/controllers"
	"github.com/veritrace/veritrace-backend/api/routes"
	product "github.com/veritrace/veritrace-backend/internal/products"
	"github.com/veritrace/veritrace-backend/internal/verification"
	"github.com/veritrace/veritrace-backend/pkg/config"
	"github.com/veritrace/veritrace-backend/pkg/db"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	"github.com/veritrace/veritrace-backend/pkg/hedera"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/metrics"
	"github.com/veritrace/veritrace-backend/pkg/migrate"
	"github.com/veritrace/veritrace-backend/pkg/outbox"
	"github.com/veritrace/veritrace-backend/pkg/prooflink"
	"github.com/veritrace/veritrace-backend/pkg/redis"
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

	hederaClient, err := hedera.NewClient(cfg.Hedera, cfg.Resilience.RequestTimeout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create hedera client", err)
		os.Exit(1)
	}

	network, err := enums.ParseHederaNetwork(cfg.Hedera.Network)
	if err != nil {
		logg.Error(context.Background(), "invalid hedera network", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	verificationMetrics := metrics.NewVerificationMetrics(promRegistry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	productService := product.NewService(dbClient, product.NewRepository(dbClient.DB()), outboxService, logg)

	oracle := verification.NewOracle(hederaClient, cfg.Resilience, verificationMetrics, logg)
	executor := verification.NewExecutor(oracle, cfg.Resilience, verificationMetrics, logg)
	links := prooflink.NewBuilder(network)
	synthesizer := verification.NewSynthesizer(links)
	verificationService := verification.NewService(
		productService,
		hederaClient,
		executor,
		synthesizer,
		links,
		cfg.Hedera.TopicID,
		verification.Options{
			DB:       dbClient,
			Outbox:   outboxService,
			Counters: redisClient,
			Metrics:  verificationMetrics,
		},
		logg,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	router := routes.NewRouter(cfg, logg, routes.Dependencies{
		Verification: verificationService,
		Products:     productService,
		Redis:        redisClient,
		Pingers: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Metrics: promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
