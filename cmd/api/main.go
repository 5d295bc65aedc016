package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmarroquin/kitloop-backend/api/routes"
	"github.com/dmarroquin/kitloop-backend/internal/bookings"
	"github.com/dmarroquin/kitloop-backend/internal/catalog"
	"github.com/dmarroquin/kitloop-backend/internal/payments"
	"github.com/dmarroquin/kitloop-backend/internal/penalties"
	"github.com/dmarroquin/kitloop-backend/internal/search"
	"github.com/dmarroquin/kitloop-backend/pkg/config"
	"github.com/dmarroquin/kitloop-backend/pkg/db"
	"github.com/dmarroquin/kitloop-backend/pkg/gateway"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
	"github.com/dmarroquin/kitloop-backend/pkg/migrate"
	"github.com/dmarroquin/kitloop-backend/pkg/outbox"
	"github.com/dmarroquin/kitloop-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	bookingsRepo := bookings.NewRepository(dbClient.DB())

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), cfg.Penalty)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	searchService, err := search.NewService(search.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create search service", err)
		os.Exit(1)
	}

	penaltyService, err := penalties.NewService(
		penalties.NewRepository(dbClient.DB()),
		catalogService,
		bookingsRepo,
		dbClient,
		outboxService,
		logg,
		cfg.Penalty.MaxOverdueHoursCharged,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create penalty service", err)
		os.Exit(1)
	}

	unitLocks := bookings.NewUnitLocks(redisClient, 0)
	bookingService, err := bookings.NewService(bookingsRepo, catalogService, dbClient, outboxService, penaltyService, unitLocks, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	verifier, err := gateway.NewVerifier(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway verifier", err)
		os.Exit(1)
	}
	callbackGuard, err := payments.NewGuard(redisClient, cfg.Gateway.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create callback guard", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		bookingsRepo,
		bookingService,
		verifier,
		callbackGuard,
		dbClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			searchService,
			bookingService,
			paymentService,
			penaltyService,
			catalogService,
		),
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
