package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridedispatch/internal/app"
	"ridedispatch/internal/config"
	"ridedispatch/internal/events"
	"ridedispatch/internal/handler"
	"ridedispatch/internal/logging"
	internalRedis "ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/repository/firestore"
	"ridedispatch/internal/repository/memory"
	"ridedispatch/internal/repository/postgres"
	"ridedispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	log := logging.New(cfg.LogLevel).WithService("ride-dispatch")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn("failed to initialize New Relic", "error", err)
		} else {
			log.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	// Initialize the ride request store.
	st, closeStore, err := openStores(ctx, cfg, nrApp, log)
	if err != nil {
		log.Fatal("failed to open store", "backend", cfg.Store.Backend, "error", err)
	}
	defer closeStore()

	// Initialize Redis with New Relic instrumentation.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Fatal("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		log.Info("connected to Redis", "addr", cfg.Redis.Addr)
	}

	// Initialize the audit event publisher.
	publisher, err := app.NewPublisher(cfg.RabbitMQ)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", "error", err)
	}
	defer publisher.Close()

	// Wire dependencies.
	server := wireServer(st, redisClient, publisher, nrApp, cfg, log)

	// Start server in goroutine.
	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info("server exited")
}

// stores groups the repositories of one backend.
type stores struct {
	rideRequests repository.RideRequestRepository
	pricing      repository.PricingConfigRepository
}

// openStores connects the configured backend and returns its repositories
// and a close function.
func openStores(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application, log *logging.Logger) (stores, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			return stores{}, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, nil, err
		}
		log.Info("connected to PostgreSQL", "host", cfg.Database.Host, "db", cfg.Database.DBName)
		return stores{
			rideRequests: postgres.NewRideRequestRepository(db),
			pricing:      postgres.NewPricingConfigRepository(db),
		}, closer(db, log), nil

	case config.StoreBackendFirestore:
		client, err := app.NewFirestoreClient(ctx, cfg.Firestore)
		if err != nil {
			return stores{}, nil, err
		}
		log.Info("connected to Firestore", "project", cfg.Firestore.ProjectID, "collection", cfg.Firestore.Collection)
		return stores{
			rideRequests: firestore.NewRideRequestRepository(client, cfg.Firestore.Collection),
			pricing:      firestore.NewPricingConfigRepository(client),
		}, closer(client, log), nil

	case config.StoreBackendMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return stores{
			rideRequests: memory.NewRideRequestRepository(),
			pricing:      memory.NewPricingConfigRepository(),
		}, func() {}, nil

	default:
		return stores{}, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func closer(c io.Closer, log *logging.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	st stores,
	redisClient *redis.Client,
	publisher events.Publisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	log *logging.Logger,
) *http.Server {
	// Initialize Redis stores.
	var (
		cache   internalRedis.DispatchStateCacheInterface
		pickups internalRedis.PickupIndexInterface
	)
	if redisClient != nil {
		cache = internalRedis.NewCacheStore(redisClient)
		pickups = internalRedis.NewPickupIndex(redisClient)
	}

	// Initialize services.
	dispatchService := service.NewDispatchService(st.rideRequests, cache, pickups, publisher, log)
	fareService := service.NewFareService(st.pricing, cfg.Fare, log)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideRequestHandler: handler.NewRideRequestHandler(dispatchService),
		FareHandler:        handler.NewFareHandler(fareService),
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
		Logger:             log,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
