package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"checkpoint/internal/events"
	httpapi "checkpoint/internal/http"
	"checkpoint/internal/platform/config"
	"checkpoint/internal/platform/httpserver"
	"checkpoint/internal/platform/logger"
	"checkpoint/internal/platform/metrics"
	"checkpoint/internal/platform/postgres"
	"checkpoint/internal/platform/redis"
	"checkpoint/internal/platform/tracing"
	recognitiongrpc "checkpoint/internal/recognition/adapters/grpc"
	"checkpoint/internal/registration/aggregator"
	"checkpoint/internal/registration/handler"
	regmetrics "checkpoint/internal/registration/metrics"
	"checkpoint/internal/registration/service"
	"checkpoint/internal/registration/store"
)

// main wires dependencies once, serves HTTP and shuts everything down in
// reverse order on SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", os.Getenv("CHECKPOINT_CONFIG"), "path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Server.ServiceID)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("checkpoint stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, cfg.Server.ServiceID)
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	regMetrics := regmetrics.New(registry)

	identityClient, err := recognitiongrpc.NewIdentityClient(cfg.Recognition.IdentityAddr, cfg.Recognition.IdentityTimeout,
		recognitiongrpc.WithLogger(log))
	if err != nil {
		return fmt.Errorf("identity client: %w", err)
	}
	plateClient, err := recognitiongrpc.NewPlateClient(cfg.Recognition.PlateAddr, cfg.Recognition.PlateTimeout,
		recognitiongrpc.WithLogger(log))
	if err != nil {
		_ = identityClient.Close()
		return fmt.Errorf("plate client: %w", err)
	}

	checks := map[string]httpapi.HealthCheck{}
	backend, closeStore, err := openBackend(ctx, cfg, log, checks)
	if err != nil {
		_ = identityClient.Close()
		_ = plateClient.Close()
		return err
	}

	publisher := newPublisher(cfg, log, registry)

	agg := aggregator.New(identityClient, plateClient,
		aggregator.WithLogger(log),
		aggregator.WithMetrics(regMetrics),
	)
	gateway := store.NewGateway(backend,
		store.WithLogger(log),
		store.WithMetrics(regMetrics),
	)
	svc := service.New(agg, gateway, publisher, service.WithLogger(log))

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:      log,
		ServiceID:   cfg.Server.ServiceID,
		Publisher:   publisher,
		Checks:      checks,
		Registry:    registry,
		HTTPMetrics: metrics.NewHTTP(registry),
		Routes:      []httpapi.Routes{handler.New(svc, log, cfg.Server.MaxUploadBytes)},
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting checkpoint",
			"addr", cfg.Server.Addr,
			"identity_addr", cfg.Recognition.IdentityAddr,
			"plate_addr", cfg.Recognition.PlateAddr,
			"events_enabled", publisher.IsEnabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error("http shutdown failed", "error", shutdownErr)
	}
	publisher.Disconnect()
	if closeErr := identityClient.Close(); closeErr != nil {
		log.Warn("closing identity client", "error", closeErr)
	}
	if closeErr := plateClient.Close(); closeErr != nil {
		log.Warn("closing plate client", "error", closeErr)
	}
	closeStore()
	if traceErr := shutdownTracing(shutdownCtx); traceErr != nil {
		log.Warn("flushing traces", "error", traceErr)
	}
	log.Info("checkpoint stopped")
	return err
}

// openBackend picks Postgres when a URL is configured, else the in-memory
// store, and layers the Redis cache on top when Redis is configured.
func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger, checks map[string]httpapi.HealthCheck) (store.Backend, func(), error) {
	var (
		backend store.Backend
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if db != nil {
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		backend = pg
		checks["postgres"] = db.PingContext
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				log.Warn("closing postgres", "error", err)
			}
		})
		log.Info("using postgres registration store")
	} else {
		backend = store.NewInMemory()
		log.Warn("no database configured, registrations are kept in memory")
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if rdb != nil {
		backend = store.NewCached(backend, rdb.Client, cfg.Redis.CacheTTL, log)
		checks["redis"] = rdb.Health
		closers = append(closers, func() {
			if err := rdb.Close(); err != nil {
				log.Warn("closing redis", "error", err)
			}
		})
		log.Info("registration read cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	return backend, closeAll, nil
}

func newPublisher(cfg config.Config, log *slog.Logger, registry *prometheus.Registry) *events.Publisher {
	opts := []events.Option{
		events.WithLogger(log),
		events.WithServiceID(cfg.Server.ServiceID),
		events.WithMetrics(events.NewMetrics(registry)),
	}
	if !cfg.Kafka.Enabled {
		log.Info("event publishing disabled")
		return events.NewDisabled(opts...)
	}
	return events.NewPublisher(true, events.KafkaDialer(cfg.Kafka), events.TopicsFromConfig(cfg.Kafka), opts...)
}
