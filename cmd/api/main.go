package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/activities/internal/api"
	"example.com/activities/internal/config"
	"example.com/activities/internal/domain"
	"example.com/activities/internal/logging"
	"example.com/activities/internal/outbox"
	"example.com/activities/internal/seed"
	httptransport "example.com/activities/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	seeds, err := seed.FromConfig(cfg.SeedFile)
	if err != nil {
		logger.Fatal("failed to load seed activities", zap.Error(err))
	}

	var catalogOpts []domain.CatalogOption
	if cfg.EnforceCapacity {
		catalogOpts = append(catalogOpts, domain.WithCapacityEnforcement())
	}
	catalog, err := domain.NewCatalog(seeds, catalogOpts...)
	if err != nil {
		logger.Fatal("invalid seed activities", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		publisher  domain.EventPublisher = domain.NoopPublisher{}
		dispatcher *outbox.Dispatcher
	)
	if cfg.PublishingEnabled() {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers,
			outbox.WithClientID("activities-api"),
			outbox.WithProducerLogger(logger.Named("kafka")),
		)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka producer close", zap.Error(err))
			}
		}()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(producer, registry, cfg.RosterTopic,
			outbox.WithLogger(logger.Named("outbox")),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithQueueSize(cfg.OutboxQueueSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		)
		go dispatcher.Start(ctx)
		publisher = dispatcher
		logger.Info("roster event publishing enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.RosterTopic),
		)
	}

	service := domain.NewService(catalog, publisher, logger.Named("roster"))

	handler := api.NewHandler(service, logger.Named("api"))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), httptransport.Chain(mux,
		httptransport.Recover(logger),
		httptransport.Tracing("activities-api"),
		httptransport.RequestLogger(logger.Named("http")),
		httptransport.CORS(cfg.CORSAllowedOrigin),
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("activities api listening",
			zap.String("address", cfg.HTTPAddress),
			zap.Int("activities", len(seeds)),
			zap.Bool("enforce_capacity", cfg.EnforceCapacity),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	logger.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	cancel()
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
