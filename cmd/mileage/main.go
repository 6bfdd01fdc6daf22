package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/freight-mileage-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/freight-mileage-service/internal/adapter/kafka"
	"github.com/couchcryptid/freight-mileage-service/internal/adapter/routing"
	"github.com/couchcryptid/freight-mileage-service/internal/cache"
	"github.com/couchcryptid/freight-mileage-service/internal/cache/backend"
	"github.com/couchcryptid/freight-mileage-service/internal/config"
	"github.com/couchcryptid/freight-mileage-service/internal/domain"
	"github.com/couchcryptid/freight-mileage-service/internal/mileage"
	"github.com/couchcryptid/freight-mileage-service/internal/observability"
	"github.com/couchcryptid/freight-mileage-service/internal/pipeline"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open distance cache", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	distanceCache := cache.New(store, cfg.CacheTTL, clockwork.NewRealClock(), logger, metrics)

	providers := routing.NewProviders(cfg, logger)

	primary, _ := domain.ParseProviderID(cfg.ActiveProvider)
	resolver, err := mileage.NewResolver(primary, providers, distanceCache, logger, metrics)
	if err != nil {
		logger.Error("failed to build resolver", "error", err)
		os.Exit(1)
	}
	batch := mileage.NewBatchResolver(resolver, cfg.BatchConcurrency, logger, metrics)
	logger.Info("mileage resolver ready", "active_provider", primary, "chain", resolver.Chain(), "cache", cfg.CacheBackend)

	ready := readinessGroup{distanceCache}

	var (
		p      *pipeline.Pipeline
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(reader, pipeline.NewTransformer(batch, logger), writer, logger, metrics, cfg.BatchSize)
		ready = append(ready, p)
	} else {
		logger.Info("lane pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, resolver, batch, cfg.BatchSize, ready, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start lane pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// readinessGroup is ready when every member is.
type readinessGroup []sharedobs.ReadinessChecker

func (g readinessGroup) CheckReadiness(ctx context.Context) error {
	for _, c := range g {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
