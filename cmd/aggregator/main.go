package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/occurrence-aggregator/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/occurrence-aggregator/internal/adapter/kafka"
	"github.com/couchcryptid/occurrence-aggregator/internal/adapter/mapbox"
	"github.com/couchcryptid/occurrence-aggregator/internal/config"
	"github.com/couchcryptid/occurrence-aggregator/internal/dataset"
	"github.com/couchcryptid/occurrence-aggregator/internal/domain"
	"github.com/couchcryptid/occurrence-aggregator/internal/observability"
	"github.com/couchcryptid/occurrence-aggregator/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := dataset.Load(ctx, dataset.SourcesFromConfig(cfg), geocoder, logger, metrics)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	holder := &dataset.Holder{}
	holder.Store(d)

	opts := domain.ReportOptions{CantonTopN: cfg.CantonTopN, Bins: cfg.ChoroplethBins}
	srv := httpadapter.NewServer(cfg.HTTPAddr, holder, opts, metrics, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(holder, opts, metrics, logger)
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

		// Start selection pipeline.
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka selection pipeline disabled")
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
