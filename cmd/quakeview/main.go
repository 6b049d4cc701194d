package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/quake-timeline/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-timeline/internal/adapter/kafka"
	"github.com/couchcryptid/quake-timeline/internal/adapter/usgs"
	"github.com/couchcryptid/quake-timeline/internal/config"
	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/couchcryptid/quake-timeline/internal/observability"
	"github.com/couchcryptid/quake-timeline/internal/viewer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	feed := usgs.NewClient(cfg.FeedURL, cfg.UserAgent, cfg.FeedTimeout, metrics, logger)

	opts := viewer.Options{
		PlaybackInterval: cfg.PlaybackInterval,
		MaxAttempts:      cfg.FeedMaxAttempts,
		MaxResultLimit:   cfg.MaxResultLimit,
	}

	// Snapshot forwarding is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Sink = writer
		logger.Info("snapshot sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("snapshot sink disabled")
	}

	session := viewer.New(feed, logger, metrics, opts)
	srv := httpadapter.NewServer(cfg.HTTPAddr, session, metrics, logger,
		httpadapter.WithQueryWait(viewer.FetchBudget(cfg.FeedTimeout, cfg.FeedMaxAttempts)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Initial fetch with the default query.
	initial := domain.DefaultQuery(cfg.DefaultLookback, cfg.DefaultMinMagnitude, cfg.DefaultResultLimit)
	if _, err := session.SetQuery(initial); err != nil {
		logger.Error("initial query rejected", "error", err, "query", initial.String())
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := session.Close(); err != nil {
		logger.Error("session close error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
