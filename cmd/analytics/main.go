// Command analytics runs the standalone search analytics service.
//
// It consumes search events from Kafka, aggregates them in memory and
// persists periodic snapshots to PostgreSQL when it is reachable. The
// aggregate is served at GET /api/v1/analytics and the snapshot history at
// GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
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
	"sync/atomic"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "HTTP port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", *port, "topic", cfg.Kafka.Topics.SearchEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, analytics.HandleEvent(agg))
	var consumerStopped atomic.Bool
	go func() {
		if err := consumer.Run(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
		consumerStopped.Store(true)
	}()

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) error {
		if consumerStopped.Load() {
			return errors.New("consumer stopped")
		}
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
	} else {
		defer db.Close()
		snapshots := aggregator.NewStore(db)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			slog.Warn("snapshot schema unavailable", "error", err)
		} else {
			if last, err := snapshots.LatestSnapshot(ctx); err == nil && last != nil {
				slog.Info("previous snapshot found",
					"total_searches", last.TotalSearches,
					"zero_results", last.ZeroResultCount,
				)
			}
			checker.RegisterOptional("postgres", db.Ping)
			mux.HandleFunc("GET /api/v1/analytics/history", snapshots.History)
			if cfg.Analytics.SnapshotInterval > 0 {
				go snapshots.Run(ctx, agg, cfg.Analytics.SnapshotInterval)
			}
		}
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
