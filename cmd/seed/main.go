package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog/sampledata"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog/store"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	count := flag.Int("count", 0, "items to generate (defaults to catalog.sampleSize)")
	seed := flag.Int64("seed", 0, "generator seed (defaults to catalog.sampleSeed)")
	truncate := flag.Bool("truncate", false, "delete existing items before seeding")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *count <= 0 {
		*count = cfg.Catalog.SampleSize
	}
	if *seed == 0 {
		*seed = cfg.Catalog.SampleSeed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	catalogStore := store.New(db)
	if err := catalogStore.EnsureSchema(ctx); err != nil {
		slog.Error("failed to create schema", "error", err)
		os.Exit(1)
	}
	if *truncate {
		if err := catalogStore.Truncate(ctx); err != nil {
			slog.Error("failed to truncate catalog", "error", err)
			os.Exit(1)
		}
		slog.Info("existing catalog removed")
	}

	start := time.Now()
	items := sampledata.New(*count, *seed).Build()
	if err := catalogStore.Save(ctx, items); err != nil {
		slog.Error("failed to save catalog", "error", err)
		os.Exit(1)
	}

	total, err := catalogStore.Count(ctx)
	if err != nil {
		slog.Warn("failed to count catalog", "error", err)
	}
	slog.Info("catalog seeded",
		"inserted", len(items),
		"total", total,
		"seed", *seed,
		"duration", time.Since(start),
	)
}
