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

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog/sampledata"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog/store"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/rpc"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting catalog search service",
		"port", cfg.Server.Port,
		"rpc_port", cfg.RPC.Port,
		"catalog_source", cfg.Catalog.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checker := health.NewChecker()

	// Postgres is required for the postgres catalog source and optional for
	// analytics snapshots.
	var db *postgres.Client
	needDB := cfg.Catalog.Source == config.SourcePostgres ||
		(cfg.Analytics.Enabled && cfg.Analytics.SnapshotInterval > 0)
	if needDB {
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			if cfg.Catalog.Source == config.SourcePostgres {
				slog.Error("postgres unavailable", "error", err)
				os.Exit(1)
			}
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			checker.RegisterOptional("postgres", db.Ping)
		}
	}

	idx, err := loadCatalog(ctx, cfg, db)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	eng := engine.FromIndex(idx)
	recordCatalog(m, idx)
	stats := eng.Stats()
	slog.Info("catalog indexed",
		"items", stats.Items,
		"buckets", stats.Buckets,
		"fingerprint", stats.Fingerprint,
	)
	checker.Register("catalog", func(ctx context.Context) error {
		if eng.Stats().Fingerprint == "" {
			return errors.New("catalog index not built")
		}
		return nil
	})

	var resultCache service.ResultCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis", resilience.BreakerConfig{
				OnStateChange: func(name string, from, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				},
			})
			m.CircuitBreakerState.WithLabelValues(breaker.Name()).Set(float64(resilience.StateClosed))
			resultCache = cache.New(redisClient, cfg.Redis.CacheTTL, breaker)
			checker.RegisterOptional("redis", redisClient.Ping)
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	var tracker service.Tracker
	var agg *analytics.Aggregator
	var collector *analytics.Collector
	if cfg.Analytics.Enabled {
		agg = analytics.NewAggregator()
		switch cfg.Analytics.Transport {
		case config.TransportKafka:
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
			defer producer.Close()
			collector = analytics.NewCollector(producer,
				cfg.Analytics.BufferSize,
				cfg.Analytics.BatchSize,
				cfg.Analytics.FlushInterval,
			)
			collector.Start(ctx)
			tracker = collector

			consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, analytics.HandleEvent(agg))
			go func() {
				if err := consumer.Run(ctx); err != nil {
					slog.Error("analytics consumer error", "error", err)
				}
			}()
			slog.Info("analytics enabled", "transport", "kafka", "topic", cfg.Kafka.Topics.SearchEvents)
		default:
			tracker = agg
			slog.Info("analytics enabled", "transport", "local")
		}

		if db != nil && cfg.Analytics.SnapshotInterval > 0 {
			snapshots := aggregator.NewStore(db)
			if err := snapshots.EnsureSchema(ctx); err != nil {
				slog.Warn("analytics snapshot schema unavailable", "error", err)
			} else {
				go snapshots.Run(ctx, agg, cfg.Analytics.SnapshotInterval)
			}
		}
	}

	svc := service.New(eng, resultCache, tracker, m)
	h := handler.New(svc, cfg.Search.MaxItems)

	mux := http.NewServeMux()
	h.Routes(mux)
	if agg != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var rpcServer *grpc.Server
	if cfg.RPC.Port > 0 {
		rpcServer = grpc.NewServer()
		rpc.Register(rpcServer, svc, cfg.Search.MaxItems)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.RPC.Port)
			slog.Info("rpc server listening", "addr", addr, "methods", rpcServer.Methods())
			if err := rpcServer.ListenAndServe(addr); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if rpcServer != nil {
			rpcServer.Stop()
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	if collector != nil {
		collector.Close()
		slog.Info("analytics collector drained", "sent", collector.Sent(), "dropped", collector.Dropped())
	}
	slog.Info("search service stopped")
}

// loadCatalog reads the item collection from the configured source and
// builds its index.
func loadCatalog(ctx context.Context, cfg *config.Config, db *postgres.Client) (*catalog.Index, error) {
	var items []catalog.Item
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		loadCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.Catalog.LoadTimeout > 0 {
			loadCtx, cancel = context.WithTimeout(ctx, cfg.Catalog.LoadTimeout)
		}
		defer cancel()
		catalogStore := store.New(db)
		if err := catalogStore.EnsureSchema(loadCtx); err != nil {
			return nil, err
		}
		loaded, err := catalogStore.Load(loadCtx)
		if err != nil {
			return nil, err
		}
		items = loaded
	default:
		items = sampledata.New(cfg.Catalog.SampleSize, cfg.Catalog.SampleSeed).Build()
	}
	return catalog.Build(items)
}

func recordCatalog(m *metrics.Metrics, idx *catalog.Index) {
	m.CatalogItems.Set(float64(idx.Len()))
	idx.Each(func(key catalog.Key, items []catalog.Item) {
		m.CatalogBuckets.WithLabelValues(key.Size.WireName(), key.Color.WireName()).Set(float64(len(items)))
	})
}
