// Package service runs a faceted search end to end for any transport: it
// consults the result cache, evaluates misses on the engine, and reports the
// outcome to metrics and analytics.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/metrics"
)

// Searcher is satisfied by *engine.Engine.
type Searcher interface {
	Search(opts *engine.Options) *engine.Result
	Stats() engine.Stats
}

// ResultCache is satisfied by *cache.QueryCache.
type ResultCache interface {
	GetOrCompute(ctx context.Context, fingerprint string, opts *engine.Options, compute func() *engine.Result) (*engine.Result, bool)
	Stats() cache.Stats
	Invalidate(ctx context.Context) (int64, error)
}

// Tracker receives one event per search. *analytics.Collector and
// *analytics.Aggregator both satisfy it.
type Tracker interface {
	Track(event analytics.SearchEvent)
}

// Cache status labels for the search latency histogram.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheDisabled = "disabled"
)

type Outcome struct {
	Result      *engine.Result
	CacheStatus string
	Latency     time.Duration
}

func (o Outcome) CacheHit() bool { return o.CacheStatus == CacheHit }

// Service is safe for concurrent use. Cache, tracker and metrics are
// optional; pass untyped nil to disable one.
type Service struct {
	searcher    Searcher
	fingerprint string
	cache       ResultCache
	tracker     Tracker
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func New(searcher Searcher, resultCache ResultCache, tracker Tracker, m *metrics.Metrics) *Service {
	return &Service{
		searcher:    searcher,
		fingerprint: searcher.Stats().Fingerprint,
		cache:       resultCache,
		tracker:     tracker,
		metrics:     m,
		logger:      slog.Default().With("component", "search-service"),
	}
}

func (s *Service) Stats() engine.Stats { return s.searcher.Stats() }

// Cache returns the configured result cache, or nil.
func (s *Service) Cache() ResultCache { return s.cache }

// Search evaluates opts. source names the transport for analytics.
func (s *Service) Search(ctx context.Context, opts *engine.Options, source string) Outcome {
	start := time.Now()
	out := Outcome{CacheStatus: CacheDisabled}
	if s.cache != nil {
		var hit bool
		out.Result, hit = s.cache.GetOrCompute(ctx, s.fingerprint, opts, func() *engine.Result {
			return s.searcher.Search(opts)
		})
		out.CacheStatus = CacheMiss
		if hit {
			out.CacheStatus = CacheHit
		}
	} else {
		out.Result = s.searcher.Search(opts)
	}
	out.Latency = time.Since(start)

	s.record(ctx, opts, out, source)
	return out
}

// RejectInvalid counts a request that failed before reaching the engine.
func (s *Service) RejectInvalid() {
	if s.metrics != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues("invalid").Inc()
	}
}

func (s *Service) record(ctx context.Context, opts *engine.Options, out Outcome, source string) {
	total := out.Result.Total()
	sizes, colors := requested(opts)

	if s.metrics != nil {
		resultType := "hit"
		if total == 0 {
			resultType = "zero_result"
		}
		s.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
		s.metrics.SearchLatency.WithLabelValues(out.CacheStatus).Observe(out.Latency.Seconds())
		s.metrics.SearchResultsCount.Observe(float64(total))
		switch out.CacheStatus {
		case CacheHit:
			s.metrics.CacheHitsTotal.Inc()
		case CacheMiss:
			s.metrics.CacheMissesTotal.Inc()
		}
		for _, v := range sizes {
			s.metrics.FacetRequestsTotal.WithLabelValues("size", v).Inc()
		}
		for _, v := range colors {
			s.metrics.FacetRequestsTotal.WithLabelValues("color", v).Inc()
		}
	}

	if s.tracker != nil {
		eventType := analytics.EventSearch
		if total == 0 {
			eventType = analytics.EventZeroResult
		}
		s.tracker.Track(analytics.SearchEvent{
			Type:      eventType,
			Sizes:     sizes,
			Colors:    colors,
			TotalHits: total,
			LatencyMs: float64(out.Latency.Microseconds()) / 1000,
			CacheHit:  out.CacheHit(),
			Source:    source,
			Timestamp: time.Now().UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}

	logger.FromContext(ctx).Debug("search completed",
		"source", source,
		"total", total,
		"cache", out.CacheStatus,
		"latency", out.Latency,
	)
}

// requested lists the distinct valid facet values named in opts. Unknown
// ordinals are left out so they cannot inflate metric label sets.
func requested(opts *engine.Options) (sizes, colors []string) {
	if opts == nil {
		return nil, nil
	}
	seenS := make(map[catalog.Size]bool)
	for _, s := range opts.Sizes {
		if s.Valid() && !seenS[s] {
			seenS[s] = true
			sizes = append(sizes, s.WireName())
		}
	}
	seenC := make(map[catalog.Color]bool)
	for _, c := range opts.Colors {
		if c.Valid() && !seenC[c] {
			seenC[c] = true
			colors = append(colors, c.WireName())
		}
	}
	return sizes, colors
}
