package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog/sampledata"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.SearchEvent
}

func (r *recordingTracker) Track(e analytics.SearchEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// mapCache is an in-process ResultCache keyed like the Redis cache.
type mapCache struct {
	mu      sync.Mutex
	results map[string]*engine.Result
}

func (m *mapCache) GetOrCompute(_ context.Context, fp string, opts *engine.Options, compute func() *engine.Result) (*engine.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cache.Key(fp, opts)
	if r, ok := m.results[key]; ok {
		return r, true
	}
	r := compute()
	m.results[key] = r
	return r, false
}

func (m *mapCache) Stats() cache.Stats { return cache.Stats{} }

func (m *mapCache) Invalidate(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.results))
	m.results = map[string]*engine.Result{}
	return n, nil
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(sampledata.New(300, 11).Build())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

func TestSearchWithoutOptionalDependencies(t *testing.T) {
	svc := New(newEngine(t), nil, nil, nil)
	out := svc.Search(context.Background(), nil, "test")
	if out.Result.Total() != 300 {
		t.Fatalf("total = %d, want 300", out.Result.Total())
	}
	if out.CacheStatus != CacheDisabled || out.CacheHit() {
		t.Errorf("cache status = %q", out.CacheStatus)
	}
	svc.RejectInvalid()
}

func TestSearchRecordsMetricsAndAnalytics(t *testing.T) {
	e := newEngine(t)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	tracker := &recordingTracker{}
	svc := New(e, &mapCache{results: map[string]*engine.Result{}}, tracker, m)

	ctx := logger.WithRequestID(context.Background(), "req-1")
	opts := &engine.Options{Colors: []catalog.Color{catalog.Red, catalog.Red}, Sizes: []catalog.Size{catalog.Small}}
	first := svc.Search(ctx, opts, "http")
	second := svc.Search(ctx, opts, "http")

	if first.CacheStatus != CacheMiss || second.CacheStatus != CacheHit {
		t.Fatalf("cache statuses = %q, %q", first.CacheStatus, second.CacheStatus)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 1 {
		t.Errorf("cache hits = %v", got)
	}
	if got := testutil.ToFloat64(m.CacheMissesTotal); got != 1 {
		t.Errorf("cache misses = %v", got)
	}
	if got := testutil.ToFloat64(m.FacetRequestsTotal.WithLabelValues("color", "red")); got != 2 {
		t.Errorf("red requested %v times, want 2 (duplicates collapse per query)", got)
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if len(tracker.events) != 2 {
		t.Fatalf("tracked %d events", len(tracker.events))
	}
	ev := tracker.events[1]
	if !ev.CacheHit || ev.RequestID != "req-1" || ev.Source != "http" {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(ev.Colors) != 1 || ev.Colors[0] != "red" || ev.Sizes[0] != "small" {
		t.Errorf("requested facets = %v / %v", ev.Sizes, ev.Colors)
	}
	if ev.TotalHits != e.Search(opts).Total() {
		t.Errorf("total hits = %d", ev.TotalHits)
	}
}

func TestZeroResultEvent(t *testing.T) {
	items := []catalog.Item{catalog.NewItem("Red - Small", catalog.Small, catalog.Red)}
	e, _ := engine.New(items)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	tracker := &recordingTracker{}
	svc := New(e, nil, tracker, m)

	svc.Search(context.Background(), &engine.Options{Colors: []catalog.Color{catalog.Black}}, "rpc")
	if tracker.events[0].Type != analytics.EventZeroResult {
		t.Errorf("type = %q", tracker.events[0].Type)
	}
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")); got != 1 {
		t.Errorf("zero_result counter = %v", got)
	}
	if tracker.events[0].LatencyMs < 0 || tracker.events[0].Timestamp.After(time.Now()) {
		t.Errorf("bad timing fields %+v", tracker.events[0])
	}
}
