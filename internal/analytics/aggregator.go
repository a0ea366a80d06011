package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/kafka"
)

// latencyWindow bounds how many recent latencies feed the percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalSearches    int64          `json:"total_searches"`
	CacheHits        int64          `json:"cache_hits"`
	CacheMisses      int64          `json:"cache_misses"`
	ZeroResultCount  int64          `json:"zero_result_count"`
	AvgLatencyMs     float64        `json:"avg_latency_ms"`
	P50LatencyMs     float64        `json:"p50_latency_ms"`
	P95LatencyMs     float64        `json:"p95_latency_ms"`
	P99LatencyMs     float64        `json:"p99_latency_ms"`
	TopCombos        []ComboCount   `json:"top_combos"`
	ZeroResultCombos []ComboCount   `json:"zero_result_combos"`
	SizeRequests     map[string]int `json:"size_requests"`
	ColorRequests    map[string]int `json:"color_requests"`
	QueriesPerMinute float64        `json:"queries_per_minute"`
}

type ComboCount struct {
	Combo string `json:"combo"`
	Count int64  `json:"count"`
}

// Aggregator folds search events into running statistics. It is safe for
// concurrent use and can be fed directly with Track or from Kafka through
// HandleEvent.
type Aggregator struct {
	mu          sync.Mutex
	total       int64
	cacheHits   int64
	zeroResults int64
	latencies   [latencyWindow]float64
	latencyN    int
	latencySum  float64
	combos      map[string]int64
	zeroCombos  map[string]int64
	sizes       map[string]int
	colors      map[string]int
	startTime   time.Time
	now         func() time.Time
	logger      *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		combos:     make(map[string]int64),
		zeroCombos: make(map[string]int64),
		sizes:      make(map[string]int),
		colors:     make(map[string]int),
		startTime:  time.Now(),
		now:        time.Now,
		logger:     slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes Kafka messages into the aggregator. Undecodable
// messages are logged and committed so they are not redelivered.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			agg.logger.Error("skipping undecodable event", "key", string(key), "error", err)
			return nil
		}
		agg.Track(event)
		return nil
	}
}

// Track records one event.
func (a *Aggregator) Track(event SearchEvent) {
	combo := event.Combo()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	if event.CacheHit {
		a.cacheHits++
	}
	a.combos[combo]++
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroCombos[combo]++
	}
	for _, s := range event.Sizes {
		a.sizes[s]++
	}
	for _, c := range event.Colors {
		a.colors[c]++
	}

	slot := a.latencyN % latencyWindow
	if a.latencyN >= latencyWindow {
		a.latencySum -= a.latencies[slot]
	}
	a.latencies[slot] = event.LatencyMs
	a.latencySum += event.LatencyMs
	a.latencyN++
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:    a.total,
		CacheHits:        a.cacheHits,
		CacheMisses:      a.total - a.cacheHits,
		ZeroResultCount:  a.zeroResults,
		TopCombos:        topN(a.combos, 10),
		ZeroResultCombos: topN(a.zeroCombos, 10),
		SizeRequests:     copyCounts(a.sizes),
		ColorRequests:    copyCounts(a.colors),
	}

	n := min(a.latencyN, latencyWindow)
	if n > 0 {
		sorted := make([]float64, n)
		copy(sorted, a.latencies[:n])
		sort.Float64s(sorted)
		stats.AvgLatencyMs = a.latencySum / float64(n)
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []float64, pct int) float64 {
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then by combo so ties are stable.
func topN(counts map[string]int64, n int) []ComboCount {
	out := make([]ComboCount, 0, len(counts))
	for combo, count := range counts {
		out = append(out, ComboCount{Combo: combo, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Combo < out[j].Combo
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
