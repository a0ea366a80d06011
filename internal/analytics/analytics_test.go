package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (f *fakePublisher) events() []kafka.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []kafka.Event
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

func TestComboIgnoresOrderAndDuplicates(t *testing.T) {
	a := SearchEvent{Sizes: []string{"small", "Large", "small"}}
	b := SearchEvent{Sizes: []string{"large", "small"}}
	if a.Combo() != b.Combo() {
		t.Errorf("%q != %q", a.Combo(), b.Combo())
	}
	if got := a.Combo(); got != "size=large,small|color=*" {
		t.Errorf("Combo() = %q", got)
	}
}

func TestCollectorFlushesFullBatches(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, 3, time.Hour)
	c.Start(context.Background())
	for i := 0; i < 7; i++ {
		c.Track(SearchEvent{Type: EventSearch, Colors: []string{"red"}, TotalHits: i})
	}
	c.Close()

	events := pub.events()
	if len(events) != 7 {
		t.Fatalf("published %d events, want 7", len(events))
	}
	if events[0].Key != "size=*|color=red" {
		t.Errorf("events should be keyed by combo, got %q", events[0].Key)
	}
	if c.Sent() != 7 || c.Dropped() != 0 {
		t.Errorf("sent=%d dropped=%d", c.Sent(), c.Dropped())
	}
	// Tracking after Close is a no-op.
	c.Track(SearchEvent{})
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, 1000, 10*time.Millisecond)
	c.Start(context.Background())
	defer c.Close()
	c.Track(SearchEvent{Type: EventSearch})

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.events()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event was not flushed by the ticker")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCollectorCountsPublishFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCollector(pub, 10, 2, time.Hour)
	c.Start(ctx)
	c.Track(SearchEvent{})
	c.Track(SearchEvent{})
	c.Track(SearchEvent{})
	cancel()
	c.Close()
	if c.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", c.Dropped())
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	start := agg.startTime
	agg.now = func() time.Time { return start.Add(2 * time.Minute) }

	agg.Track(SearchEvent{Colors: []string{"red"}, TotalHits: 10, LatencyMs: 1, CacheHit: true})
	agg.Track(SearchEvent{Colors: []string{"red"}, TotalHits: 10, LatencyMs: 3})
	agg.Track(SearchEvent{Sizes: []string{"large"}, Colors: []string{"white"}, TotalHits: 0, LatencyMs: 5})
	agg.Track(SearchEvent{TotalHits: 30, LatencyMs: 7})

	stats := agg.Stats()
	if stats.TotalSearches != 4 || stats.CacheHits != 1 || stats.CacheMisses != 3 {
		t.Errorf("unexpected totals %+v", stats)
	}
	if stats.ZeroResultCount != 1 || len(stats.ZeroResultCombos) != 1 || stats.ZeroResultCombos[0].Combo != "size=large|color=white" {
		t.Errorf("unexpected zero-result combos %+v", stats.ZeroResultCombos)
	}
	if stats.TopCombos[0] != (ComboCount{Combo: "size=*|color=red", Count: 2}) {
		t.Errorf("top combo = %+v", stats.TopCombos[0])
	}
	if stats.ColorRequests["red"] != 2 || stats.SizeRequests["large"] != 1 {
		t.Errorf("facet requests sizes=%v colors=%v", stats.SizeRequests, stats.ColorRequests)
	}
	if stats.AvgLatencyMs != 4 || stats.P50LatencyMs != 5 || stats.P99LatencyMs != 7 {
		t.Errorf("latency avg=%v p50=%v p99=%v", stats.AvgLatencyMs, stats.P50LatencyMs, stats.P99LatencyMs)
	}
	if stats.QueriesPerMinute != 2 {
		t.Errorf("qpm = %v, want 2", stats.QueriesPerMinute)
	}
}

func TestAggregatorLatencyWindow(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < latencyWindow; i++ {
		agg.Track(SearchEvent{LatencyMs: 100})
	}
	for i := 0; i < latencyWindow; i++ {
		agg.Track(SearchEvent{LatencyMs: 1})
	}
	stats := agg.Stats()
	if stats.AvgLatencyMs != 1 || stats.P99LatencyMs != 1 {
		t.Errorf("old latencies should age out, avg=%v p99=%v", stats.AvgLatencyMs, stats.P99LatencyMs)
	}
	if stats.TotalSearches != 2*latencyWindow {
		t.Errorf("total = %d", stats.TotalSearches)
	}
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	raw, _ := json.Marshal(SearchEvent{Type: EventSearch, Sizes: []string{"small"}, TotalHits: 2})
	if err := handle(context.Background(), []byte("k"), raw); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := handle(context.Background(), []byte("k"), []byte("not json")); err != nil {
		t.Fatalf("undecodable messages should be skipped, got %v", err)
	}
	if agg.Stats().TotalSearches != 1 {
		t.Errorf("expected one recorded search")
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Track(SearchEvent{Colors: []string{"blue"}, TotalHits: 1})
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalSearches != 1 || stats.ColorRequests["blue"] != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
