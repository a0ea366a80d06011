package aggregator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/postgres"
)

func TestHistoryLimit(t *testing.T) {
	tests := map[string]int{
		"":     defaultHistory,
		"abc":  defaultHistory,
		"-3":   defaultHistory,
		"0":    defaultHistory,
		"7":    7,
		"500":  500,
		"9000": maxHistory,
	}
	for in, want := range tests {
		if got := historyLimit(in); got != want {
			t.Errorf("historyLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

// Requires a reachable database; set FCS_TEST_POSTGRES=1 to run.
func TestSnapshotRoundTrip(t *testing.T) {
	if os.Getenv("FCS_TEST_POSTGRES") == "" {
		t.Skip("FCS_TEST_POSTGRES not set")
	}
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := NewStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	agg := analytics.NewAggregator()
	agg.Track(analytics.SearchEvent{Type: analytics.EventSearch, Sizes: []string{"small"}, TotalHits: 4, LatencyMs: 1.5})
	if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
		t.Fatal(err)
	}
	latest, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.TotalSearches < 1 {
		t.Fatalf("unexpected latest snapshot %+v", latest)
	}
	list, err := s.ListSnapshots(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 snapshot, got %d", len(list))
	}
}
