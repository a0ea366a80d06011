package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Seed        int64
}

type Stats struct {
	total     atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64
	matched   atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func newStats() *Stats {
	return &Stats{
		latencies: make([]time.Duration, 0, 100000),
		codes:     make(map[int]int64),
	}
}

func (s *Stats) record(d time.Duration, code int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if code >= 200 && code < 300 {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.codes[code]++
	s.mu.Unlock()
}

// searchSummary is the subset of the search response the load test inspects.
type searchSummary struct {
	Total    int  `json:"total"`
	CacheHit bool `json:"cache_hit"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 20, "items requested per search")
	seed := flag.Int64("seed", time.Now().UnixNano(), "query generator seed")
	flag.Parse()

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
		Seed:        *seed,
	}

	fmt.Println("=== Catalog Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Seed:        %d\n", cfg.Seed)
	fmt.Println()

	stats := run(cfg)
	report(stats, cfg.Duration)
}

// randomQuery picks a random subset of each facet. An empty subset leaves
// that facet unrestricted.
func randomQuery(rng *rand.Rand, limit int) url.Values {
	q := url.Values{}
	for _, s := range catalog.AllSizes() {
		if rng.Intn(3) == 0 {
			q.Add("size", s.WireName())
		}
	}
	for _, c := range catalog.AllColors() {
		if rng.Intn(4) == 0 {
			q.Add("color", c.WireName())
		}
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	return q
}

func run(cfg Config) *Stats {
	stats := newStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(cfg.Seed + int64(worker)))
			for ctx.Err() == nil {
				target := cfg.BaseURL + "/api/v1/search?" + randomQuery(rng, cfg.Limit).Encode()
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.record(0, 0, err)
					continue
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.record(elapsed, 0, err)
					}
					continue
				}
				var summary searchSummary
				if resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&summary) == nil {
					stats.matched.Add(int64(summary.Total))
					if summary.CacheHit {
						stats.cacheHits.Add(1)
					}
				}
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
		}(w)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func report(stats *Stats, duration time.Duration) {
	total := stats.total.Load()
	success := stats.success.Load()
	failed := stats.failed.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", failed)
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}
	if success > 0 {
		fmt.Printf("Cache Hit Rate:  %.2f%%\n", float64(stats.cacheHits.Load())/float64(success)*100)
		fmt.Printf("Avg Matches:     %.1f\n", float64(stats.matched.Load())/float64(success))
	}

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	codes := make([]int, 0, len(stats.codes))
	for code := range stats.codes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	counts := make([]int64, len(codes))
	for i, code := range codes {
		counts[i] = stats.codes[code]
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", sum/time.Duration(len(latencies)))
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	for i, code := range codes {
		fmt.Printf("  %d: %d\n", code, counts[i])
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
