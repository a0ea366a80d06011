// Package analytics collects one event per catalog search and aggregates
// them into traffic statistics: latency percentiles, cache effectiveness and
// the most requested and zero-result facet combinations.
package analytics

import (
	"sort"
	"strings"
	"time"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// AnyValue stands for an unrestricted facet in a combination.
const AnyValue = "*"

// SearchEvent describes one evaluated search. Sizes and Colors hold the
// requested wire names; empty means the facet was unrestricted.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Sizes     []string  `json:"sizes,omitempty"`
	Colors    []string  `json:"colors,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs float64   `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Combo returns the facet combination the event asked for, independent of
// value order and repetition, e.g. "size=large,small|color=*".
func (e SearchEvent) Combo() string {
	return "size=" + joinSet(e.Sizes) + "|color=" + joinSet(e.Colors)
}

func joinSet(values []string) string {
	if len(values) == 0 {
		return AnyValue
	}
	set := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(v)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		set = append(set, v)
	}
	sort.Strings(set)
	return strings.Join(set, ",")
}
