// Package proto defines the messages exchanged over the catalog search RPC
// layer (see pkg/grpc). Facet values travel as lowercase wire names.
package proto

// Item is one catalog record.
type Item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Size  string `json:"size"`
	Color string `json:"color"`
}

// FacetCount is the number of matched items carrying Value.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchRequest selects items by facet. An empty list means any value.
type SearchRequest struct {
	Sizes  []string `json:"sizes,omitempty"`
	Colors []string `json:"colors,omitempty"`
}

type SearchResponse struct {
	Items       []Item       `json:"items"`
	Total       int          `json:"total"`
	SizeCounts  []FacetCount `json:"size_counts"`
	ColorCounts []FacetCount `json:"color_counts"`
	CacheHit    bool         `json:"cache_hit"`
	LatencyMs   int64        `json:"latency_ms"`
}

type FacetsRequest struct{}

// FacetsResponse lists every accepted facet value in enumeration order.
type FacetsResponse struct {
	Sizes  []string `json:"sizes"`
	Colors []string `json:"colors"`
}

type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING or NOT_SERVING
}
