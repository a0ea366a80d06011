package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/tracing"
)

// SearchResponse is the body of GET /api/v1/search. Total and the count
// tables always describe the full match set, even when Items is truncated.
type SearchResponse struct {
	Items       []catalog.Item      `json:"items"`
	Total       int                 `json:"total"`
	Returned    int                 `json:"returned"`
	Truncated   bool                `json:"truncated"`
	SizeCounts  []engine.SizeCount  `json:"size_counts"`
	ColorCounts []engine.ColorCount `json:"color_counts"`
	CacheHit    bool                `json:"cache_hit"`
	LatencyMs   float64             `json:"latency_ms"`
}

type FacetsResponse struct {
	Sizes  []string `json:"sizes"`
	Colors []string `json:"colors"`
}

type Handler struct {
	svc      *service.Service
	maxItems int
	logger   *slog.Logger
}

// New returns HTTP handlers over svc. maxItems caps the items in a search
// response; 0 means no cap.
func New(svc *service.Service, maxItems int) *Handler {
	return &Handler{
		svc:      svc,
		maxItems: maxItems,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/facets", h.Facets)
	mux.HandleFunc("GET /api/v1/catalog", h.Catalog)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, root := tracing.StartSpan(r.Context(), "http.search")
	defer func() {
		root.End()
		root.Log(logger.FromContext(ctx))
	}()

	_, span := tracing.StartChild(ctx, "parse")
	query := r.URL.Query()
	opts, err := parser.Parse(query)
	var limit int
	if err == nil {
		limit, err = h.limit(query)
	}
	span.End()
	if err != nil {
		h.svc.RejectInvalid()
		h.writeError(w, err)
		return
	}

	_, span = tracing.StartChild(ctx, "search")
	out := h.svc.Search(ctx, opts, "http")
	span.SetAttr("cache", out.CacheStatus)
	span.SetAttr("total", out.Result.Total())
	span.End()

	_, span = tracing.StartChild(ctx, "encode")
	items := out.Result.Items
	truncated := false
	if limit > 0 && len(items) > limit {
		items = items[:limit]
		truncated = true
	}
	if items == nil {
		items = []catalog.Item{}
	}
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Items:       items,
		Total:       out.Result.Total(),
		Returned:    len(items),
		Truncated:   truncated,
		SizeCounts:  out.Result.SizeCounts,
		ColorCounts: out.Result.ColorCounts,
		CacheHit:    out.CacheHit(),
		LatencyMs:   float64(out.Latency.Microseconds()) / 1000,
	})
	span.End()
}

// limit returns the item cap for a request: the optional limit parameter
// bounded by maxItems. Zero means uncapped.
func (h *Handler) limit(query url.Values) (int, error) {
	raw := query.Get("limit")
	if raw == "" {
		return h.maxItems, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer, got %q", raw)
	}
	if h.maxItems > 0 && n > h.maxItems {
		n = h.maxItems
	}
	return n, nil
}

func (h *Handler) Facets(w http.ResponseWriter, r *http.Request) {
	resp := FacetsResponse{}
	for _, s := range catalog.AllSizes() {
		resp.Sizes = append(resp.Sizes, s.WireName())
	}
	for _, c := range catalog.AllColors() {
		resp.Colors = append(resp.Colors, c.WireName())
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.svc.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := c.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"errors":   stats.Errors,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  stats.Breaker,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	c := h.svc.Cache()
	if c == nil {
		h.writeError(w, apperrors.New(apperrors.ErrCacheUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	start := time.Now()
	deleted, err := c.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrCacheUnavailable, http.StatusServiceUnavailable, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "invalidated",
		"keys_deleted": deleted,
		"took_ms":      time.Since(start).Milliseconds(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": apperrors.Message(err)})
}
