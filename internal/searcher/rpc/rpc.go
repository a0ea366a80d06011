// Package rpc exposes catalog search on the JSON-over-TCP RPC server.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/proto"
)

const (
	MethodSearch = "CatalogSearch.Search"
	MethodFacets = "CatalogSearch.Facets"
	MethodHealth = "CatalogSearch.Health"
)

type Service struct {
	svc      *service.Service
	maxItems int
}

// Register installs the CatalogSearch methods on server.
func Register(server *grpc.Server, svc *service.Service, maxItems int) {
	s := &Service{svc: svc, maxItems: maxItems}
	server.Register(MethodSearch, s.search)
	server.Register(MethodFacets, s.facets)
	server.Register(MethodHealth, s.health)
}

func (s *Service) search(ctx context.Context, params json.RawMessage) (any, error) {
	var req proto.SearchRequest
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, &req); err != nil {
			s.svc.RejectInvalid()
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "malformed search request: %v", err)
		}
	}
	opts, err := parser.FromNames(req.Sizes, req.Colors)
	if err != nil {
		s.svc.RejectInvalid()
		return nil, err
	}
	out := s.svc.Search(ctx, opts, "rpc")
	return toProto(out, s.maxItems), nil
}

func (s *Service) facets(context.Context, json.RawMessage) (any, error) {
	resp := &proto.FacetsResponse{}
	for _, size := range catalog.AllSizes() {
		resp.Sizes = append(resp.Sizes, size.WireName())
	}
	for _, color := range catalog.AllColors() {
		resp.Colors = append(resp.Colors, color.WireName())
	}
	return resp, nil
}

func (s *Service) health(context.Context, json.RawMessage) (any, error) {
	return &proto.HealthCheckResponse{Status: "SERVING"}, nil
}

func toProto(out service.Outcome, maxItems int) *proto.SearchResponse {
	r := out.Result
	items := r.Items
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	resp := &proto.SearchResponse{
		Items:       make([]proto.Item, len(items)),
		Total:       r.Total(),
		SizeCounts:  make([]proto.FacetCount, len(r.SizeCounts)),
		ColorCounts: make([]proto.FacetCount, len(r.ColorCounts)),
		CacheHit:    out.CacheHit(),
		LatencyMs:   out.Latency.Milliseconds(),
	}
	for i, it := range items {
		resp.Items[i] = itemToProto(it)
	}
	for i, sc := range r.SizeCounts {
		resp.SizeCounts[i] = proto.FacetCount{Value: sc.Size.WireName(), Count: sc.Count}
	}
	for i, cc := range r.ColorCounts {
		resp.ColorCounts[i] = proto.FacetCount{Value: cc.Color.WireName(), Count: cc.Count}
	}
	return resp
}

func itemToProto(it catalog.Item) proto.Item {
	return proto.Item{
		ID:    it.ID.String(),
		Name:  it.Name,
		Size:  it.Size.WireName(),
		Color: it.Color.WireName(),
	}
}
