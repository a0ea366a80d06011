// Package engine evaluates faceted queries against a catalog.Index. A query
// names the sizes and colors to match; the result lists the matching items
// together with a count for every size and every color.
package engine

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
)

// Options is a faceted query. An empty facet list places no restriction on
// that facet. Repeated values are treated as one.
type Options struct {
	Sizes  []catalog.Size  `json:"sizes,omitempty" msgpack:"sizes,omitempty"`
	Colors []catalog.Color `json:"colors,omitempty" msgpack:"colors,omitempty"`
}

type SizeCount struct {
	Size  catalog.Size `json:"size" msgpack:"size"`
	Count int          `json:"count" msgpack:"count"`
}

type ColorCount struct {
	Color catalog.Color `json:"color" msgpack:"color"`
	Count int           `json:"count" msgpack:"count"`
}

// Result holds the matched items and the facet tables. SizeCounts and
// ColorCounts always carry one entry per enumeration value, in ordinal order.
type Result struct {
	Items       []catalog.Item `json:"items" msgpack:"items"`
	SizeCounts  []SizeCount    `json:"size_counts" msgpack:"size_counts"`
	ColorCounts []ColorCount   `json:"color_counts" msgpack:"color_counts"`
}

// Total returns the number of matched items.
func (r *Result) Total() int {
	return len(r.Items)
}

// CountForSize returns the count entry for s, or zero for unknown sizes.
func (r *Result) CountForSize(s catalog.Size) int {
	for _, sc := range r.SizeCounts {
		if sc.Size == s {
			return sc.Count
		}
	}
	return 0
}

// CountForColor returns the count entry for c, or zero for unknown colors.
func (r *Result) CountForColor(c catalog.Color) int {
	for _, cc := range r.ColorCounts {
		if cc.Color == c {
			return cc.Count
		}
	}
	return 0
}

// Stats describes the indexed catalog.
type Stats struct {
	Items       int    `json:"items"`
	Buckets     int    `json:"buckets"`
	Fingerprint string `json:"fingerprint"`
}

// Engine answers queries over one immutable index. It holds no mutable
// state, so Search is safe for concurrent use.
type Engine struct {
	index  *catalog.Index
	logger *slog.Logger
}

// New builds the index for items and wraps it in an Engine. A nil slice
// fails with ErrInvalidInput.
func New(items []catalog.Item) (*Engine, error) {
	idx, err := catalog.Build(items)
	if err != nil {
		return nil, err
	}
	return FromIndex(idx), nil
}

// FromIndex wraps a prebuilt index. It panics if idx is nil.
func FromIndex(idx *catalog.Index) *Engine {
	if idx == nil {
		panic("engine: nil catalog index")
	}
	return &Engine{
		index:  idx,
		logger: slog.Default().With("component", "search-engine"),
	}
}

// Stats reports the size of the underlying index.
func (e *Engine) Stats() Stats {
	return Stats{
		Items:       e.index.Len(),
		Buckets:     e.index.Buckets(),
		Fingerprint: e.index.Fingerprint(),
	}
}

// Search evaluates opts. A nil opts matches the whole catalog. The caller's
// slices are never modified.
func (e *Engine) Search(opts *Options) *Result {
	sizes, colors := Normalize(opts)

	var sizeTotals [catalog.NumSizes]int
	var colorTotals [catalog.NumColors]int
	items := make([]catalog.Item, 0, e.estimate(sizes, colors))

	for _, color := range colors {
		for _, size := range sizes {
			// Values outside the enumerations never match.
			if !size.Valid() || !color.Valid() {
				continue
			}
			bucket, ok := e.index.Lookup(size, color)
			if !ok {
				continue
			}
			items = append(items, bucket...)
			sizeTotals[size] += len(bucket)
			colorTotals[color] += len(bucket)
		}
	}

	result := &Result{
		Items:       items,
		SizeCounts:  make([]SizeCount, catalog.NumSizes),
		ColorCounts: make([]ColorCount, catalog.NumColors),
	}
	for i := range result.SizeCounts {
		result.SizeCounts[i] = SizeCount{Size: catalog.Size(i), Count: sizeTotals[i]}
	}
	for i := range result.ColorCounts {
		result.ColorCounts[i] = ColorCount{Color: catalog.Color(i), Count: colorTotals[i]}
	}

	e.logger.Debug("query executed",
		"sizes", len(sizes),
		"colors", len(colors),
		"results", len(items),
	)
	return result
}

// estimate sizes the result slice so append never reallocates.
func (e *Engine) estimate(sizes []catalog.Size, colors []catalog.Color) int {
	n := 0
	for _, color := range colors {
		for _, size := range sizes {
			if !size.Valid() || !color.Valid() {
				continue
			}
			if bucket, ok := e.index.Lookup(size, color); ok {
				n += len(bucket)
			}
		}
	}
	return n
}

// Normalize returns de-duplicated copies of the requested facets, keeping
// first-occurrence order. An empty facet expands to its full enumeration.
func Normalize(opts *Options) ([]catalog.Size, []catalog.Color) {
	if opts == nil {
		return catalog.AllSizes(), catalog.AllColors()
	}
	sizes := dedupe(opts.Sizes)
	if len(sizes) == 0 {
		sizes = catalog.AllSizes()
	}
	colors := dedupe(opts.Colors)
	if len(colors) == 0 {
		colors = catalog.AllColors()
	}
	return sizes, colors
}

func dedupe[T comparable](values []T) []T {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
