// Package parser turns transport-level facet filters (query strings, RPC
// name lists) into engine options and derives canonical cache keys.
package parser

import (
	"net/url"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/searcher/engine"
)

// Query-string parameter names.
const (
	ParamSize  = "size"
	ParamColor = "color"
)

// Parse reads the size and color parameters. Each may be repeated, hold a
// comma-separated list, or both; blank entries are skipped. The first
// unknown name fails the whole request with ErrInvalidInput.
func Parse(values url.Values) (*engine.Options, error) {
	return FromNames(split(values[ParamSize]), split(values[ParamColor]))
}

// FromNames resolves facet names, keeping their order.
func FromNames(sizes, colors []string) (*engine.Options, error) {
	opts := &engine.Options{}
	for _, name := range sizes {
		if strings.TrimSpace(name) == "" {
			continue
		}
		s, err := catalog.ParseSize(name)
		if err != nil {
			return nil, err
		}
		opts.Sizes = append(opts.Sizes, s)
	}
	for _, name := range colors {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, err := catalog.ParseColor(name)
		if err != nil {
			return nil, err
		}
		opts.Colors = append(opts.Colors, c)
	}
	return opts, nil
}

func split(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// CanonicalKey describes the normalized form of opts, for example
// "sizes=small,medium|colors=red,blue,yellow,white,black". Two option sets
// with the same key produce identical results.
func CanonicalKey(opts *engine.Options) string {
	sizes, colors := engine.Normalize(opts)
	var b strings.Builder
	b.WriteString("sizes=")
	for i, s := range sizes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s.WireName())
	}
	b.WriteString("|colors=")
	for i, c := range colors {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.WireName())
	}
	return b.String()
}
