// Package sampledata generates synthetic catalogs for benchmarks, load tests
// and local development.
package sampledata

import (
	"fmt"
	"math/rand"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
	"github.com/google/uuid"
)

// Builder produces Count items with uniformly distributed sizes and colors.
// A fixed Seed yields the same catalog, identifiers included.
type Builder struct {
	Count int
	Seed  int64
}

// New returns a Builder for count items.
func New(count int, seed int64) *Builder {
	return &Builder{Count: count, Seed: seed}
}

// Build generates the catalog. The returned slice is never nil.
func (b *Builder) Build() []catalog.Item {
	n := b.Count
	if n < 0 {
		n = 0
	}
	rng := rand.New(rand.NewSource(b.Seed))
	sizes := catalog.AllSizes()
	colors := catalog.AllColors()

	items := make([]catalog.Item, 0, n)
	for i := 0; i < n; i++ {
		size := sizes[rng.Intn(len(sizes))]
		color := colors[rng.Intn(len(colors))]
		var id uuid.UUID
		rng.Read(id[:])
		// Stamp RFC 4122 version 4 bits so generated ids look like uuid.New().
		id[6] = (id[6] & 0x0f) | 0x40
		id[8] = (id[8] & 0x3f) | 0x80
		items = append(items, catalog.Item{
			ID:    id,
			Name:  fmt.Sprintf("%s - %s", color, size),
			Size:  size,
			Color: color,
		})
	}
	return items
}
