package catalog

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
	"github.com/spaolacci/murmur3"
)

// Index partitions a catalog by exact (Size, Color) pair. It is built once
// and is read-only afterwards, so any number of goroutines may query it
// without locking.
type Index struct {
	buckets     map[Key][]Item
	total       int
	fingerprint uint64
}

// Build groups items by their composite key in a single pass. A nil slice
// is rejected with ErrInvalidInput; an empty slice yields an empty index.
func Build(items []Item) (*Index, error) {
	if items == nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "collection of items must not be nil")
	}
	idx := &Index{
		buckets: make(map[Key][]Item, NumSizes*NumColors),
		total:   len(items),
	}
	h := murmur3.New64()
	var ordinal [2]byte
	for _, item := range items {
		key := KeyOf(item)
		idx.buckets[key] = append(idx.buckets[key], item)

		h.Write(item.ID[:])
		ordinal[0], ordinal[1] = byte(item.Size), byte(item.Color)
		h.Write(ordinal[:])
	}
	var count [8]byte
	binary.LittleEndian.PutUint64(count[:], uint64(len(items)))
	h.Write(count[:])
	idx.fingerprint = h.Sum64()

	slog.Default().With("component", "catalog-index").Debug("index built",
		"items", idx.total,
		"buckets", len(idx.buckets),
	)
	return idx, nil
}

// Lookup returns the bucket for the exact pair. The second result is false
// when no item with that pair was observed.
func (idx *Index) Lookup(size Size, color Color) ([]Item, bool) {
	bucket, ok := idx.buckets[Key{Size: size, Color: color}]
	return bucket, ok
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	return idx.total
}

// Buckets returns the number of distinct (Size, Color) pairs observed.
func (idx *Index) Buckets() int {
	return len(idx.buckets)
}

// Fingerprint identifies the indexed content. Two indexes built from the
// same items in the same order share a fingerprint.
func (idx *Index) Fingerprint() string {
	return fmt.Sprintf("%016x", idx.fingerprint)
}

// Each calls fn for every observed bucket, sizes outermost, both in ordinal
// order. Buckets holding values outside the enumerations come last, in no
// particular order.
func (idx *Index) Each(fn func(key Key, items []Item)) {
	visited := 0
	for s := 0; s < NumSizes; s++ {
		for c := 0; c < NumColors; c++ {
			key := Key{Size: Size(s), Color: Color(c)}
			if bucket, ok := idx.buckets[key]; ok {
				fn(key, bucket)
				visited++
			}
		}
	}
	if visited == len(idx.buckets) {
		return
	}
	for key, bucket := range idx.buckets {
		if !key.Size.Valid() || !key.Color.Valid() {
			fn(key, bucket)
		}
	}
}
