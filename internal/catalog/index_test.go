package catalog

import (
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestBuildNilCollection(t *testing.T) {
	idx, err := Build(nil)
	if err == nil {
		t.Fatal("expected error for nil collection")
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if idx != nil {
		t.Error("expected nil index on error")
	}
}

func TestBuildEmptyCollection(t *testing.T) {
	idx, err := Build([]Item{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Len() != 0 || idx.Buckets() != 0 {
		t.Errorf("expected empty index, got len=%d buckets=%d", idx.Len(), idx.Buckets())
	}
	if _, ok := idx.Lookup(Small, Red); ok {
		t.Error("expected lookup miss on empty index")
	}
}

func TestBuildGroupsByPair(t *testing.T) {
	items := []Item{
		NewItem("Red - Small", Small, Red),
		NewItem("Black - Medium", Medium, Black),
		NewItem("Red - Small", Small, Red),
		NewItem("Blue - Large", Large, Blue),
	}
	idx, err := Build(items)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 4 {
		t.Errorf("Len() = %d, want 4", idx.Len())
	}
	if idx.Buckets() != 3 {
		t.Errorf("Buckets() = %d, want 3", idx.Buckets())
	}

	bucket, ok := idx.Lookup(Small, Red)
	if !ok {
		t.Fatal("expected hit for (Small, Red)")
	}
	if len(bucket) != 2 || bucket[0].ID != items[0].ID || bucket[1].ID != items[2].ID {
		t.Errorf("bucket must keep input order, got %+v", bucket)
	}
	if _, ok := idx.Lookup(Large, Red); ok {
		t.Error("expected miss for (Large, Red)")
	}
}

func TestEachEnumerationOrder(t *testing.T) {
	items := []Item{
		NewItem("a", Large, Black),
		NewItem("b", Small, Blue),
		NewItem("c", Small, Red),
		NewItem("d", Medium, Red),
	}
	idx, err := Build(items)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var keys []Key
	idx.Each(func(key Key, _ []Item) { keys = append(keys, key) })
	want := []Key{{Small, Red}, {Small, Blue}, {Medium, Red}, {Large, Black}}
	if len(keys) != len(want) {
		t.Fatalf("visited %d buckets, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("bucket %d = %+v, want %+v", i, keys[i], want[i])
		}
	}
}

func TestFingerprint(t *testing.T) {
	items := []Item{NewItem("a", Small, Red), NewItem("b", Large, White)}
	a, _ := Build(items)
	b, _ := Build(append([]Item{}, items...))
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("same content must share a fingerprint")
	}
	c, _ := Build(items[:1])
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different content should not share a fingerprint")
	}
}

// genItems produces catalogs whose pairs are drawn from the full
// enumerations. Each generated code encodes one (Size, Color) pair.
func genItems() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, NumSizes*NumColors-1)).Map(func(codes []int) []Item {
		items := make([]Item, 0, len(codes))
		for _, code := range codes {
			items = append(items, NewItem("generated", Size(code/NumColors), Color(code%NumColors)))
		}
		return items
	})
}

func TestProperty_IndexPartitionsInput(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("every item lands in exactly one bucket keyed by its own pair", prop.ForAll(
		func(items []Item) bool {
			idx, err := Build(items)
			if err != nil {
				return false
			}
			seen := make(map[uuid.UUID]int, len(items))
			total := 0
			ok := true
			idx.Each(func(key Key, bucket []Item) {
				for _, item := range bucket {
					if KeyOf(item) != key {
						ok = false
					}
					seen[item.ID]++
					total++
				}
			})
			if !ok || total != len(items) || idx.Len() != len(items) {
				return false
			}
			for _, item := range items {
				if seen[item.ID] != 1 {
					return false
				}
			}
			return true
		},
		genItems(),
	))

	properties.TestingRun(t)
}
