package engine

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
)

type counts struct {
	sizes  map[catalog.Size]int
	colors map[catalog.Color]int
}

func item(size catalog.Size, color catalog.Color) catalog.Item {
	return catalog.NewItem(color.String()+" - "+size.String(), size, color)
}

func mustEngine(t *testing.T, items []catalog.Item) *Engine {
	t.Helper()
	e, err := New(items)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// assertResults checks that every catalog item matching opts is in the
// result and that nothing else is.
func assertResults(t *testing.T, all []catalog.Item, opts *Options, got *Result) {
	t.Helper()
	sizes, colors := Normalize(opts)
	want := make(map[catalog.Item]bool)
	for _, it := range all {
		want[it] = containsSize(sizes, it.Size) && containsColor(colors, it.Color)
	}
	returned := make(map[catalog.Item]int)
	for _, it := range got.Items {
		returned[it]++
		if !want[it] {
			t.Errorf("%q (%v, %v) returned but does not match", it.Name, it.Size, it.Color)
		}
	}
	for it, match := range want {
		if match && returned[it] != 1 {
			t.Errorf("%q (%v, %v) returned %d times, want once", it.Name, it.Size, it.Color, returned[it])
		}
	}
}

func assertCounts(t *testing.T, want counts, got *Result) {
	t.Helper()
	if len(got.SizeCounts) != catalog.NumSizes {
		t.Fatalf("expected counts for all %d sizes, got %d", catalog.NumSizes, len(got.SizeCounts))
	}
	if len(got.ColorCounts) != catalog.NumColors {
		t.Fatalf("expected counts for all %d colors, got %d", catalog.NumColors, len(got.ColorCounts))
	}
	for i, sc := range got.SizeCounts {
		if sc.Size != catalog.Size(i) {
			t.Errorf("size entry %d is %v, want ordinal order", i, sc.Size)
		}
		if sc.Count != want.sizes[sc.Size] {
			t.Errorf("the count for %v was %d, want %d", sc.Size, sc.Count, want.sizes[sc.Size])
		}
	}
	for i, cc := range got.ColorCounts {
		if cc.Color != catalog.Color(i) {
			t.Errorf("color entry %d is %v, want ordinal order", i, cc.Color)
		}
		if cc.Count != want.colors[cc.Color] {
			t.Errorf("the count for %v was %d, want %d", cc.Color, cc.Count, want.colors[cc.Color])
		}
	}
}

func containsSize(list []catalog.Size, s catalog.Size) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsColor(list []catalog.Color, c catalog.Color) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

func threeItemCatalog() []catalog.Item {
	return []catalog.Item{
		item(catalog.Small, catalog.Red),
		item(catalog.Medium, catalog.Black),
		item(catalog.Large, catalog.Blue),
	}
}

func elevenItemCatalog() []catalog.Item {
	return []catalog.Item{
		item(catalog.Small, catalog.Red),
		item(catalog.Medium, catalog.Red),
		item(catalog.Large, catalog.Red),
		item(catalog.Small, catalog.Yellow),
		item(catalog.Medium, catalog.Yellow),
		item(catalog.Small, catalog.White),
		item(catalog.Medium, catalog.White),
		item(catalog.Medium, catalog.Black),
		item(catalog.Large, catalog.Black),
		item(catalog.Small, catalog.Blue),
		item(catalog.Large, catalog.Blue),
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name      string
		items     []catalog.Item
		opts      *Options
		wantTotal int
		want      counts
	}{
		{
			name:      "red returns the red item",
			items:     threeItemCatalog(),
			opts:      &Options{Colors: []catalog.Color{catalog.Red}},
			wantTotal: 1,
			want: counts{
				sizes:  map[catalog.Size]int{catalog.Small: 1},
				colors: map[catalog.Color]int{catalog.Red: 1},
			},
		},
		{
			name:      "small red in a single small red",
			items:     threeItemCatalog(),
			opts:      &Options{Sizes: []catalog.Size{catalog.Small}, Colors: []catalog.Color{catalog.Red}},
			wantTotal: 1,
			want: counts{
				sizes:  map[catalog.Size]int{catalog.Small: 1},
				colors: map[catalog.Color]int{catalog.Red: 1},
			},
		},
		{
			name:      "small red in multiple small red",
			items:     append(threeItemCatalog(), item(catalog.Small, catalog.Red)),
			opts:      &Options{Sizes: []catalog.Size{catalog.Small}, Colors: []catalog.Color{catalog.Red}},
			wantTotal: 2,
			want: counts{
				sizes:  map[catalog.Size]int{catalog.Small: 2},
				colors: map[catalog.Color]int{catalog.Red: 2},
			},
		},
		{
			name: "small red with no match",
			items: []catalog.Item{
				item(catalog.Medium, catalog.Red),
				item(catalog.Medium, catalog.Black),
				item(catalog.Large, catalog.Blue),
			},
			opts:      &Options{Sizes: []catalog.Size{catalog.Small}, Colors: []catalog.Color{catalog.Red}},
			wantTotal: 0,
		},
		{
			name:      "small returns the small item",
			items:     threeItemCatalog(),
			opts:      &Options{Sizes: []catalog.Size{catalog.Small}},
			wantTotal: 1,
			want: counts{
				sizes:  map[catalog.Size]int{catalog.Small: 1},
				colors: map[catalog.Color]int{catalog.Red: 1},
			},
		},
		{
			name: "all sizes red",
			items: []catalog.Item{
				item(catalog.Small, catalog.Red),
				item(catalog.Medium, catalog.Red),
				item(catalog.Large, catalog.Red),
				item(catalog.Medium, catalog.Black),
				item(catalog.Large, catalog.Black),
				item(catalog.Small, catalog.Blue),
				item(catalog.Large, catalog.Blue),
			},
			opts:      &Options{Sizes: catalog.AllSizes(), Colors: []catalog.Color{catalog.Red}},
			wantTotal: 3,
			want: counts{
				sizes:  map[catalog.Size]int{catalog.Small: 1, catalog.Medium: 1, catalog.Large: 1},
				colors: map[catalog.Color]int{catalog.Red: 3},
			},
		},
		{
			name:      "small in all colors",
			items:     elevenItemCatalog(),
			opts:      &Options{Sizes: []catalog.Size{catalog.Small}, Colors: catalog.AllColors()},
			wantTotal: 4,
			want: counts{
				sizes: map[catalog.Size]int{catalog.Small: 4},
				colors: map[catalog.Color]int{
					catalog.Red: 1, catalog.Yellow: 1, catalog.White: 1, catalog.Blue: 1,
				},
			},
		},
		{
			name:  "small and medium in red and yellow",
			items: elevenItemCatalog(),
			opts: &Options{
				Sizes:  []catalog.Size{catalog.Small, catalog.Medium},
				Colors: []catalog.Color{catalog.Red, catalog.Yellow},
			},
			wantTotal: 4,
			want: counts{
				sizes:  map[catalog.Size]int{catalog.Small: 2, catalog.Medium: 2},
				colors: map[catalog.Color]int{catalog.Red: 2, catalog.Yellow: 2},
			},
		},
		{
			name:  "repeated request values count once",
			items: elevenItemCatalog(),
			opts: &Options{
				Sizes:  []catalog.Size{catalog.Small, catalog.Small},
				Colors: []catalog.Color{catalog.Red, catalog.Red, catalog.Red},
			},
			wantTotal: 1,
			want: counts{
				sizes:  map[catalog.Size]int{catalog.Small: 1},
				colors: map[catalog.Color]int{catalog.Red: 1},
			},
		},
		{
			name:      "out-of-range values match nothing",
			items:     elevenItemCatalog(),
			opts:      &Options{Sizes: []catalog.Size{catalog.Size(42)}},
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEngine(t, tt.items)
			got := e.Search(tt.opts)
			if got.Total() != tt.wantTotal {
				t.Fatalf("expected %d items, got %d", tt.wantTotal, got.Total())
			}
			assertResults(t, tt.items, tt.opts, got)
			assertCounts(t, tt.want, got)
		})
	}
}

func TestSearchWithoutOptionsReturnsEverything(t *testing.T) {
	items := []catalog.Item{
		item(catalog.Small, catalog.Red),
		item(catalog.Small, catalog.Yellow),
	}
	e := mustEngine(t, items)
	for name, opts := range map[string]*Options{"nil": nil, "empty": {}, "empty slices": {Sizes: []catalog.Size{}, Colors: []catalog.Color{}}} {
		t.Run(name, func(t *testing.T) {
			got := e.Search(opts)
			if got.Total() != 2 {
				t.Errorf("expected 2 items, got %d", got.Total())
			}
		})
	}
}

func TestNewRejectsNilCollection(t *testing.T) {
	e, err := New(nil)
	if err == nil {
		t.Fatal("expected an error for a nil collection")
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if e != nil {
		t.Error("expected no engine")
	}
}

func TestEmptyCatalog(t *testing.T) {
	e := mustEngine(t, []catalog.Item{})
	for _, opts := range []*Options{nil, {Colors: []catalog.Color{catalog.Red}}, {Sizes: catalog.AllSizes()}} {
		got := e.Search(opts)
		if got.Total() != 0 {
			t.Errorf("expected no items, got %d", got.Total())
		}
		if got.Items == nil {
			t.Error("Items should be an empty slice, not nil")
		}
		assertCounts(t, counts{}, got)
	}
}

func TestFromIndexPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil index")
		}
	}()
	FromIndex(nil)
}

func TestSearchDoesNotMutateOptions(t *testing.T) {
	e := mustEngine(t, elevenItemCatalog())
	opts := &Options{Sizes: []catalog.Size{catalog.Small, catalog.Small}}
	e.Search(opts)
	if len(opts.Sizes) != 2 || opts.Colors != nil {
		t.Errorf("options were modified: %+v", opts)
	}
}

func TestResultItemsDoNotAliasIndex(t *testing.T) {
	items := elevenItemCatalog()
	e := mustEngine(t, items)
	first := e.Search(&Options{Colors: []catalog.Color{catalog.Red}})
	first.Items[0].Name = "mutated"
	second := e.Search(&Options{Colors: []catalog.Color{catalog.Red}})
	if second.Items[0].Name == "mutated" {
		t.Error("mutating a result must not reach the index")
	}
}

func TestIterationOrderColorsOuter(t *testing.T) {
	items := []catalog.Item{
		item(catalog.Large, catalog.Blue),
		item(catalog.Small, catalog.Blue),
		item(catalog.Small, catalog.Red),
	}
	e := mustEngine(t, items)
	got := e.Search(&Options{
		Sizes:  []catalog.Size{catalog.Small, catalog.Large},
		Colors: []catalog.Color{catalog.Blue, catalog.Red},
	})
	want := []catalog.Item{items[1], items[0], items[2]}
	if !reflect.DeepEqual(got.Items, want) {
		t.Errorf("items = %v, want %v", got.Items, want)
	}
}

func TestCountHelpers(t *testing.T) {
	e := mustEngine(t, elevenItemCatalog())
	got := e.Search(nil)
	if got.CountForSize(catalog.Small) != 4 {
		t.Errorf("CountForSize(Small) = %d, want 4", got.CountForSize(catalog.Small))
	}
	if got.CountForColor(catalog.Black) != 2 {
		t.Errorf("CountForColor(Black) = %d, want 2", got.CountForColor(catalog.Black))
	}
	if got.CountForColor(catalog.Color(99)) != 0 {
		t.Error("unknown color should count zero")
	}
}

func TestStats(t *testing.T) {
	e := mustEngine(t, elevenItemCatalog())
	stats := e.Stats()
	if stats.Items != 11 || stats.Buckets != 11 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(stats.Fingerprint) != 16 {
		t.Errorf("fingerprint %q should be 16 hex digits", stats.Fingerprint)
	}
}

func TestConcurrentSearch(t *testing.T) {
	e := mustEngine(t, elevenItemCatalog())
	want := e.Search(&Options{Colors: []catalog.Color{catalog.Red, catalog.Blue}})

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := e.Search(&Options{Colors: []catalog.Color{catalog.Red, catalog.Blue}})
			if !reflect.DeepEqual(got, want) {
				errs <- "concurrent search diverged"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestNormalize(t *testing.T) {
	sizes, colors := Normalize(&Options{
		Sizes:  []catalog.Size{catalog.Large, catalog.Small, catalog.Large},
		Colors: nil,
	})
	if !reflect.DeepEqual(sizes, []catalog.Size{catalog.Large, catalog.Small}) {
		t.Errorf("sizes = %v", sizes)
	}
	if !reflect.DeepEqual(colors, catalog.AllColors()) {
		t.Errorf("colors = %v, want full enumeration", colors)
	}
}
