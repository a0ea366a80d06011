// Package catalog defines the immutable catalog model: the closed Size and
// Color enumerations, the Item record, and the composite-key Index that
// partitions a catalog by its (Size, Color) pair.
package catalog

import (
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Faceted-Catalog-Search/pkg/errors"
)

// Size is a closed enumeration of garment sizes. The zero value is Small.
type Size uint8

const (
	Small Size = iota
	Medium
	Large

	NumSizes = 3
)

// Color is a closed enumeration of garment colors. The zero value is Red.
type Color uint8

const (
	Red Color = iota
	Blue
	Yellow
	White
	Black

	NumColors = 5
)

var sizeNames = [NumSizes]string{"Small", "Medium", "Large"}

var colorNames = [NumColors]string{"Red", "Blue", "Yellow", "White", "Black"}

// AllSizes returns every known Size in ordinal order. The slice is a fresh
// copy on each call.
func AllSizes() []Size {
	out := make([]Size, NumSizes)
	for i := range out {
		out[i] = Size(i)
	}
	return out
}

// AllColors returns every known Color in ordinal order.
func AllColors() []Color {
	out := make([]Color, NumColors)
	for i := range out {
		out[i] = Color(i)
	}
	return out
}

// Valid reports whether s is a member of the enumeration.
func (s Size) Valid() bool { return int(s) < NumSizes }

// Valid reports whether c is a member of the enumeration.
func (c Color) Valid() bool { return int(c) < NumColors }

func (s Size) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Size(%d)", uint8(s))
	}
	return sizeNames[s]
}

func (c Color) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Color(%d)", uint8(c))
	}
	return colorNames[c]
}

// WireName is the lowercase name used in query strings and payloads.
func (s Size) WireName() string { return strings.ToLower(s.String()) }

// WireName is the lowercase name used in query strings and payloads.
func (c Color) WireName() string { return strings.ToLower(c.String()) }

// ParseSize resolves a size name case-insensitively.
func ParseSize(name string) (Size, error) {
	n := strings.TrimSpace(name)
	for i, candidate := range sizeNames {
		if strings.EqualFold(candidate, n) {
			return Size(i), nil
		}
	}
	return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown size %q", name)
}

// ParseColor resolves a color name case-insensitively.
func ParseColor(name string) (Color, error) {
	n := strings.TrimSpace(name)
	for i, candidate := range colorNames {
		if strings.EqualFold(candidate, n) {
			return Color(i), nil
		}
	}
	return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown color %q", name)
}

func (s Size) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshaling size: %w", apperrors.ErrInvalidInput)
	}
	return []byte(s.WireName()), nil
}

func (s *Size) UnmarshalText(text []byte) error {
	parsed, err := ParseSize(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("marshaling color: %w", apperrors.ErrInvalidInput)
	}
	return []byte(c.WireName()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
