package calculator

import (
	"fmt"
	"strings"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

const (
	DefaultUnitsPerContainer = 13
	DefaultDipPackSize       = 5
	DefaultChipPackSize      = 10
)

var defaultUnitsPerContainer = map[Key]int{
	KeyDry:    18,
	KeyThin:   15,
	KeyThick:  12,
	KeyCreamy: 10,
}

var defaultPackSizes = map[Key]int{
	KeyDips:  DefaultDipPackSize,
	KeyChips: DefaultChipPackSize,
}

// classificationAliases folds catalog wording onto the classification table.
var classificationAliases = map[string]Key{
	"dry":        KeyDry,
	"dry rub":    KeyDry,
	"rub":        KeyDry,
	"thin":       KeyThin,
	"thin sauce": KeyThin,
	"thick":      KeyThick,
	"glaze":      KeyThick,
	"creamy":     KeyCreamy,
	"emulsified": KeyCreamy,
}

// Rules holds the packaging tables. Ratios are business constants and may be
// overridden from configuration.
type Rules struct {
	UnitsPerContainer        map[Key]int
	DefaultUnitsPerContainer int
	PackSizes                map[Key]int
}

// DefaultRules returns a copy of the built-in packaging tables.
func DefaultRules() Rules {
	return Rules{
		UnitsPerContainer:        cloneTable(defaultUnitsPerContainer),
		DefaultUnitsPerContainer: DefaultUnitsPerContainer,
		PackSizes:                cloneTable(defaultPackSizes),
	}
}

// WithOverrides returns a copy of r with the provided entries replaced.
func (r Rules) WithOverrides(ratios, packSizes map[string]int) Rules {
	out := Rules{
		UnitsPerContainer:        cloneTable(r.UnitsPerContainer),
		DefaultUnitsPerContainer: r.DefaultUnitsPerContainer,
		PackSizes:                cloneTable(r.PackSizes),
	}
	for k, v := range ratios {
		if k == "default" {
			out.DefaultUnitsPerContainer = v
			continue
		}
		out.UnitsPerContainer[Key(k)] = v
	}
	for k, v := range packSizes {
		out.PackSizes[Key(k)] = v
	}
	return out
}

// Validate checks every ratio and pack size is positive.
func (r Rules) Validate() error {
	if r.DefaultUnitsPerContainer <= 0 {
		return fmt.Errorf("%w: default units per container %d", ErrInvalidRule, r.DefaultUnitsPerContainer)
	}
	for k, v := range r.UnitsPerContainer {
		if v <= 0 {
			return fmt.Errorf("%w: %s units per container %d", ErrInvalidRule, k, v)
		}
	}
	for k, v := range r.PackSizes {
		if v <= 0 {
			return fmt.Errorf("%w: %s pack size %d", ErrInvalidRule, k, v)
		}
	}
	return nil
}

func (r Rules) unitsPerContainer(key Key) int {
	if v, ok := r.UnitsPerContainer[key]; ok {
		return v
	}
	return r.DefaultUnitsPerContainer
}

func (r Rules) packSize(key Key) (int, bool) {
	v, ok := r.PackSizes[key]
	return v, ok
}

// ClassificationKey maps a catalog classification onto a packaging key.
// Unclassified sauces map to an empty key, which uses the default ratio.
func ClassificationKey(classification string) Key {
	normalized := strings.ToLower(strings.TrimSpace(classification))
	normalized = strings.ReplaceAll(normalized, "_", " ")
	normalized = strings.ReplaceAll(normalized, "-", " ")
	if key, ok := classificationAliases[normalized]; ok {
		return key
	}
	return ""
}

// KeyForCategory returns the bundle key of a pack category.
func KeyForCategory(category domain.Category) (Key, error) {
	switch category {
	case domain.CategoryDips:
		return KeyDips, nil
	case domain.CategorySides, domain.CategoryDesserts, domain.CategoryBeverages:
		return Key(category.String()), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, category)
	}
}

func cloneTable(src map[Key]int) map[Key]int {
	out := make(map[Key]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
