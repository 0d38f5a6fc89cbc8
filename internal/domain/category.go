package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned when a category key is not part of the enumeration.
var ErrUnknownCategory = errors.New("unknown category")

// Category enumerates the configurable sections of a catering package.
type Category int

const (
	CategoryWings Category = iota + 1
	CategorySauces
	CategoryDips
	CategorySides
	CategoryDesserts
	CategoryBeverages

	categoryCount = int(CategoryBeverages)
)

// categoryKeys is the single canonical mapping between categories and their wire keys.
var categoryKeys = [...]string{
	CategoryWings:     "wings",
	CategorySauces:    "sauces",
	CategoryDips:      "dips",
	CategorySides:     "sides",
	CategoryDesserts:  "desserts",
	CategoryBeverages: "beverages",
}

// Fails to compile when a category is added without a key.
var _ = [1]struct{}{}[len(categoryKeys)-1-categoryCount]

// Categories returns every category in presentation order.
func Categories() []Category {
	out := make([]Category, 0, categoryCount)
	for c := CategoryWings; int(c) <= categoryCount; c++ {
		out = append(out, c)
	}
	return out
}

// PackCategories returns the categories configured through pack selections.
func PackCategories() []Category {
	return []Category{CategoryDips, CategorySides, CategoryDesserts, CategoryBeverages}
}

// ParseCategory resolves a wire key into a Category.
func ParseCategory(key string) (Category, error) {
	for i, k := range categoryKeys {
		if i > 0 && k == key {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, key)
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	return c >= CategoryWings && int(c) <= categoryCount
}

// IsPackCategory reports whether the category is configured with pack selections.
func (c Category) IsPackCategory() bool {
	switch c {
	case CategoryDips, CategorySides, CategoryDesserts, CategoryBeverages:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryKeys[c]
}

// MarshalText encodes the category as its canonical key.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(categoryKeys[c]), nil
}

// UnmarshalText decodes a canonical key.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
