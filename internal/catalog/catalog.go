// Package catalog provides read-only access to packages and catalog items.
// Catalog storage itself belongs to another service; this package holds the
// in-memory and HTTP readers and the time-boxed cache the pricing layer uses.
package catalog

import (
	"context"
	"errors"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

var (
	// ErrPackageNotFound is returned when no package has the requested id.
	ErrPackageNotFound = errors.New("package not found")
	// ErrUnavailable is returned when the catalog could not be read.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Catalog lists the items of a category, optionally narrowed to a tier.
type Catalog interface {
	ItemsByCategory(ctx context.Context, category domain.Category, tier string) ([]domain.CatalogItem, error)
}

// Packages resolves package definitions.
type Packages interface {
	Package(ctx context.Context, id string) (domain.Package, error)
	ListPackages(ctx context.Context) ([]domain.Package, error)
}

// Source is a catalog that also serves packages.
type Source interface {
	Catalog
	Packages
}

// FilterActive keeps the active items offered for tier.
func FilterActive(items []domain.CatalogItem, tier string) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(items))
	for _, item := range items {
		if item.Active && item.AvailableFor(tier) {
			out = append(out, item)
		}
	}
	return out
}

// Index maps item ids to items.
func Index(items []domain.CatalogItem) map[string]domain.CatalogItem {
	out := make(map[string]domain.CatalogItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}
