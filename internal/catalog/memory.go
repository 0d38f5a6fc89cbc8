package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

// Memory keeps packages and items in-memory and guards access with a RWMutex.
type Memory struct {
	mu       sync.RWMutex
	packages map[string]domain.Package
	items    map[domain.Category][]domain.CatalogItem
}

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		packages: make(map[string]domain.Package),
		items:    make(map[domain.Category][]domain.CatalogItem),
	}
}

// SetPackage stores a copy of pkg.
func (m *Memory) SetPackage(pkg domain.Package) error {
	if pkg.ID == "" {
		return fmt.Errorf("package id is required")
	}
	if got := pkg.DefaultDistribution.Total(); got != pkg.TotalUnits {
		return fmt.Errorf("package %s: default distribution sums to %d, want %d", pkg.ID, got, pkg.TotalUnits)
	}

	m.mu.Lock()
	m.packages[pkg.ID] = pkg.Clone()
	m.mu.Unlock()
	return nil
}

// SetItems replaces the items of a category.
func (m *Memory) SetItems(category domain.Category, items []domain.CatalogItem) error {
	if !category.Valid() {
		return fmt.Errorf("%w: %d", domain.ErrUnknownCategory, int(category))
	}
	copied := cloneItems(items)
	for i := range copied {
		copied[i].Category = category
	}

	m.mu.Lock()
	m.items[category] = copied
	m.mu.Unlock()
	return nil
}

// Package returns a defensive copy of the package.
func (m *Memory) Package(ctx context.Context, id string) (domain.Package, error) {
	if err := ctx.Err(); err != nil {
		return domain.Package{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	pkg, ok := m.packages[id]
	if !ok {
		return domain.Package{}, fmt.Errorf("%w: %s", ErrPackageNotFound, id)
	}
	return pkg.Clone(), nil
}

// ListPackages returns every package sorted by id.
func (m *Memory) ListPackages(ctx context.Context) ([]domain.Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Package, 0, len(m.packages))
	for _, pkg := range m.packages {
		out = append(out, pkg.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ItemsByCategory returns a copy of all items of the category, active or not.
func (m *Memory) ItemsByCategory(ctx context.Context, category domain.Category, tier string) ([]domain.CatalogItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.items[category]
	out := make([]domain.CatalogItem, 0, len(items))
	for _, item := range items {
		if item.AvailableFor(tier) {
			out = append(out, cloneItem(item))
		}
	}
	return out, nil
}

func cloneItems(src []domain.CatalogItem) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(src))
	for i, item := range src {
		out[i] = cloneItem(item)
	}
	return out
}

func cloneItem(item domain.CatalogItem) domain.CatalogItem {
	item.Variants = append([]domain.CatalogVariant(nil), item.Variants...)
	item.Allergens = append([]string(nil), item.Allergens...)
	item.Tiers = append([]string(nil), item.Tiers...)
	return item
}
