package domain

import (
	"github.com/shopspring/decimal"
)

// ApplicationMethod describes how a sauce is served.
type ApplicationMethod string

const (
	MethodTossed    ApplicationMethod = "tossed"
	MethodOnTheSide ApplicationMethod = "on_the_side"
)

// VariantInfo carries catalog facts about a sauce needed for packaging.
type VariantInfo struct {
	Name           string `json:"name,omitempty"`
	Classification string `json:"classification,omitempty"`
}

// SauceAssignment applies one sauce variant to a number of units of a type.
type SauceAssignment struct {
	UnitType          UnitType          `json:"unitType"`
	VariantID         string            `json:"variantId"`
	Count             int               `json:"count"`
	ApplicationMethod ApplicationMethod `json:"applicationMethod"`
	VariantInfo       VariantInfo       `json:"variantInfo"`
}

// Selection is one chosen catalog item and how many of it.
type Selection struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Count int    `json:"count"`
}

// TotalCount sums the counts of a selection list.
func TotalCount(selections []Selection) int {
	total := 0
	for _, s := range selections {
		total += s.Count
	}
	return total
}

// PackState holds the customer's choices for a pack category.
type PackState struct {
	Selections []Selection `json:"selections"`
	Skip       bool        `json:"skip"`
}

// AddOn is an optional paid line outside the package contents. Name and
// UnitPrice are display copies; pricing always reads the catalog.
type AddOn struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Count     int             `json:"count"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Baseline is the split captured when the configuration was derived. It stays
// fixed while the customer edits sub-splits.
type Baseline struct {
	Locked           bool         `json:"locked"`
	Source           string       `json:"source"`
	TraditionalTotal int          `json:"traditionalTotal"`
	PlantBasedTotal  int          `json:"plantBasedTotal"`
	Distribution     Distribution `json:"distribution"`
}

const (
	BaselineSourcePackage       = "package"
	BaselineSourceSmartDefaults = "smart_defaults"
)

// CurrentConfig is the customer's working configuration of a package.
type CurrentConfig struct {
	PackageID    string                 `json:"packageId"`
	Distribution Distribution           `json:"distribution"`
	UnitStyle    string                 `json:"unitStyle,omitempty"`
	Assignments  []SauceAssignment      `json:"assignments"`
	Packs        map[Category]PackState `json:"packs"`
	AddOns       map[Category][]AddOn   `json:"addOns"`
	GuestCount   int                    `json:"guestCount"`
	Baseline     Baseline               `json:"baseline"`
}

// NewConfig builds a configuration holding the package defaults, with the
// package distribution locked as the baseline.
func NewConfig(pkg Package) CurrentConfig {
	dist := pkg.DefaultDistribution.Clone()
	cfg := CurrentConfig{
		PackageID:    pkg.ID,
		Distribution: dist,
		Assignments:  append([]SauceAssignment{}, pkg.DefaultSauces...),
		Packs:        make(map[Category]PackState, len(pkg.DefaultSelections)),
		AddOns:       map[Category][]AddOn{},
		Baseline: Baseline{
			Locked:           true,
			Source:           BaselineSourcePackage,
			TraditionalTotal: dist.Traditional(),
			PlantBasedTotal:  dist.PlantBased(),
			Distribution:     dist.Clone(),
		},
	}
	for _, c := range PackCategories() {
		cfg.Packs[c] = PackState{Selections: append([]Selection{}, pkg.DefaultSelections[c]...)}
	}
	return cfg
}

// Pack returns the state of a pack category, empty when never configured.
func (c CurrentConfig) Pack(category Category) PackState {
	if c.Packs == nil {
		return PackState{}
	}
	return c.Packs[category]
}

// CatalogVariant is a variant of a catalog item, such as a sauce flavor.
type CatalogVariant struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Classification string `json:"classification,omitempty" yaml:"classification"`
}

// CatalogItem is the read-only view of a catalog entry.
type CatalogItem struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Category  Category         `json:"category"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	Variants  []CatalogVariant `json:"variants,omitempty"`
	Servings  int              `json:"servings,omitempty"`
	Allergens []string         `json:"allergens,omitempty"`
	Tiers     []string         `json:"tiers,omitempty"`
	Active    bool             `json:"active"`
}

// AvailableFor reports whether the item is offered for the tier. Items without
// tier restrictions are offered everywhere.
func (i CatalogItem) AvailableFor(tier string) bool {
	if tier == "" || len(i.Tiers) == 0 {
		return true
	}
	for _, t := range i.Tiers {
		if t == tier {
			return true
		}
	}
	return false
}
