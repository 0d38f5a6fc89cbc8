package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// UnitType identifies a kind of wing counted in a distribution.
type UnitType string

const (
	UnitBoneless    UnitType = "boneless"
	UnitBoneIn      UnitType = "bone_in"
	UnitCauliflower UnitType = "cauliflower"
)

var plantBasedUnits = map[UnitType]bool{
	UnitCauliflower: true,
}

// PlantBased reports whether the unit type belongs to the plant-based group.
func (u UnitType) PlantBased() bool {
	return plantBasedUnits[u]
}

// Distribution maps unit types to counts.
type Distribution map[UnitType]int

// Total sums all counts.
func (d Distribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// Traditional sums the counts of non plant-based unit types.
func (d Distribution) Traditional() int {
	total := 0
	for u, n := range d {
		if !u.PlantBased() {
			total += n
		}
	}
	return total
}

// PlantBased sums the counts of plant-based unit types.
func (d Distribution) PlantBased() int {
	return d.Total() - d.Traditional()
}

// Clone returns a copy that shares no memory with d.
func (d Distribution) Clone() Distribution {
	out := make(Distribution, len(d))
	for u, n := range d {
		out[u] = n
	}
	return out
}

// Keys returns the unit types in lexical order.
func (d Distribution) Keys() []UnitType {
	keys := make([]UnitType, 0, len(d))
	for u := range d {
		keys = append(keys, u)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// IncludedPack describes the bundles of a category that the base price covers.
type IncludedPack struct {
	Quantity       int             `json:"quantity"`
	UnitsPerPack   int             `json:"unitsPerPack"`
	ContainerPrice decimal.Decimal `json:"containerPrice"`
}

// Containers is the number of containers covered by the package.
func (p IncludedPack) Containers() int {
	return p.Quantity * p.UnitsPerPack
}

// Value is the price of everything the package includes for the category.
func (p IncludedPack) Value() decimal.Decimal {
	return p.ContainerPrice.Mul(decimal.NewFromInt(int64(p.Containers())))
}

// Package is the immutable base offering a session customizes.
type Package struct {
	ID                     string                       `json:"id"`
	Name                   string                       `json:"name"`
	Tier                   string                       `json:"tier"`
	BasePrice              decimal.Decimal              `json:"basePrice"`
	TotalUnits             int                          `json:"totalUnits"`
	MinimumServings        int                          `json:"minimumServings"`
	DefaultDistribution    Distribution                 `json:"defaultDistribution"`
	PerUnitCost            map[UnitType]decimal.Decimal `json:"perUnitCost"`
	IncludedPacks          map[Category]IncludedPack    `json:"includedPacks"`
	DefaultSelections      map[Category][]Selection     `json:"defaultSelections"`
	DefaultSauces          []SauceAssignment            `json:"defaultSauces"`
	AllowedAddOnCategories []Category                   `json:"allowedAddOnCategories"`
}

// UnitCost returns the per-unit cost for a unit type, zero when not priced.
func (p Package) UnitCost(u UnitType) decimal.Decimal {
	if cost, ok := p.PerUnitCost[u]; ok {
		return cost
	}
	return decimal.Zero
}

// AllowsAddOn reports whether add-ons may be attached to the category.
func (p Package) AllowsAddOn(c Category) bool {
	for _, allowed := range p.AllowedAddOnCategories {
		if allowed == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the package.
func (p Package) Clone() Package {
	out := p
	out.DefaultDistribution = p.DefaultDistribution.Clone()
	out.PerUnitCost = make(map[UnitType]decimal.Decimal, len(p.PerUnitCost))
	for u, c := range p.PerUnitCost {
		out.PerUnitCost[u] = c
	}
	out.IncludedPacks = make(map[Category]IncludedPack, len(p.IncludedPacks))
	for c, inc := range p.IncludedPacks {
		out.IncludedPacks[c] = inc
	}
	out.DefaultSelections = make(map[Category][]Selection, len(p.DefaultSelections))
	for c, sel := range p.DefaultSelections {
		out.DefaultSelections[c] = append([]Selection(nil), sel...)
	}
	out.DefaultSauces = append([]SauceAssignment(nil), p.DefaultSauces...)
	out.AllowedAddOnCategories = append([]Category(nil), p.AllowedAddOnCategories...)
	return out
}
