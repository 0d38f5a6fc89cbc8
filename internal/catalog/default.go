package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

// DefaultPackageID is the package served by the built-in catalog when no
// catalog file or URL is configured.
const DefaultPackageID = "game-day-60"

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Default returns a catalog seeded with the built-in packages and items.
func Default() *Memory {
	mem := NewMemory()
	for _, pkg := range defaultPackages() {
		if err := mem.SetPackage(pkg); err != nil {
			panic(err)
		}
	}
	for category, items := range defaultItems() {
		if err := mem.SetItems(category, items); err != nil {
			panic(err)
		}
	}
	return mem
}

func defaultPackages() []domain.Package {
	return []domain.Package{
		{
			ID:              DefaultPackageID,
			Name:            "Game Day 60",
			Tier:            "standard",
			BasePrice:       price("125.00"),
			TotalUnits:      60,
			MinimumServings: 10,
			DefaultDistribution: domain.Distribution{
				domain.UnitBoneless: 30,
				domain.UnitBoneIn:   30,
			},
			PerUnitCost: map[domain.UnitType]decimal.Decimal{
				domain.UnitCauliflower: price("1.25"),
			},
			IncludedPacks: map[domain.Category]domain.IncludedPack{
				domain.CategoryDips:  {Quantity: 3, UnitsPerPack: 5, ContainerPrice: price("0.75")},
				domain.CategorySides: {Quantity: 2, UnitsPerPack: 1, ContainerPrice: price("4.00")},
			},
			DefaultSelections: map[domain.Category][]domain.Selection{
				domain.CategoryDips: {
					{ID: "ranch", Name: "Ranch", Count: 10},
					{ID: "blue-cheese", Name: "Blue Cheese", Count: 5},
				},
				domain.CategorySides: {
					{ID: "veggie-tray", Name: "Celery & Carrots", Count: 2},
				},
			},
			DefaultSauces: []domain.SauceAssignment{
				sauce(domain.UnitBoneless, "buffalo", "Buffalo", "thin", 30, domain.MethodTossed),
				sauce(domain.UnitBoneIn, "garlic-parm", "Garlic Parmesan", "creamy", 30, domain.MethodOnTheSide),
			},
			AllowedAddOnCategories: []domain.Category{domain.CategoryDesserts, domain.CategoryBeverages},
		},
		{
			ID:              "tailgate-100",
			Name:            "Tailgate 100",
			Tier:            "premium",
			BasePrice:       price("199.00"),
			TotalUnits:      100,
			MinimumServings: 16,
			DefaultDistribution: domain.Distribution{
				domain.UnitBoneless:    50,
				domain.UnitBoneIn:      40,
				domain.UnitCauliflower: 10,
			},
			PerUnitCost: map[domain.UnitType]decimal.Decimal{
				domain.UnitCauliflower: price("1.25"),
			},
			IncludedPacks: map[domain.Category]domain.IncludedPack{
				domain.CategoryDips:     {Quantity: 5, UnitsPerPack: 5, ContainerPrice: price("0.75")},
				domain.CategorySides:    {Quantity: 3, UnitsPerPack: 1, ContainerPrice: price("4.00")},
				domain.CategoryDesserts: {Quantity: 1, UnitsPerPack: 12, ContainerPrice: price("1.50")},
			},
			DefaultSelections: map[domain.Category][]domain.Selection{
				domain.CategoryDips: {
					{ID: "ranch", Name: "Ranch", Count: 15},
					{ID: "blue-cheese", Name: "Blue Cheese", Count: 10},
				},
				domain.CategorySides: {
					{ID: "veggie-tray", Name: "Celery & Carrots", Count: 2},
					{ID: "fries", Name: "Seasoned Fries", Count: 1},
				},
				domain.CategoryDesserts: {
					{ID: "cookie", Name: "Chocolate Chip Cookie", Count: 12},
				},
			},
			DefaultSauces: []domain.SauceAssignment{
				sauce(domain.UnitBoneless, "bbq", "Smoky BBQ", "thick", 50, domain.MethodTossed),
				sauce(domain.UnitBoneIn, "lemon-pepper", "Lemon Pepper", "dry", 40, domain.MethodTossed),
				sauce(domain.UnitCauliflower, "buffalo", "Buffalo", "thin", 10, domain.MethodOnTheSide),
			},
			AllowedAddOnCategories: []domain.Category{domain.CategorySides, domain.CategoryDesserts, domain.CategoryBeverages},
		},
	}
}

func defaultItems() map[domain.Category][]domain.CatalogItem {
	return map[domain.Category][]domain.CatalogItem{
		domain.CategorySauces: {
			sauceItem("buffalo", "Buffalo", "thin", decimal.Zero),
			sauceItem("bbq", "Smoky BBQ", "thick", decimal.Zero),
			sauceItem("garlic-parm", "Garlic Parmesan", "creamy", decimal.Zero),
			sauceItem("lemon-pepper", "Lemon Pepper", "dry", decimal.Zero),
			sauceItem("ghost-pepper", "Ghost Pepper", "thin", price("0.10"), "premium"),
		},
		domain.CategoryDips: {
			{ID: "ranch", Name: "Ranch", UnitPrice: price("0.75"), Active: true, Allergens: []string{"dairy", "egg"}},
			{ID: "blue-cheese", Name: "Blue Cheese", UnitPrice: price("0.75"), Active: true, Allergens: []string{"dairy"}},
			{ID: "honey-mustard", Name: "Honey Mustard", UnitPrice: price("0.75"), Active: true},
			{ID: "chipotle-aioli", Name: "Chipotle Aioli", UnitPrice: price("0.85"), Active: false, Allergens: []string{"egg"}},
		},
		domain.CategorySides: {
			{ID: "veggie-tray", Name: "Celery & Carrots", UnitPrice: price("4.00"), Servings: 10, Active: true},
			{ID: "fries", Name: "Seasoned Fries", UnitPrice: price("6.50"), Servings: 8, Active: true},
			{ID: "chips", Name: "Kettle Chips", UnitPrice: price("1.20"), Servings: 1, Active: true},
		},
		domain.CategoryDesserts: {
			{ID: "cookie", Name: "Chocolate Chip Cookie", UnitPrice: price("1.50"), Servings: 1, Active: true, Allergens: []string{"gluten", "dairy"}},
			{ID: "brownie", Name: "Fudge Brownie", UnitPrice: price("2.25"), Servings: 1, Active: true, Allergens: []string{"gluten", "dairy", "egg"}},
		},
		domain.CategoryBeverages: {
			{ID: "lemonade", Name: "Lemonade (gallon)", UnitPrice: price("8.00"), Servings: 10, Active: true},
			{ID: "iced-tea", Name: "Sweet Tea (gallon)", UnitPrice: price("7.50"), Servings: 10, Active: true},
			{ID: "water-case", Name: "Bottled Water (24)", UnitPrice: price("6.00"), Servings: 24, Active: true},
		},
	}
}

func sauce(unit domain.UnitType, id, name, classification string, count int, method domain.ApplicationMethod) domain.SauceAssignment {
	return domain.SauceAssignment{
		UnitType:          unit,
		VariantID:         id,
		Count:             count,
		ApplicationMethod: method,
		VariantInfo:       domain.VariantInfo{Name: name, Classification: classification},
	}
}

func sauceItem(id, name, classification string, unitPrice decimal.Decimal, tiers ...string) domain.CatalogItem {
	return domain.CatalogItem{
		ID:        id,
		Name:      name,
		UnitPrice: unitPrice,
		Variants:  []domain.CatalogVariant{{ID: id, Name: name, Classification: classification}},
		Tiers:     tiers,
		Active:    true,
	}
}
