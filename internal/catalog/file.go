package catalog

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

type fileCatalog struct {
	Packages []filePackage         `yaml:"packages"`
	Items    map[string][]fileItem `yaml:"items"`
}

type filePackage struct {
	ID                     string                        `yaml:"id"`
	Name                   string                        `yaml:"name"`
	Tier                   string                        `yaml:"tier"`
	BasePrice              float64                       `yaml:"basePrice"`
	TotalUnits             int                           `yaml:"totalUnits"`
	MinimumServings        int                           `yaml:"minimumServings"`
	DefaultDistribution    map[string]int                `yaml:"defaultDistribution"`
	PerUnitCost            map[string]float64            `yaml:"perUnitCost"`
	IncludedPacks          map[string]fileIncludedPack   `yaml:"includedPacks"`
	DefaultSelections      map[string][]domain.Selection `yaml:"defaultSelections"`
	DefaultSauces          []fileSauce                   `yaml:"defaultSauces"`
	AllowedAddOnCategories []string                      `yaml:"allowedAddOnCategories"`
}

type fileIncludedPack struct {
	Quantity       int     `yaml:"quantity"`
	UnitsPerPack   int     `yaml:"unitsPerPack"`
	ContainerPrice float64 `yaml:"containerPrice"`
}

type fileSauce struct {
	UnitType          string `yaml:"unitType"`
	VariantID         string `yaml:"variantId"`
	Count             int    `yaml:"count"`
	ApplicationMethod string `yaml:"applicationMethod"`
	Name              string `yaml:"name"`
	Classification    string `yaml:"classification"`
}

type fileItem struct {
	ID        string                  `yaml:"id"`
	Name      string                  `yaml:"name"`
	UnitPrice float64                 `yaml:"unitPrice"`
	Variants  []domain.CatalogVariant `yaml:"variants"`
	Servings  int                     `yaml:"servings"`
	Allergens []string                `yaml:"allergens"`
	Tiers     []string                `yaml:"tiers"`
	Active    *bool                   `yaml:"active"`
}

// LoadFile reads a YAML catalog into a new Memory catalog.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Memory, error) {
	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	mem := NewMemory()
	for _, fp := range doc.Packages {
		pkg, err := fp.toDomain()
		if err != nil {
			return nil, err
		}
		if err := mem.SetPackage(pkg); err != nil {
			return nil, err
		}
	}
	for key, items := range doc.Items {
		category, err := domain.ParseCategory(key)
		if err != nil {
			return nil, fmt.Errorf("catalog items: %w", err)
		}
		converted := make([]domain.CatalogItem, 0, len(items))
		for _, fi := range items {
			converted = append(converted, fi.toDomain(category))
		}
		if err := mem.SetItems(category, converted); err != nil {
			return nil, err
		}
	}
	return mem, nil
}

func (fp filePackage) toDomain() (domain.Package, error) {
	pkg := domain.Package{
		ID:                  fp.ID,
		Name:                fp.Name,
		Tier:                fp.Tier,
		BasePrice:           decimal.NewFromFloat(fp.BasePrice),
		TotalUnits:          fp.TotalUnits,
		MinimumServings:     fp.MinimumServings,
		DefaultDistribution: make(domain.Distribution, len(fp.DefaultDistribution)),
		PerUnitCost:         make(map[domain.UnitType]decimal.Decimal, len(fp.PerUnitCost)),
		IncludedPacks:       make(map[domain.Category]domain.IncludedPack, len(fp.IncludedPacks)),
		DefaultSelections:   make(map[domain.Category][]domain.Selection, len(fp.DefaultSelections)),
	}
	for unit, n := range fp.DefaultDistribution {
		pkg.DefaultDistribution[domain.UnitType(unit)] = n
	}
	for unit, cost := range fp.PerUnitCost {
		pkg.PerUnitCost[domain.UnitType(unit)] = decimal.NewFromFloat(cost)
	}
	for key, inc := range fp.IncludedPacks {
		category, err := domain.ParseCategory(key)
		if err != nil {
			return domain.Package{}, fmt.Errorf("package %s included packs: %w", fp.ID, err)
		}
		pkg.IncludedPacks[category] = domain.IncludedPack{
			Quantity:       inc.Quantity,
			UnitsPerPack:   inc.UnitsPerPack,
			ContainerPrice: decimal.NewFromFloat(inc.ContainerPrice),
		}
	}
	for key, selections := range fp.DefaultSelections {
		category, err := domain.ParseCategory(key)
		if err != nil {
			return domain.Package{}, fmt.Errorf("package %s default selections: %w", fp.ID, err)
		}
		pkg.DefaultSelections[category] = append([]domain.Selection(nil), selections...)
	}
	for _, s := range fp.DefaultSauces {
		pkg.DefaultSauces = append(pkg.DefaultSauces, domain.SauceAssignment{
			UnitType:          domain.UnitType(s.UnitType),
			VariantID:         s.VariantID,
			Count:             s.Count,
			ApplicationMethod: domain.ApplicationMethod(s.ApplicationMethod),
			VariantInfo:       domain.VariantInfo{Name: s.Name, Classification: s.Classification},
		})
	}
	for _, key := range fp.AllowedAddOnCategories {
		category, err := domain.ParseCategory(key)
		if err != nil {
			return domain.Package{}, fmt.Errorf("package %s add-on categories: %w", fp.ID, err)
		}
		pkg.AllowedAddOnCategories = append(pkg.AllowedAddOnCategories, category)
	}
	return pkg, nil
}

func (fi fileItem) toDomain(category domain.Category) domain.CatalogItem {
	active := true
	if fi.Active != nil {
		active = *fi.Active
	}
	return domain.CatalogItem{
		ID:        fi.ID,
		Name:      fi.Name,
		Category:  category,
		UnitPrice: decimal.NewFromFloat(fi.UnitPrice),
		Variants:  fi.Variants,
		Servings:  fi.Servings,
		Allergens: fi.Allergens,
		Tiers:     fi.Tiers,
		Active:    active,
	}
}
