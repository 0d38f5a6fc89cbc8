package pricing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/catering-configurator/internal/catalog"
	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T) (*Engine, domain.Package) {
	t.Helper()

	mem := catalog.Default()
	pkg, err := mem.Package(context.Background(), catalog.DefaultPackageID)
	if err != nil {
		t.Fatalf("Package returned error: %v", err)
	}
	return NewEngine(mem, WithLogger(zaptest.NewLogger(t))), pkg
}

func findModifier(t *testing.T, result Result, id string) Modifier {
	t.Helper()
	for _, m := range result.Modifiers {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("modifier %s not found in %+v", id, result.Modifiers)
	return Modifier{}
}

func assertAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", name, want, got)
	}
}

func TestRecalculateDefaultsHaveNoAdjustments(t *testing.T) {
	t.Parallel()

	engine, pkg := newTestEngine(t)
	cfg := domain.NewConfig(pkg)
	result := engine.Recalculate(context.Background(), pkg, cfg)

	for _, m := range result.Modifiers {
		if m.Kind != KindIncluded {
			t.Fatalf("unexpected modifier on defaults: %+v", m)
		}
	}
	assertAmount(t, "subtotal", result.Totals.Subtotal, "125")
	assertAmount(t, "tax", result.Totals.Tax, "10")
	assertAmount(t, "total", result.Totals.Total, "135")
	if result.Totals.GuestCount != pkg.MinimumServings {
		t.Fatalf("expected guest count to fall back to %d, got %d", pkg.MinimumServings, result.Totals.GuestCount)
	}
	assertAmount(t, "per person", result.Totals.PerPersonCost, "13.5")

	if item := result.Items["package:"+pkg.ID]; item.Quantity != 1 || !item.UnitPrice.Equal(pkg.BasePrice) {
		t.Fatalf("unexpected package item %+v", item)
	}
	if item := result.Items["dips:ranch"]; item.Quantity != 10 || !item.UnitPrice.Equal(dec("0.75")) {
		t.Fatalf("unexpected ranch item %+v", item)
	}
	if item := result.Items["wings:boneless"]; item.Quantity != 30 {
		t.Fatalf("unexpected boneless item %+v", item)
	}
}

func TestRecalculateTotalsScenario(t *testing.T) {
	t.Parallel()

	engine, pkg := newTestEngine(t)
	cfg := domain.NewConfig(pkg)
	cfg.Distribution = domain.Distribution{
		domain.UnitBoneless:    24,
		domain.UnitBoneIn:      30,
		domain.UnitCauliflower: 6,
	}
	cfg.Assignments[0].Count = 24
	cfg.GuestCount = 10

	result := engine.Recalculate(context.Background(), pkg, cfg)

	up := findModifier(t, result, "upcharge:wings:cauliflower")
	assertAmount(t, "cauliflower upcharge", up.Amount, "7.50")
	if up.Label != "6 cauliflower (+$7.50)" {
		t.Fatalf("unexpected label %q", up.Label)
	}

	totals := result.Totals
	assertAmount(t, "items subtotal", totals.ItemsSubtotal, "125.00")
	assertAmount(t, "upcharges", totals.Upcharges, "7.50")
	assertAmount(t, "discounts", totals.Discounts, "0")
	assertAmount(t, "subtotal", totals.Subtotal, "132.50")
	assertAmount(t, "tax", totals.Tax, "10.60")
	assertAmount(t, "total", totals.Total, "143.10")
	assertAmount(t, "per person", totals.PerPersonCost, "14.31")
	if len(result.Warnings()) != 0 {
		t.Fatalf("unexpected warnings %+v", result.Warnings())
	}
}

func TestRecalculateSkipCreditsIncludedValue(t *testing.T) {
	t.Parallel()

	engine, pkg := newTestEngine(t)
	cfg := domain.NewConfig(pkg)
	cfg.Packs[domain.CategoryDips] = domain.PackState{Skip: true}

	result := engine.Recalculate(context.Background(), pkg, cfg)

	credit := findModifier(t, result, "credit:dips:skip")
	if credit.Kind != KindRemovalCredit {
		t.Fatalf("expected removal credit, got %s", credit.Kind)
	}
	assertAmount(t, "skip credit", credit.Amount, "11.25")
	assertAmount(t, "discounts", result.Totals.Discounts, "11.25")
	assertAmount(t, "subtotal", result.Totals.Subtotal, "113.75")
	if _, ok := result.Items["dips:ranch"]; ok {
		t.Fatalf("skipped category must not be itemized")
	}
}

func TestRecalculatePackMath(t *testing.T) {
	t.Parallel()

	engine, pkg := newTestEngine(t)

	more := domain.NewConfig(pkg)
	more.Packs[domain.CategoryDips] = domain.PackState{Selections: []domain.Selection{
		{ID: "ranch", Count: 12},
		{ID: "blue-cheese", Count: 5},
	}}
	result := engine.Recalculate(context.Background(), pkg, more)
	up := findModifier(t, result, "upcharge:dips:packs")
	assertAmount(t, "extra pack", up.Amount, "3.75")
	if up.Metadata["packsNeeded"] != "4" || up.Metadata["extras"] != "3" {
		t.Fatalf("unexpected metadata %v", up.Metadata)
	}

	fewer := domain.NewConfig(pkg)
	fewer.Packs[domain.CategoryDips] = domain.PackState{Selections: []domain.Selection{{ID: "ranch", Count: 4}}}
	result = engine.Recalculate(context.Background(), pkg, fewer)
	credit := findModifier(t, result, "credit:dips:packs")
	assertAmount(t, "fewer packs", credit.Amount, "7.50")
}

func TestRecalculateRemovalCredits(t *testing.T) {
	t.Parallel()

	engine, pkg := newTestEngine(t)
	pkg.DefaultDistribution = domain.Distribution{
		domain.UnitBoneless:    25,
		domain.UnitBoneIn:      25,
		domain.UnitCauliflower: 10,
	}
	pkg.PerUnitCost[domain.UnitBoneIn] = dec("0.50")

	cfg := domain.NewConfig(pkg)
	cfg.Distribution = domain.Distribution{domain.UnitBoneless: 60}

	result := engine.Recalculate(context.Background(), pkg, cfg)
	// Included value is 25*0.50 + 10*1.25 = 25.00.
	assertAmount(t, "discounts", result.Totals.Discounts, "25")
	boneIn := findModifier(t, result, "credit:wings:bone_in")
	assertAmount(t, "bone-in credit", boneIn.Amount, "12.50")
	cauli := findModifier(t, result, "credit:wings:cauliflower")
	assertAmount(t, "cauliflower credit", cauli.Amount, "12.50")
}

func TestRecalculateWarnings(t *testing.T) {
	t.Parallel()

	engine, pkg := newTestEngine(t)
	cfg := domain.NewConfig(pkg)
	cfg.Distribution = domain.Distribution{domain.UnitBoneless: 20, domain.UnitBoneIn: 30}
	cfg.AddOns[domain.CategorySides] = []domain.AddOn{{ID: "fries", Count: 1}}

	result := engine.Recalculate(context.Background(), pkg, cfg)

	dist := findModifier(t, result, "warning:wings:distribution")
	if dist.Label != "Wing counts add up to 50 of 60" || !dist.Amount.IsZero() {
		t.Fatalf("unexpected distribution warning %+v", dist)
	}
	findModifier(t, result, "warning:sauces:boneless")
	findModifier(t, result, "warning:addon:sides:fries")
	if _, ok := result.Items["addon:sides:fries"]; ok {
		t.Fatalf("disallowed add-on must not be priced")
	}
	assertAmount(t, "subtotal", result.Totals.Subtotal, "125")
}

func TestRecalculateAddOnsAndCatalogMisses(t *testing.T) {
	t.Parallel()

	engine, pkg := newTestEngine(t)
	cfg := domain.NewConfig(pkg)
	cfg.GuestCount = -4
	cfg.AddOns[domain.CategoryDesserts] = []domain.AddOn{
		{ID: "brownie", Count: 4},
		{ID: "discontinued", Count: 2},
	}
	cfg.AddOns[domain.CategoryBeverages] = []domain.AddOn{
		{ID: "lemonade", Name: "Lemonade", Count: 1, UnitPrice: dec("9.00")},
	}
	cfg.Packs[domain.CategoryDips] = domain.PackState{Selections: []domain.Selection{
		{ID: "ranch", Count: 10},
		{ID: "chipotle-aioli", Count: 5},
	}}

	result := engine.Recalculate(context.Background(), pkg, cfg)

	brownie := findModifier(t, result, "upcharge:addon:desserts:brownie")
	assertAmount(t, "brownies", brownie.Amount, "9.00")
	lemonade := findModifier(t, result, "upcharge:addon:beverages:lemonade")
	assertAmount(t, "lemonade", lemonade.Amount, "8.00")
	if _, ok := result.Items["addon:desserts:discontinued"]; ok {
		t.Fatalf("unknown add-on must be excluded")
	}
	if _, ok := result.Items["dips:chipotle-aioli"]; ok {
		t.Fatalf("inactive item must be excluded")
	}
	for _, m := range result.Modifiers {
		if m.ID == "credit:dips:packs" {
			t.Fatalf("an unpriced selection still fills its pack, got %+v", m)
		}
	}
	if result.Totals.GuestCount != pkg.MinimumServings {
		t.Fatalf("expected fallback guest count, got %d", result.Totals.GuestCount)
	}
}

func TestRecalculateAddOnsIgnoreClientPrices(t *testing.T) {
	t.Parallel()

	mem := catalog.Default()
	if err := mem.SetItems(domain.CategoryDesserts, []domain.CatalogItem{
		{ID: "brownie", Name: "Fudge Brownie", UnitPrice: dec("2.25"), Active: true},
		{ID: "pie", Name: "Seasonal Pie", UnitPrice: dec("3.00"), Active: false},
	}); err != nil {
		t.Fatalf("SetItems returned error: %v", err)
	}
	pkg, err := mem.Package(context.Background(), catalog.DefaultPackageID)
	if err != nil {
		t.Fatalf("Package returned error: %v", err)
	}
	engine := NewEngine(mem, WithLogger(zaptest.NewLogger(t)), WithTaxRate(decimal.Zero))

	tests := []struct {
		name      string
		addOn     domain.AddOn
		wantPrice string
		wantItem  bool
	}{
		{"catalog price wins", domain.AddOn{ID: "brownie", Name: "Cheap", Count: 10, UnitPrice: dec("0.01")}, "22.50", true},
		{"unknown id with a price", domain.AddOn{ID: "discontinued", Name: "Old Cake", Count: 2, UnitPrice: dec("5.00")}, "0", false},
		{"inactive id with a price", domain.AddOn{ID: "pie", Name: "Seasonal Pie", Count: 2, UnitPrice: dec("3.00")}, "0", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := domain.NewConfig(pkg)
			cfg.AddOns[domain.CategoryDesserts] = []domain.AddOn{tc.addOn}

			result := engine.Recalculate(context.Background(), pkg, cfg)
			item, ok := result.Items["addon:desserts:"+tc.addOn.ID]
			if ok != tc.wantItem {
				t.Fatalf("expected item present=%v, got %+v", tc.wantItem, result.Items)
			}
			if ok && !item.UnitPrice.Equal(dec("2.25")) {
				t.Fatalf("expected catalog unit price, got %s", item.UnitPrice)
			}
			assertAmount(t, "upcharges", result.Totals.Upcharges, tc.wantPrice)
		})
	}
}

func TestRecalculateChipBagsAreBundled(t *testing.T) {
	t.Parallel()

	engine, pkg := newTestEngine(t)
	cfg := domain.NewConfig(pkg)
	cfg.Packs[domain.CategorySides] = domain.PackState{Selections: []domain.Selection{
		{ID: "veggie-tray", Count: 2},
		{ID: "chips", Count: 3},
	}}

	result := engine.Recalculate(context.Background(), pkg, cfg)

	if item := result.Items["sides:chips"]; item.Quantity != 10 || !item.UnitPrice.Equal(dec("1.20")) {
		t.Fatalf("expected a full bundle of 10 bags, got %+v", item)
	}
	chips := findModifier(t, result, "upcharge:sides:chips")
	assertAmount(t, "chips", chips.Amount, "12.00")
	if chips.Metadata["extras"] != "7" || chips.Metadata["packSize"] != "10" {
		t.Fatalf("expected bundle metadata, got %v", chips.Metadata)
	}
	for _, m := range result.Modifiers {
		if m.ID == "upcharge:sides:packs" || m.ID == "credit:sides:packs" {
			t.Fatalf("chip bags must not change the included side packs, got %+v", m)
		}
	}
	assertAmount(t, "upcharges", result.Totals.Upcharges, "12.00")
}

type failingCatalog struct{}

func (failingCatalog) ItemsByCategory(context.Context, domain.Category, string) ([]domain.CatalogItem, error) {
	return nil, catalog.ErrUnavailable
}

func TestRecalculateDegradesWhenCatalogFails(t *testing.T) {
	t.Parallel()

	_, pkg := newTestEngine(t)
	engine := NewEngine(failingCatalog{}, WithLogger(zaptest.NewLogger(t)), WithTaxRate(decimal.Zero))
	pkg.MinimumServings = 0

	result := engine.Recalculate(context.Background(), pkg, domain.NewConfig(pkg))
	assertAmount(t, "total", result.Totals.Total, "125")
	if result.Totals.GuestCount != 1 {
		t.Fatalf("expected guest count 1 when nothing is known, got %d", result.Totals.GuestCount)
	}
	if _, ok := result.Items["dips:ranch"]; ok {
		t.Fatalf("items must be excluded when the catalog is unavailable")
	}
}

func TestRecalculateSurvivesJSONRoundTrip(t *testing.T) {
	t.Parallel()

	engine, pkg := newTestEngine(t)
	cfg := domain.NewConfig(pkg)
	cfg.Distribution = domain.Distribution{domain.UnitBoneless: 27, domain.UnitBoneIn: 26, domain.UnitCauliflower: 7}
	cfg.GuestCount = 7
	cfg.Packs[domain.CategorySides] = domain.PackState{Skip: true}
	cfg.AddOns[domain.CategoryBeverages] = []domain.AddOn{{ID: "iced-tea", Count: 3}}

	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	var restored domain.CurrentConfig
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}

	first, err := json.Marshal(engine.Recalculate(context.Background(), pkg, cfg).Totals)
	if err != nil {
		t.Fatalf("marshal totals: %v", err)
	}
	second, err := json.Marshal(engine.Recalculate(context.Background(), pkg, restored).Totals)
	if err != nil {
		t.Fatalf("marshal totals: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("totals changed after round trip:\n%s\n%s", first, second)
	}
}
