package modification

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

func testPackage() domain.Package {
	return domain.Package{
		ID:         "p60",
		TotalUnits: 60,
		DefaultDistribution: domain.Distribution{
			domain.UnitBoneless: 30,
			domain.UnitBoneIn:   30,
		},
		IncludedPacks: map[domain.Category]domain.IncludedPack{
			domain.CategoryDips: {Quantity: 3, UnitsPerPack: 5, ContainerPrice: decimal.RequireFromString("0.75")},
		},
		DefaultSelections: map[domain.Category][]domain.Selection{
			domain.CategoryDips: {
				{ID: "ranch", Count: 10},
				{ID: "blue-cheese", Count: 5},
			},
		},
		DefaultSauces: []domain.SauceAssignment{
			{UnitType: domain.UnitBoneless, VariantID: "buffalo", Count: 30, ApplicationMethod: domain.MethodTossed},
		},
	}
}

func TestDetectWingDelta(t *testing.T) {
	t.Parallel()

	pkg := testPackage()
	cfg := domain.NewConfig(pkg)
	cfg.Distribution = domain.Distribution{domain.UnitBoneless: 40, domain.UnitBoneIn: 20}

	rec := Detect(pkg, cfg)[domain.CategoryWings]
	if !rec.IsModified {
		t.Fatalf("expected wings to be modified")
	}
	want := []Change{
		{Type: "bone_in", From: 30, To: 20, Delta: -10},
		{Type: "boneless", From: 30, To: 40, Delta: 10},
	}
	if !reflect.DeepEqual(rec.Changes, want) {
		t.Fatalf("expected %+v, got %+v", want, rec.Changes)
	}
	if rec.Details != "bone_in: 30 -> 20 (-10); boneless: 30 -> 40 (+10)" {
		t.Fatalf("unexpected details %q", rec.Details)
	}
	if !strings.Contains(rec.Diff, "- boneless: 30\n") || !strings.Contains(rec.Diff, "+ boneless: 40\n") {
		t.Fatalf("unexpected diff:\n%s", rec.Diff)
	}
}

func TestDetectNewUnitType(t *testing.T) {
	t.Parallel()

	pkg := testPackage()
	cfg := domain.NewConfig(pkg)
	cfg.Distribution = domain.Distribution{domain.UnitBoneless: 24, domain.UnitBoneIn: 30, domain.UnitCauliflower: 6}

	changes := Detect(pkg, cfg)[domain.CategoryWings].Changes
	var found bool
	for _, c := range changes {
		if c.Type == string(domain.UnitCauliflower) {
			found = true
			if !c.IsNew || c.Delta != 6 {
				t.Fatalf("expected cauliflower to be new with delta 6, got %+v", c)
			}
		} else if c.IsNew {
			t.Fatalf("only cauliflower is new, got %+v", c)
		}
	}
	if !found {
		t.Fatalf("cauliflower change missing: %+v", changes)
	}
}

func TestDetectUnmodifiedHasNoChangeList(t *testing.T) {
	t.Parallel()

	pkg := testPackage()
	records := Detect(pkg, domain.NewConfig(pkg))
	for _, category := range domain.Categories() {
		rec, ok := records[category]
		if !ok {
			t.Fatalf("missing record for %s", category)
		}
		if rec.IsModified || len(rec.Changes) != 0 || rec.Diff != "" {
			t.Fatalf("%s: expected no modification, got %+v", category, rec)
		}
		if rec.Details != noChanges {
			t.Fatalf("%s: unexpected details %q", category, rec.Details)
		}
	}
}

func TestDetectSkipShortCircuits(t *testing.T) {
	t.Parallel()

	pkg := testPackage()
	cfg := domain.NewConfig(pkg)
	cfg.Packs[domain.CategoryDips] = domain.PackState{Skip: true}
	cfg.AddOns[domain.CategoryDips] = []domain.AddOn{{ID: "honey-mustard", Count: 5}}

	rec := Detect(pkg, cfg)[domain.CategoryDips]
	if !rec.IsModified || !rec.Skipped {
		t.Fatalf("expected a skipped record, got %+v", rec)
	}
	if !rec.Credit.Equal(decimal.RequireFromString("11.25")) {
		t.Fatalf("expected credit 11.25, got %s", rec.Credit)
	}
	if len(rec.Changes) != 0 {
		t.Fatalf("skip must not carry a change list, got %+v", rec.Changes)
	}
	if rec.Details != "Skipped, credit $11.25" {
		t.Fatalf("unexpected details %q", rec.Details)
	}
	if !strings.Contains(rec.Diff, "- ranch: 10\n") {
		t.Fatalf("expected removed defaults in diff:\n%s", rec.Diff)
	}
}

func TestDetectSelectionsAndAddOns(t *testing.T) {
	t.Parallel()

	pkg := testPackage()
	cfg := domain.NewConfig(pkg)
	cfg.Packs[domain.CategoryDips] = domain.PackState{Selections: []domain.Selection{
		{ID: "ranch", Count: 15},
		{ID: "blue-cheese", Count: 5},
	}}
	cfg.AddOns[domain.CategoryDesserts] = []domain.AddOn{
		{ID: "brownie", Name: "Fudge Brownie", Count: 4, UnitPrice: decimal.RequireFromString("2.25")},
	}

	records := Detect(pkg, cfg)
	dips := records[domain.CategoryDips]
	if want := []Change{{Type: "ranch", From: 10, To: 15, Delta: 5}}; !reflect.DeepEqual(dips.Changes, want) {
		t.Fatalf("expected %+v, got %+v", want, dips.Changes)
	}

	desserts := records[domain.CategoryDesserts]
	if !desserts.IsModified {
		t.Fatalf("expected desserts to be modified by the add-on")
	}
	if want := []Change{{Type: "brownie", To: 4, Delta: 4, IsNew: true}}; !reflect.DeepEqual(desserts.Changes, want) {
		t.Fatalf("expected %+v, got %+v", want, desserts.Changes)
	}
	if desserts.Details != "added Fudge Brownie x4 ($9.00)" {
		t.Fatalf("unexpected details %q", desserts.Details)
	}
}

func TestDetectSauceMethodChange(t *testing.T) {
	t.Parallel()

	pkg := testPackage()
	cfg := domain.NewConfig(pkg)
	cfg.Assignments[0].ApplicationMethod = domain.MethodOnTheSide

	rec := Detect(pkg, cfg)[domain.CategorySauces]
	if !rec.IsModified || len(rec.Changes) != 2 {
		t.Fatalf("expected the method switch to be reported, got %+v", rec)
	}
}

func TestDetectIsPure(t *testing.T) {
	t.Parallel()

	pkg := testPackage()
	cfg := domain.NewConfig(pkg)
	cfg.Distribution = domain.Distribution{domain.UnitBoneless: 20, domain.UnitBoneIn: 30, domain.UnitCauliflower: 10}
	cfg.Packs[domain.CategorySides] = domain.PackState{Skip: true}
	cfg.AddOns[domain.CategoryBeverages] = []domain.AddOn{{ID: "lemonade", Count: 2, UnitPrice: decimal.NewFromInt(8)}}

	before := domain.NewConfig(pkg)
	before.Distribution = cfg.Distribution.Clone()

	first := Detect(pkg, cfg)
	second := Detect(pkg, cfg)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Detect is not deterministic:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(cfg.Distribution, before.Distribution) {
		t.Fatalf("Detect mutated its input")
	}
}
