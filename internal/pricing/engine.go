// Package pricing turns a configuration into an itemized price: one item per
// priced line, one modifier per deviation from what the package includes, and
// totals with tax and a per person cost.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eugenenazirov/catering-configurator/internal/calculator"
	"github.com/eugenenazirov/catering-configurator/internal/catalog"
	"github.com/eugenenazirov/catering-configurator/internal/domain"
	"github.com/eugenenazirov/catering-configurator/internal/money"
)

// DefaultTaxRate applies when no rate is configured.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTaxRate overrides DefaultTaxRate. Negative rates are ignored.
func WithTaxRate(rate decimal.Decimal) EngineOption {
	return func(e *Engine) {
		if !rate.IsNegative() {
			e.taxRate = rate
		}
	}
}

// WithCalculator replaces the packaging calculator.
func WithCalculator(calc calculator.Calculator) EngineOption {
	return func(e *Engine) {
		if calc != nil {
			e.calc = calc
		}
	}
}

// WithLogger attaches a logger for catalog misses.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine prices configurations against a catalog.
type Engine struct {
	catalog catalog.Catalog
	calc    calculator.Calculator
	taxRate decimal.Decimal
	logger  *zap.Logger
}

// NewEngine creates an Engine reading unit prices from cat.
func NewEngine(cat catalog.Catalog, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog: cat,
		calc:    calculator.New(),
		taxRate: DefaultTaxRate,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TaxRate returns the configured tax rate.
func (e *Engine) TaxRate() decimal.Decimal {
	return e.taxRate
}

// Recalculate prices cfg. Catalog failures never fail the computation: the
// affected lines are logged and left out.
func (e *Engine) Recalculate(ctx context.Context, pkg domain.Package, cfg domain.CurrentConfig) Result {
	b := &builder{
		engine: e,
		ctx:    ctx,
		pkg:    pkg,
		cfg:    cfg,
		result: Result{Items: make(map[string]Item)},
		lookup: make(map[domain.Category]map[string]domain.CatalogItem),
	}

	b.result.Items["package:"+pkg.ID] = Item{Type: "package", Quantity: 1, UnitPrice: pkg.BasePrice}
	b.wings()
	b.sauces()
	for _, category := range domain.PackCategories() {
		b.pack(category)
	}
	b.addOns()
	b.result.Totals = e.totals(pkg, cfg, b.result.Modifiers)
	return b.result
}

func (e *Engine) totals(pkg domain.Package, cfg domain.CurrentConfig, modifiers []Modifier) Totals {
	upcharges, discounts := decimal.Zero, decimal.Zero
	for _, m := range modifiers {
		switch m.Kind {
		case KindUpcharge:
			upcharges = upcharges.Add(m.Amount)
		case KindDiscount, KindRemovalCredit:
			discounts = discounts.Add(m.Amount)
		}
	}

	itemsSubtotal := pkg.BasePrice
	subtotal := itemsSubtotal.Add(upcharges).Sub(discounts)
	tax := subtotal.Mul(e.taxRate)
	total := subtotal.Add(tax)

	guests := cfg.GuestCount
	if guests <= 0 {
		guests = pkg.MinimumServings
	}
	if guests <= 0 {
		guests = 1
	}

	return Totals{
		ItemsSubtotal: money.Round(itemsSubtotal),
		Upcharges:     money.Round(upcharges),
		Discounts:     money.Round(discounts),
		Subtotal:      money.Round(subtotal),
		Tax:           money.Round(tax),
		TaxRate:       e.taxRate,
		Total:         money.Round(total),
		PerPersonCost: money.Round(total.Div(decimal.NewFromInt(int64(guests)))),
		GuestCount:    guests,
	}
}

type builder struct {
	engine *Engine
	ctx    context.Context
	pkg    domain.Package
	cfg    domain.CurrentConfig
	result Result
	lookup map[domain.Category]map[string]domain.CatalogItem
}

func (b *builder) add(m Modifier) {
	b.result.Modifiers = append(b.result.Modifiers, m)
}

func (b *builder) warn(id, target, label string) {
	b.add(Modifier{
		ID:       "warning:" + id,
		TargetID: target,
		Kind:     KindWarning,
		Amount:   decimal.Zero,
		Label:    label,
		Source:   "validation",
	})
}

// items returns the active catalog items of a category keyed by id. A failed
// read is logged once and yields an empty index.
func (b *builder) items(category domain.Category) map[string]domain.CatalogItem {
	if idx, ok := b.lookup[category]; ok {
		return idx
	}
	items, err := b.engine.catalog.ItemsByCategory(b.ctx, category, b.pkg.Tier)
	if err != nil {
		b.engine.logger.Warn("catalog unavailable, pricing without it",
			zap.String("category", category.String()),
			zap.String("packageId", b.pkg.ID),
			zap.Error(err),
		)
		items = nil
	}
	idx := catalog.Index(catalog.FilterActive(items, b.pkg.Tier))
	b.lookup[category] = idx
	return idx
}

func (b *builder) catalogItem(category domain.Category, id string) (domain.CatalogItem, bool) {
	item, ok := b.items(category)[id]
	if !ok {
		b.engine.logger.Warn("catalog item unavailable, excluded from pricing",
			zap.String("category", category.String()),
			zap.String("itemId", id),
		)
	}
	return item, ok
}

func (b *builder) wings() {
	current := b.cfg.Distribution
	defaults := b.pkg.DefaultDistribution

	for _, u := range current.Keys() {
		if n := current[u]; n > 0 {
			b.result.Items["wings:"+string(u)] = Item{Type: "wings", Quantity: n, UnitPrice: b.pkg.UnitCost(u)}
		}
	}

	units := unionUnits(defaults, current)
	creditCap := decimal.Zero
	for _, u := range units {
		creditCap = creditCap.Add(money.Times(b.pkg.UnitCost(u), defaults[u]))
	}

	credited := decimal.Zero
	for _, u := range units {
		cost := b.pkg.UnitCost(u)
		delta := current[u] - defaults[u]
		if delta == 0 || cost.IsZero() {
			continue
		}
		target := "wings:" + string(u)
		if delta > 0 {
			amount := money.Times(cost, delta)
			b.add(Modifier{
				ID:       "upcharge:" + target,
				TargetID: target,
				Kind:     KindUpcharge,
				Amount:   amount,
				Label:    fmt.Sprintf("%d %s (+%s)", delta, u, money.Format(amount)),
				Source:   domain.CategoryWings.String(),
				Metadata: map[string]string{"unitCost": cost.String(), "delta": strconv.Itoa(delta)},
			})
			continue
		}

		amount := money.Min(money.Times(cost, -delta), creditCap.Sub(credited))
		if !amount.IsPositive() {
			continue
		}
		credited = credited.Add(amount)
		b.add(Modifier{
			ID:       "credit:" + target,
			TargetID: target,
			Kind:     KindRemovalCredit,
			Amount:   amount,
			Label:    fmt.Sprintf("%d fewer %s (-%s)", -delta, u, money.Format(amount)),
			Source:   domain.CategoryWings.String(),
			Metadata: map[string]string{"unitCost": cost.String(), "delta": strconv.Itoa(delta)},
		})
	}

	if got := current.Total(); got != b.pkg.TotalUnits {
		b.warn("wings:distribution", "wings", fmt.Sprintf("Wing counts add up to %d of %d", got, b.pkg.TotalUnits))
	}
}

func (b *builder) sauces() {
	assigned := make(map[domain.UnitType]int)
	for _, a := range b.cfg.Assignments {
		if a.Count <= 0 {
			continue
		}
		assigned[a.UnitType] += a.Count

		item, ok := b.catalogItem(domain.CategorySauces, a.VariantID)
		if !ok {
			continue
		}
		target := "sauce:" + string(a.UnitType) + ":" + a.VariantID + ":" + string(a.ApplicationMethod)
		line := b.result.Items[target]
		line.Type = "sauce"
		line.Quantity += a.Count
		line.UnitPrice = item.UnitPrice
		b.result.Items[target] = line

		if item.UnitPrice.IsPositive() {
			amount := money.Times(item.UnitPrice, a.Count)
			b.add(Modifier{
				ID:       "upcharge:" + target,
				TargetID: target,
				Kind:     KindUpcharge,
				Amount:   amount,
				Label:    fmt.Sprintf("%s on %d %s (+%s)", item.Name, a.Count, a.UnitType, money.Format(amount)),
				Source:   domain.CategorySauces.String(),
			})
		}
	}

	units := make([]domain.UnitType, 0, len(assigned))
	for u := range assigned {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
	for _, u := range units {
		if have := b.cfg.Distribution[u]; assigned[u] > have {
			b.warn("sauces:"+string(u), "wings:"+string(u),
				fmt.Sprintf("Sauces cover %d %s but only %d are ordered", assigned[u], u, have))
		}
	}
}

func (b *builder) pack(category domain.Category) {
	state := b.cfg.Pack(category)
	inc, included := b.pkg.IncludedPacks[category]
	source := category.String()

	if state.Skip {
		if included && inc.Value().IsPositive() {
			amount := inc.Value()
			b.add(Modifier{
				ID:       "credit:" + source + ":skip",
				TargetID: source,
				Kind:     KindRemovalCredit,
				Amount:   amount,
				Label:    fmt.Sprintf("Skipped %s (-%s)", source, money.Format(amount)),
				Source:   source,
			})
		}
		return
	}

	requested := 0
	for _, sel := range state.Selections {
		if sel.Count <= 0 {
			continue
		}
		if bundle, ok := calculator.SelectionPacks(b.engine.calc, category, sel); ok {
			b.bundle(category, sel, bundle)
			continue
		}
		// Pack math follows the customer's choice even when the catalog
		// cannot price the line.
		requested += sel.Count
		item, ok := b.catalogItem(category, sel.ID)
		if !ok {
			continue
		}
		target := source + ":" + sel.ID
		line := b.result.Items[target]
		line.Type = source
		line.Quantity += sel.Count
		line.UnitPrice = item.UnitPrice
		b.result.Items[target] = line

		if !included && item.UnitPrice.IsPositive() {
			amount := money.Times(item.UnitPrice, sel.Count)
			b.add(Modifier{
				ID:       "upcharge:" + target,
				TargetID: target,
				Kind:     KindUpcharge,
				Amount:   amount,
				Label:    fmt.Sprintf("%d %s (+%s)", sel.Count, item.Name, money.Format(amount)),
				Source:   source,
			})
		}
	}
	if !included {
		return
	}

	packs := calculator.CategoryPacks(b.engine.calc, category, requested, inc)
	packPrice := money.Times(inc.ContainerPrice, packs.PackSize)
	meta := map[string]string{
		"packsNeeded":   strconv.Itoa(packs.PacksNeeded),
		"packsIncluded": strconv.Itoa(inc.Quantity),
		"packSize":      strconv.Itoa(packs.PackSize),
		"extras":        strconv.Itoa(packs.Extras),
	}

	if inc.Quantity > 0 {
		b.add(Modifier{
			ID:       "included:" + source,
			TargetID: source,
			Kind:     KindIncluded,
			Amount:   decimal.Zero,
			Label:    fmt.Sprintf("%d %s packs included", inc.Quantity, source),
			Source:   source,
			Metadata: meta,
		})
	}

	switch diff := packs.PacksNeeded - inc.Quantity; {
	case diff > 0:
		amount := money.Times(packPrice, diff)
		b.add(Modifier{
			ID:       "upcharge:" + source + ":packs",
			TargetID: source,
			Kind:     KindUpcharge,
			Amount:   amount,
			Label:    fmt.Sprintf("%d extra %s packs (+%s)", diff, source, money.Format(amount)),
			Source:   source,
			Metadata: meta,
		})
	case diff < 0:
		amount := money.Min(money.Times(packPrice, -diff), inc.Value())
		if !amount.IsPositive() {
			return
		}
		b.add(Modifier{
			ID:       "credit:" + source + ":packs",
			TargetID: source,
			Kind:     KindRemovalCredit,
			Amount:   amount,
			Label:    fmt.Sprintf("%d fewer %s packs (-%s)", -diff, source, money.Format(amount)),
			Source:   source,
			Metadata: meta,
		})
	}
}

// bundle prices a selection sold in fixed-size bundles. Every bag provided is
// charged, whether or not the package includes the category.
func (b *builder) bundle(category domain.Category, sel domain.Selection, packs calculator.Packs) {
	item, ok := b.catalogItem(category, sel.ID)
	if !ok {
		return
	}
	source := category.String()
	target := source + ":" + sel.ID
	line := b.result.Items[target]
	line.Type = source
	line.Quantity += packs.TotalProvided
	line.UnitPrice = item.UnitPrice
	b.result.Items[target] = line

	amount := money.Times(item.UnitPrice, packs.TotalProvided)
	if !amount.IsPositive() {
		return
	}
	b.add(Modifier{
		ID:       "upcharge:" + target,
		TargetID: target,
		Kind:     KindUpcharge,
		Amount:   amount,
		Label:    fmt.Sprintf("%d %s in %d packs of %d (+%s)", sel.Count, item.Name, packs.PacksNeeded, packs.PackSize, money.Format(amount)),
		Source:   source,
		Metadata: map[string]string{
			"packsNeeded": strconv.Itoa(packs.PacksNeeded),
			"packSize":    strconv.Itoa(packs.PackSize),
			"extras":      strconv.Itoa(packs.Extras),
		},
	})
}

func (b *builder) addOns() {
	for _, category := range domain.Categories() {
		for _, a := range b.cfg.AddOns[category] {
			if a.Count <= 0 {
				continue
			}
			target := "addon:" + category.String() + ":" + a.ID
			if !b.pkg.AllowsAddOn(category) {
				b.warn(target, target, fmt.Sprintf("%s add-ons are not available for this package", category))
				continue
			}

			// Prices and names come from the catalog only.
			item, ok := b.catalogItem(category, a.ID)
			if !ok {
				continue
			}
			unitPrice, name := item.UnitPrice, item.Name

			b.result.Items[target] = Item{Type: "add_on", Quantity: a.Count, UnitPrice: unitPrice}
			amount := money.Times(unitPrice, a.Count)
			if !amount.IsPositive() {
				continue
			}
			b.add(Modifier{
				ID:       "upcharge:" + target,
				TargetID: target,
				Kind:     KindUpcharge,
				Amount:   amount,
				Label:    fmt.Sprintf("%d %s (+%s)", a.Count, name, money.Format(amount)),
				Source:   "add_on",
			})
		}
	}
}

func unionUnits(a, b domain.Distribution) []domain.UnitType {
	merged := a.Clone()
	for u, n := range b {
		merged[u] += n
	}
	return merged.Keys()
}
