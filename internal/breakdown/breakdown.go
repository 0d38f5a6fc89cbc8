// Package breakdown assembles the kitchen view of a configuration: for each
// category, what the package ships by default and what the customer changed,
// translated into units, containers and packs.
package breakdown

import (
	"github.com/eugenenazirov/catering-configurator/internal/calculator"
	"github.com/eugenenazirov/catering-configurator/internal/domain"
	"github.com/eugenenazirov/catering-configurator/internal/modification"
)

// Line is one counted entry of a block.
type Line struct {
	Type       string                 `json:"type"`
	Name       string                 `json:"name,omitempty"`
	Count      int                    `json:"count"`
	Delta      int                    `json:"delta,omitempty"`
	Method     string                 `json:"method,omitempty"`
	Containers *calculator.Containers `json:"containers,omitempty"`
	Packs      *calculator.Packs      `json:"packs,omitempty"`
	AddOn      bool                   `json:"addOn,omitempty"`
}

// Block lists the lines of a category for one side of the comparison.
type Block struct {
	Lines []Line            `json:"lines"`
	Total int               `json:"total"`
	Packs *calculator.Packs `json:"packs,omitempty"`
}

// Category is the breakdown of one category. Changes is nil when the
// category is not customized.
type Category struct {
	Category domain.Category `json:"category"`
	Base     Block           `json:"base"`
	Changes  *Block          `json:"changes,omitempty"`
	Skipped  bool            `json:"skipped,omitempty"`
	Details  string          `json:"details,omitempty"`
}

// Assembler builds breakdowns with a packaging calculator.
type Assembler struct {
	calc calculator.Calculator
}

// New creates an Assembler. A nil calculator uses the built-in rules.
func New(calc calculator.Calculator) *Assembler {
	if calc == nil {
		calc = calculator.New()
	}
	return &Assembler{calc: calc}
}

// Build returns the breakdown of every category that has package contents or
// customer selections. Wing counts are based on the locked baseline.
func (a *Assembler) Build(pkg domain.Package, cfg domain.CurrentConfig, mods map[domain.Category]modification.Record) map[domain.Category]Category {
	out := make(map[domain.Category]Category)

	if wings, ok := a.wings(pkg, cfg, mods[domain.CategoryWings]); ok {
		out[domain.CategoryWings] = wings
	}
	if sauces, ok := a.sauces(pkg, cfg, mods[domain.CategorySauces]); ok {
		out[domain.CategorySauces] = sauces
	}
	for _, c := range domain.PackCategories() {
		if pack, ok := a.pack(pkg, cfg, c, mods[c]); ok {
			out[c] = pack
		}
	}
	return out
}

func (a *Assembler) wings(pkg domain.Package, cfg domain.CurrentConfig, rec modification.Record) (Category, bool) {
	base := pkg.DefaultDistribution
	if cfg.Baseline.Locked && len(cfg.Baseline.Distribution) > 0 {
		base = cfg.Baseline.Distribution
	}
	if base.Total() == 0 && cfg.Distribution.Total() == 0 {
		return Category{}, false
	}

	out := Category{
		Category: domain.CategoryWings,
		Base:     distributionBlock(base, nil),
		Details:  rec.Details,
	}
	if rec.IsModified || !sameCounts(base, cfg.Distribution) {
		changes := distributionBlock(cfg.Distribution, base)
		out.Changes = &changes
	}
	return out, true
}

func distributionBlock(d, base domain.Distribution) Block {
	var block Block
	keys := d.Keys()
	if base != nil {
		merged := d.Clone()
		for u := range base {
			if _, ok := merged[u]; !ok {
				merged[u] = 0
			}
		}
		keys = merged.Keys()
	}
	for _, u := range keys {
		n := d[u]
		line := Line{Type: string(u), Count: n}
		if base != nil {
			line.Delta = n - base[u]
			if n == 0 && line.Delta == 0 {
				continue
			}
		} else if n == 0 {
			continue
		}
		block.Lines = append(block.Lines, line)
		block.Total += n
	}
	return block
}

func sameCounts(a, b domain.Distribution) bool {
	for u, n := range a {
		if b[u] != n {
			return false
		}
	}
	for u, n := range b {
		if a[u] != n {
			return false
		}
	}
	return true
}

func (a *Assembler) sauces(pkg domain.Package, cfg domain.CurrentConfig, rec modification.Record) (Category, bool) {
	if len(pkg.DefaultSauces) == 0 && len(cfg.Assignments) == 0 {
		return Category{}, false
	}
	out := Category{
		Category: domain.CategorySauces,
		Base:     a.sauceBlock(pkg.DefaultSauces),
		Details:  rec.Details,
	}
	if rec.IsModified {
		changes := a.sauceBlock(cfg.Assignments)
		out.Changes = &changes
	}
	return out, true
}

func (a *Assembler) sauceBlock(assignments []domain.SauceAssignment) Block {
	var block Block
	for _, s := range assignments {
		if s.Count <= 0 {
			continue
		}
		line := Line{
			Type:   string(s.UnitType) + ":" + s.VariantID,
			Name:   s.VariantInfo.Name,
			Count:  s.Count,
			Method: string(s.ApplicationMethod),
		}
		if s.ApplicationMethod == domain.MethodOnTheSide {
			containers := a.calc.ComputeContainers(s.Count, calculator.ClassificationKey(s.VariantInfo.Classification))
			line.Containers = &containers
		}
		block.Lines = append(block.Lines, line)
		block.Total += s.Count
	}
	return block
}

func (a *Assembler) pack(pkg domain.Package, cfg domain.CurrentConfig, c domain.Category, rec modification.Record) (Category, bool) {
	defaults := pkg.DefaultSelections[c]
	state := cfg.Pack(c)
	addOns := cfg.AddOns[c]
	if len(defaults) == 0 && len(state.Selections) == 0 && len(addOns) == 0 && !state.Skip {
		return Category{}, false
	}

	inc := pkg.IncludedPacks[c]
	out := Category{
		Category: c,
		Base:     a.selectionBlock(c, defaults, nil, inc),
		Skipped:  state.Skip,
		Details:  rec.Details,
	}
	if state.Skip || !rec.IsModified {
		return out, true
	}
	changes := a.selectionBlock(c, state.Selections, addOns, inc)
	out.Changes = &changes
	return out, true
}

func (a *Assembler) selectionBlock(c domain.Category, selections []domain.Selection, addOns []domain.AddOn, inc domain.IncludedPack) Block {
	var block Block
	loose := 0
	for _, s := range selections {
		if s.Count <= 0 {
			continue
		}
		line := Line{Type: s.ID, Name: s.Name, Count: s.Count}
		if bundle, ok := calculator.SelectionPacks(a.calc, c, s); ok {
			line.Packs = &bundle
		} else {
			loose += s.Count
		}
		block.Lines = append(block.Lines, line)
		block.Total += s.Count
	}
	packs := calculator.CategoryPacks(a.calc, c, loose, inc)
	block.Packs = &packs

	for _, add := range addOns {
		if add.Count <= 0 {
			continue
		}
		block.Lines = append(block.Lines, Line{Type: add.ID, Name: add.Name, Count: add.Count, AddOn: true})
	}
	return block
}
