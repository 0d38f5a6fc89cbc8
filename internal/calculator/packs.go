package calculator

import "github.com/eugenenazirov/catering-configurator/internal/domain"

// PacksOfSize rounds requested up to whole packs of size. A size below one is
// treated as one.
func PacksOfSize(requested, size int) Packs {
	if requested < 0 {
		requested = 0
	}
	if size < 1 {
		size = 1
	}
	needed := ceilDiv(requested, size)
	provided := needed * size
	return Packs{
		PacksNeeded:    needed,
		PackSize:       size,
		TotalRequested: requested,
		TotalProvided:  provided,
		Extras:         provided - requested,
	}
}

// CategoryPacks packages the selections of a pack category. A configured
// bundle rule wins; otherwise the pack size the package includes the category
// in is used, and items are sold individually when neither exists.
func CategoryPacks(calc Calculator, category domain.Category, requested int, included domain.IncludedPack) Packs {
	key, err := KeyForCategory(category)
	if err == nil {
		if _, ok := calc.Rules().packSize(key); ok {
			return calc.ComputePacks(requested, key)
		}
	}
	if included.UnitsPerPack > 0 {
		return PacksOfSize(requested, included.UnitsPerPack)
	}
	return PacksOfSize(requested, 1)
}

// SelectionPacks rounds one selection up to whole bundles when its id names a
// bundle rule other than the category's own, as chip bags do inside sides.
// Such selections are packed on their own and stay out of CategoryPacks.
func SelectionPacks(calc Calculator, category domain.Category, sel domain.Selection) (Packs, bool) {
	key := Key(sel.ID)
	if own, err := KeyForCategory(category); err == nil && own == key {
		return Packs{}, false
	}
	if _, ok := calc.Rules().packSize(key); !ok {
		return Packs{}, false
	}
	return calc.ComputePacks(sel.Count, key), true
}
