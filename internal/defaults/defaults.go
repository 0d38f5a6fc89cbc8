// Package defaults derives the baseline wing split a configuration starts from
// when the customer only states high level percentages.
package defaults

import (
	"math"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

// DefaultBonelessShare is the boneless percentage of the traditional group.
const DefaultBonelessShare = 60.0

// Targets are the percentages a baseline is derived from.
type Targets struct {
	Traditional float64 `json:"traditional"`
	PlantBased  float64 `json:"plantBased"`
	// BonelessShare splits the traditional group; zero means DefaultBonelessShare.
	BonelessShare float64 `json:"bonelessShare,omitempty"`
}

// Derive splits totalUnits by targets and returns the locked baseline. A nil
// targets value means an all traditional split. The traditional group absorbs
// any rounding remainder so the distribution always sums to totalUnits.
func Derive(totalUnits int, targets *Targets) domain.Baseline {
	if totalUnits < 0 {
		totalUnits = 0
	}
	t := Targets{Traditional: 100}
	if targets != nil {
		t = *targets
	}

	plant := clamp(percentOf(totalUnits, t.PlantBased), 0, totalUnits)
	traditional := totalUnits - plant

	share := t.BonelessShare
	if share <= 0 {
		share = DefaultBonelessShare
	}
	boneless := clamp(percentOf(traditional, share), 0, traditional)
	boneIn := traditional - boneless

	dist := domain.Distribution{
		domain.UnitBoneless: boneless,
		domain.UnitBoneIn:   boneIn,
	}
	if plant > 0 {
		dist[domain.UnitCauliflower] = plant
	}

	return domain.Baseline{
		Locked:           true,
		Source:           domain.BaselineSourceSmartDefaults,
		TraditionalTotal: traditional,
		PlantBasedTotal:  plant,
		Distribution:     dist,
	}
}

// Split divides traditional units between boneless and bone-in keeping the
// ratio of the reference split. An empty reference uses DefaultBonelessShare.
func Split(traditional int, reference domain.Distribution) (boneless, boneIn int) {
	if traditional <= 0 {
		return 0, 0
	}
	refTotal := reference[domain.UnitBoneless] + reference[domain.UnitBoneIn]
	share := DefaultBonelessShare
	if refTotal > 0 {
		share = float64(reference[domain.UnitBoneless]) * 100 / float64(refTotal)
	}
	boneless = clamp(percentOf(traditional, share), 0, traditional)
	return boneless, traditional - boneless
}

func percentOf(total int, percent float64) int {
	if math.IsNaN(percent) || math.IsInf(percent, 0) || percent <= 0 {
		return 0
	}
	return int(math.Round(float64(total) * percent / 100))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
