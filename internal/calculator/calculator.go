package calculator

type ruleCalculator struct {
	rules Rules
}

// New creates a Calculator using the built-in packaging tables.
func New() Calculator {
	return &ruleCalculator{rules: DefaultRules()}
}

// NewWithRules creates a Calculator from custom tables.
func NewWithRules(rules Rules) (Calculator, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &ruleCalculator{rules: rules}, nil
}

// ComputeContainers returns how many containers hold quantity units. Bundle
// keys package by pack size; every other key uses the classification ratio.
func (c *ruleCalculator) ComputeContainers(quantity int, key Key) Containers {
	if quantity < 0 {
		quantity = 0
	}
	if size, ok := c.rules.packSize(key); ok {
		return Containers{
			Count:             ceilDiv(quantity, size),
			PackSize:          size,
			UnitsPerContainer: size,
			Requested:         quantity,
		}
	}

	units := c.rules.unitsPerContainer(key)
	return Containers{
		Count:             ceilDiv(quantity, units),
		PackSize:          1,
		UnitsPerContainer: units,
		Requested:         quantity,
	}
}

// ComputePacks rounds requested up to whole packs and reports the overage.
// Keys without a bundle size are sold individually.
func (c *ruleCalculator) ComputePacks(requested int, key Key) Packs {
	if requested < 0 {
		requested = 0
	}
	size, ok := c.rules.packSize(key)
	if !ok {
		size = 1
	}

	return PacksOfSize(requested, size)
}

func (c *ruleCalculator) Rules() Rules {
	return c.rules.WithOverrides(nil, nil)
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
