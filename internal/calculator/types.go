package calculator

// Key selects a packaging rule: a sauce classification for loose containers or
// a bundle category for fixed-size packs.
type Key string

const (
	KeyDry    Key = "dry"
	KeyThin   Key = "thin"
	KeyThick  Key = "thick"
	KeyCreamy Key = "creamy"

	KeyDips  Key = "dips"
	KeyChips Key = "chips"
)

// Containers is the result of packaging a quantity of units.
// PackSize is 1 for loose containers and the bundle size for bundle keys.
type Containers struct {
	Count             int `json:"count"`
	PackSize          int `json:"packSize"`
	UnitsPerContainer int `json:"unitsPerContainer"`
	Requested         int `json:"requested"`
}

// Packs is the result of rounding a requested amount up to whole bundles.
// Extras is never negative and always smaller than PackSize.
type Packs struct {
	PacksNeeded    int `json:"packsNeeded"`
	PackSize       int `json:"packSize"`
	TotalRequested int `json:"totalRequested"`
	TotalProvided  int `json:"totalProvided"`
	Extras         int `json:"extras"`
}

// Calculator describes the behaviour required from a container calculator.
type Calculator interface {
	ComputeContainers(quantity int, key Key) Containers
	ComputePacks(requested int, key Key) Packs
	Rules() Rules
}
