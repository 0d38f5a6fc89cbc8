package pricing

import (
	"github.com/shopspring/decimal"
)

// Kind classifies a price modifier.
type Kind string

const (
	KindUpcharge      Kind = "upcharge"
	KindDiscount      Kind = "discount"
	KindIncluded      Kind = "included"
	KindRemovalCredit Kind = "removal-credit"
	KindWarning       Kind = "warning"
)

// Modifier is a signed adjustment attached to one configuration change.
// Amounts are positive; the kind decides the direction.
type Modifier struct {
	ID       string            `json:"id"`
	TargetID string            `json:"targetId"`
	Kind     Kind              `json:"kind"`
	Amount   decimal.Decimal   `json:"amount"`
	Label    string            `json:"label"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Item is one priced line of the configuration.
type Item struct {
	Type      string          `json:"type"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Totals are rounded to cents.
type Totals struct {
	ItemsSubtotal decimal.Decimal `json:"itemsSubtotal"`
	Upcharges     decimal.Decimal `json:"upcharges"`
	Discounts     decimal.Decimal `json:"discounts"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	Total         decimal.Decimal `json:"total"`
	PerPersonCost decimal.Decimal `json:"perPersonCost"`
	GuestCount    int             `json:"guestCount"`
}

// Result is the disposable pricing of one configuration.
type Result struct {
	Items     map[string]Item `json:"items"`
	Modifiers []Modifier      `json:"modifiers"`
	Totals    Totals          `json:"totals"`
}

// Warnings returns the warning modifiers.
func (r Result) Warnings() []Modifier {
	var out []Modifier
	for _, m := range r.Modifiers {
		if m.Kind == KindWarning {
			out = append(out, m)
		}
	}
	return out
}
