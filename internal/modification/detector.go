// Package modification compares a configuration with the defaults of its
// package and reports, per category, what the customer changed.
package modification

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
	"github.com/eugenenazirov/catering-configurator/internal/money"
)

// Change is one count that differs from the package default. Type names the
// unit type, sauce assignment or item that changed.
type Change struct {
	Type  string `json:"type"`
	From  int    `json:"from"`
	To    int    `json:"to"`
	Delta int    `json:"delta"`
	IsNew bool   `json:"isNew"`
}

// Record summarizes the changes of one category.
type Record struct {
	IsModified bool            `json:"isModified"`
	Skipped    bool            `json:"skipped,omitempty"`
	Credit     decimal.Decimal `json:"credit"`
	Changes    []Change        `json:"changes"`
	Details    string          `json:"details"`
	Diff       string          `json:"diff,omitempty"`
}

const noChanges = "No changes"

// Detect compares cfg with the defaults of pkg. It has no side effects and
// returns a record for every category.
func Detect(pkg domain.Package, cfg domain.CurrentConfig) map[domain.Category]Record {
	out := make(map[domain.Category]Record, len(domain.Categories()))

	out[domain.CategoryWings] = compare(
		unitCounts(pkg.DefaultDistribution),
		unitCounts(cfg.Distribution),
	)
	out[domain.CategorySauces] = compare(
		sauceCounts(pkg.DefaultSauces),
		sauceCounts(cfg.Assignments),
	)

	for _, category := range domain.PackCategories() {
		pack := cfg.Pack(category)
		if pack.Skip {
			out[category] = skipped(pkg, category)
			continue
		}
		out[category] = compare(
			selectionCounts(pkg.DefaultSelections[category]),
			selectionCounts(pack.Selections),
		)
	}

	for category, addOns := range cfg.AddOns {
		if !category.Valid() || len(addOns) == 0 {
			continue
		}
		rec := out[category]
		if rec.Skipped {
			continue
		}
		out[category] = withAddOns(rec, addOns)
	}
	return out
}

func skipped(pkg domain.Package, category domain.Category) Record {
	credit := decimal.Zero
	if inc, ok := pkg.IncludedPacks[category]; ok {
		credit = inc.Value()
	}
	defaults := selectionCounts(pkg.DefaultSelections[category])
	return Record{
		IsModified: true,
		Skipped:    true,
		Credit:     credit,
		Details:    fmt.Sprintf("Skipped, credit %s", money.Format(credit)),
		Diff:       lineDiff(render(defaults), ""),
	}
}

func compare(defaults, current map[string]int) Record {
	rec := Record{Credit: decimal.Zero}
	for _, key := range unionKeys(defaults, current) {
		from, to := defaults[key], current[key]
		if from == to {
			continue
		}
		rec.Changes = append(rec.Changes, Change{
			Type:  key,
			From:  from,
			To:    to,
			Delta: to - from,
			IsNew: from == 0 && to > 0,
		})
	}
	if len(rec.Changes) == 0 {
		rec.Details = noChanges
		return rec
	}
	rec.IsModified = true
	rec.Details = describe(rec.Changes)
	rec.Diff = lineDiff(render(defaults), render(current))
	return rec
}

func withAddOns(rec Record, addOns []domain.AddOn) Record {
	var parts []string
	if rec.IsModified {
		parts = append(parts, rec.Details)
	}
	var added []string
	for _, a := range addOns {
		if a.Count <= 0 {
			continue
		}
		rec.Changes = append(rec.Changes, Change{
			Type:  a.ID,
			To:    a.Count,
			Delta: a.Count,
			IsNew: true,
		})
		parts = append(parts, fmt.Sprintf("added %s x%d (%s)", label(a), a.Count, money.Format(money.Times(a.UnitPrice, a.Count))))
		added = append(added, fmt.Sprintf("%s: %d\n", a.ID, a.Count))
	}
	if len(added) == 0 {
		return rec
	}
	rec.IsModified = true
	rec.Details = strings.Join(parts, "; ")
	rec.Diff += lineDiff("", strings.Join(added, ""))
	return rec
}

func label(a domain.AddOn) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

func describe(changes []Change) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.IsNew {
			parts = append(parts, fmt.Sprintf("%s: new %d", c.Type, c.To))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d -> %d (%+d)", c.Type, c.From, c.To, c.Delta))
	}
	return strings.Join(parts, "; ")
}

func unitCounts(d domain.Distribution) map[string]int {
	out := make(map[string]int, len(d))
	for u, n := range d {
		if n > 0 {
			out[string(u)] = n
		}
	}
	return out
}

// sauceCounts keys assignments by unit type, variant and application method.
func sauceCounts(assignments []domain.SauceAssignment) map[string]int {
	out := make(map[string]int, len(assignments))
	for _, a := range assignments {
		if a.Count <= 0 {
			continue
		}
		out[string(a.UnitType)+":"+a.VariantID+":"+string(a.ApplicationMethod)] += a.Count
	}
	return out
}

func selectionCounts(selections []domain.Selection) map[string]int {
	out := make(map[string]int, len(selections))
	for _, s := range selections {
		if s.Count > 0 {
			out[s.ID] += s.Count
		}
	}
	return out
}

func unionKeys(a, b map[string]int) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func render(counts map[string]int) string {
	keys := unionKeys(counts, nil)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %d\n", k, counts[k])
	}
	return sb.String()
}

// lineDiff renders a line oriented diff with "+ ", "- " and "  " prefixes.
func lineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line != "" {
				sb.WriteString(prefix + line)
			}
		}
	}
	return sb.String()
}
