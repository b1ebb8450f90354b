package policy

import (
	"context"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
)

const (
	maxPartial = 5
	maxResults = 10
)

// Index is an immutable in-memory rule lookup, safe for concurrent use.
type Index struct {
	rules []Rule
	byKey map[string][]Rule
}

func NewIndex(rules []Rule) *Index {
	idx := &Index{byKey: make(map[string][]Rule, len(rules))}
	for _, r := range rules {
		if !r.Valid() {
			continue
		}
		idx.rules = append(idx.rules, r)
		idx.byKey[r.Key()] = append(idx.byKey[r.Key()], r)
	}
	return idx
}

func (idx *Index) Len() int { return len(idx.rules) }

// Rules returns the indexed rules in load order.
func (idx *Index) Rules() []Rule {
	return append([]Rule(nil), idx.rules...)
}

// Lookup returns the exact rules for the category's rule type on its sheet
// first, then up to five rules sharing the currency or the country, at most
// ten in total. The breakfast sheet's Meal1 block answers meal queries too.
func (idx *Index) Lookup(_ context.Context, currency, country string, category constants.Category) ([]Rule, error) {
	return idx.lookup(currency, country, category), nil
}

func (idx *Index) lookup(currency, country string, category constants.Category) []Rule {
	currency, country = normalizeCode(currency), normalizeCode(country)
	t := constants.RuleTypeFor(category)
	sheet := constants.SheetFor(t)

	var out []Rule
	seen := map[string]bool{}
	add := func(r Rule) bool {
		sig := r.signature()
		if seen[sig] || len(out) >= maxResults {
			return false
		}
		seen[sig] = true
		out = append(out, r)
		return true
	}

	exact := idx.byKey[Key(currency, country, t)]
	for _, r := range exact {
		if r.Sheet == sheet {
			add(r)
		}
	}
	if t == constants.RuleMeal {
		for _, r := range exact {
			if r.Sheet == constants.SheetBreakfast {
				add(r)
			}
		}
	}

	partial := 0
	for _, r := range idx.rules {
		if partial >= maxPartial {
			break
		}
		if (currency != "" && r.Currency == currency) || (country != "" && r.Country == country) {
			if add(r) {
				partial++
			}
		}
	}
	return out
}

// Summary counts rules per sheet and lists covered currencies and countries.
type Summary struct {
	Sheets     map[string]int
	Currencies []string
	Countries  []string
}

func (idx *Index) Summary() Summary {
	s := Summary{Sheets: map[string]int{}}
	cur, cty := map[string]bool{}, map[string]bool{}
	for _, r := range idx.rules {
		s.Sheets[r.Sheet]++
		cur[r.Currency] = true
		cty[r.Country] = true
	}
	s.Currencies = sortedKeys(cur)
	s.Countries = sortedKeys(cty)
	return s
}
