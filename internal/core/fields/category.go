package fields

import (
	"regexp"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
)

const (
	categoryCap  = 0.3
	patternBonus = 0.1
)

type keyword struct {
	word string
	re   *regexp.Regexp
}

type categoryRule struct {
	category constants.Category
	keywords []keyword
	patterns []*regexp.Regexp
	weight   float64
}

func newCategoryRule(c constants.Category, weight float64, words []string, patterns ...string) categoryRule {
	r := categoryRule{category: c, weight: weight}
	for _, w := range words {
		r.keywords = append(r.keywords, keyword{word: w, re: regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `s?\b`)})
	}
	for _, p := range patterns {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	return r
}

// categoryRules is ordered; an equal score never displaces an earlier winner.
var categoryRules = []categoryRule{
	newCategoryRule(constants.Hotel, 0.30,
		[]string{"hotel", "accommodation", "lodging", "room", "night", "stay", "resort", "inn", "motel"},
		`hotel\s+\w+`, `room\s+\d+`, `\d+\s+night`),
	newCategoryRule(constants.Meal, 0.25,
		[]string{"restaurant", "meal", "food", "dining", "cafe", "bistro", "brasserie", "eatery"},
		`restaurant\s+\w+`, `table\s+\d+`, `menu`),
	newCategoryRule(constants.Breakfast, 0.30,
		[]string{"breakfast", "petit dejeuner", "morning", "coffee", "croissant"},
		`breakfast\s+menu`, `petit\s+dejeuner`),
	newCategoryRule(constants.Transport, 0.30,
		[]string{"taxi", "uber", "metro", "bus", "train", "transport", "ride", "fare"},
		`taxi\s+\w+`, `uber\s+trip`, `metro\s+ticket`),
	newCategoryRule(constants.Flight, 0.35,
		[]string{"flight", "airline", "airport", "boarding", "gate", "seat"},
		`flight\s+\w+`, `gate\s+\w+`, `seat\s+\w+`),
}

type categoryMatch struct {
	Category    constants.Category
	Subcategory string
	Score       float64
}

// Contribution is the capped confidence increment.
func (c categoryMatch) Contribution() float64 {
	return min(c.Score, categoryCap)
}

func (r categoryRule) score(folded string) (float64, string) {
	hits := 0
	first := ""
	for _, k := range r.keywords {
		if k.re.MatchString(folded) {
			if hits == 0 {
				first = k.word
			}
			hits++
		}
	}
	var s float64
	if hits > 0 {
		s = r.weight * float64(hits) / float64(len(r.keywords))
	}
	for _, p := range r.patterns {
		if p.MatchString(folded) {
			s += patternBonus
		}
	}
	return s, first
}

func classify(text string) categoryMatch {
	folded := fold(text)
	best := categoryMatch{Category: constants.Unknown}
	for _, r := range categoryRules {
		s, first := r.score(folded)
		if s > best.Score {
			best = categoryMatch{Category: r.category, Subcategory: first, Score: s}
		}
	}
	return best
}
