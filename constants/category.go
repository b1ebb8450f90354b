package constants

import (
	"strings"
)

// Category is the closed set of expense categories a ticket can be classified into.
type Category string

const (
	Hotel     Category = "hotel"
	Meal      Category = "meal"
	Breakfast Category = "breakfast"
	Transport Category = "transport"
	Flight    Category = "flight"
	Unknown   Category = "unknown"
)

var allCategories = []Category{
	Hotel,
	Meal,
	Breakfast,
	Transport,
	Flight,
	Unknown,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free text (an assistant label, a CLI flag) onto the whitelist.
// The bool is false when the input had to fall back to Unknown.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Unknown, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Category{
		"accommodation": Hotel,
		"lodging":       Hotel,
		"restaurant":    Meal,
		"food":          Meal,
		"dining":        Meal,
		"lunch":         Meal,
		"dinner":        Meal,
		"taxi":          Transport,
		"uber":          Transport,
		"train":         Transport,
		"airline":       Flight,
		"airfare":       Flight,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, cat != Unknown
		}
	}

	return Unknown, false
}

// RuleType is the TYPE column of the policy workbook.
type RuleType string

const (
	RuleHotel     RuleType = "Hotel1"
	RuleMeal      RuleType = "Meal1"
	RuleBreakfast RuleType = "Breakfast1"
)

// Policy workbook sheet names.
const (
	SheetMeal      = "Internal staff Meal"
	SheetHotel     = "Hotel"
	SheetBreakfast = "Breakfast & Lunch & Dinner"
)

// ExpectedSheets lists the sheets a complete policy workbook carries.
var ExpectedSheets = []string{SheetMeal, SheetHotel, SheetBreakfast}

// RuleTypeFor maps a ticket category to the policy rule type. Categories without
// a dedicated limit are checked against the meal limits.
func RuleTypeFor(c Category) RuleType {
	switch c {
	case Hotel:
		return RuleHotel
	case Breakfast:
		return RuleBreakfast
	default:
		return RuleMeal
	}
}

// SheetFor returns the workbook sheet holding limits for a rule type.
func SheetFor(t RuleType) string {
	switch t {
	case RuleHotel:
		return SheetHotel
	case RuleBreakfast:
		return SheetBreakfast
	default:
		return SheetMeal
	}
}
