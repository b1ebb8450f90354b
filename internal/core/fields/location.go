package fields

import (
	"regexp"
	"strings"
)

const locationWeight = 0.2

type place struct {
	name    string // folded search term
	display string
	country string
	re      *regexp.Regexp
}

func places(entries [][3]string) []place {
	out := make([]place, 0, len(entries))
	for _, e := range entries {
		out = append(out, place{
			name:    e[0],
			display: e[1],
			country: e[2],
			re:      regexp.MustCompile(`\b` + strings.ReplaceAll(regexp.QuoteMeta(e[0]), ` `, `\s+`) + `\b`),
		})
	}
	return out
}

// cities is checked first, in order.
var cities = places([][3]string{
	{"paris", "Paris", "FR"},
	{"lyon", "Lyon", "FR"},
	{"marseille", "Marseille", "FR"},
	{"london", "London", "GB"},
	{"berlin", "Berlin", "DE"},
	{"munich", "Munich", "DE"},
	{"frankfurt", "Frankfurt", "DE"},
	{"sydney", "Sydney", "AU"},
	{"melbourne", "Melbourne", "AU"},
	{"tokyo", "Tokyo", "JP"},
	{"osaka", "Osaka", "JP"},
	{"singapore", "Singapore", "SG"},
	{"hongkong", "Hong Kong", "HK"},
	{"hong kong", "Hong Kong", "HK"},
	{"dubai", "Dubai", "AE"},
	{"abu dhabi", "Abu Dhabi", "AE"},
	{"zurich", "Zurich", "CH"},
	{"geneva", "Geneva", "CH"},
	{"new york", "New York", "US"},
	{"chicago", "Chicago", "US"},
	{"los angeles", "Los Angeles", "US"},
	{"bangkok", "Bangkok", "TH"},
	{"kuala lumpur", "Kuala Lumpur", "MY"},
	{"seoul", "Seoul", "KR"},
	{"taipei", "Taipei", "TW"},
	{"mumbai", "Mumbai", "IN"},
	{"delhi", "Delhi", "IN"},
	{"beijing", "Beijing", "CN"},
	{"shanghai", "Shanghai", "CN"},
})

var countries = places([][3]string{
	{"france", "France", "FR"},
	{"germany", "Germany", "DE"},
	{"australia", "Australia", "AU"},
	{"japan", "Japan", "JP"},
	{"singapore", "Singapore", "SG"},
	{"uae", "UAE", "AE"},
	{"switzerland", "Switzerland", "CH"},
	{"usa", "USA", "US"},
	{"united states", "United States", "US"},
	{"united kingdom", "United Kingdom", "GB"},
	{"uk", "UK", "GB"},
	{"thailand", "Thailand", "TH"},
	{"malaysia", "Malaysia", "MY"},
	{"south korea", "South Korea", "KR"},
	{"korea", "Korea", "KR"},
	{"taiwan", "Taiwan", "TW"},
	{"india", "India", "IN"},
	{"china", "China", "CN"},
})

// countryCodes restricts the bare two-letter scan to regions the policy
// covers: every code the city and country tables can produce.
var countryCodes = map[string]bool{
	"FR": true, "DE": true, "AU": true, "JP": true, "SG": true,
	"AE": true, "CH": true, "US": true, "GB": true, "TH": true,
	"MY": true, "KR": true, "TW": true, "IN": true, "CN": true,
	"HK": true,
}

var reTwoLetter = regexp.MustCompile(`\b([A-Z]{2})\b`)

type locationMatch struct {
	Location string
	City     string
	Country  string
}

func extractLocation(text string) (locationMatch, bool) {
	folded := fold(text)
	for _, c := range cities {
		if c.re.MatchString(folded) {
			return locationMatch{Location: c.display, City: c.display, Country: c.country}, true
		}
	}
	for _, c := range countries {
		if c.re.MatchString(folded) {
			return locationMatch{Location: c.display, Country: c.country}, true
		}
	}
	for _, m := range reTwoLetter.FindAllStringSubmatch(text, -1) {
		if countryCodes[m[1]] {
			return locationMatch{Location: m[1], Country: m[1]}, true
		}
	}
	return locationMatch{}, false
}
