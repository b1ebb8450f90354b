package fields

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	dateWeight          = 0.2
	ambiguousDateWeight = 0.1
	invalidDateWeight   = 0.05
)

// monthNames maps folded English and French month names and abbreviations.
var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January, "janvier": time.January, "janv": time.January,
	"february": time.February, "feb": time.February, "fevrier": time.February, "fevr": time.February, "fev": time.February,
	"march": time.March, "mar": time.March, "mars": time.March,
	"april": time.April, "apr": time.April, "avril": time.April, "avr": time.April,
	"may": time.May, "mai": time.May,
	"june": time.June, "jun": time.June, "juin": time.June,
	"july": time.July, "jul": time.July, "juillet": time.July, "juil": time.July,
	"august": time.August, "aug": time.August, "aout": time.August,
	"september": time.September, "sep": time.September, "sept": time.September, "septembre": time.September,
	"october": time.October, "oct": time.October, "octobre": time.October,
	"november": time.November, "nov": time.November, "novembre": time.November,
	"december": time.December, "dec": time.December, "decembre": time.December,
}

var monthAlternation = func() string {
	names := make([]string, 0, len(monthNames))
	for n := range monthNames {
		names = append(names, n)
	}
	// longest first so "septembre" wins over "sept"
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return strings.Join(names, "|")
}()

type dateMatch struct {
	ISO       string
	Raw       string
	Valid     bool
	Ambiguous bool
}

func (d dateMatch) weight() float64 {
	switch {
	case !d.Valid:
		return invalidDateWeight
	case d.Ambiguous:
		return ambiguousDateWeight
	default:
		return dateWeight
	}
}

// dateRule is one entry of the ordered date cascade. Rules run on folded
// (lowercase, accent-free) text.
type dateRule struct {
	name  string
	re    *regexp.Regexp
	parse func(m []string) dateMatch
}

var dateRules = []dateRule{
	{
		name:  "numeric_dmy",
		re:    regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})\b`),
		parse: func(m []string) dateMatch { return dayMonth(m[0], m[1], m[2], atoi(m[3])) },
	},
	{
		name: "numeric_ymd",
		re:   regexp.MustCompile(`\b(\d{4})[/.\-](\d{1,2})[/.\-](\d{1,2})\b`),
		parse: func(m []string) dateMatch {
			return calendar(m[0], atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]), false)
		},
	},
	{
		name: "day_month_name",
		re:   regexp.MustCompile(`\b(\d{1,2})(?:er|st|nd|rd|th)?\s+(` + monthAlternation + `)\.?\s+(\d{4})\b`),
		parse: func(m []string) dateMatch {
			return calendar(m[0], atoi(m[3]), monthNames[m[2]], atoi(m[1]), false)
		},
	},
	{
		name: "month_name_day",
		re:   regexp.MustCompile(`\b(` + monthAlternation + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`),
		parse: func(m []string) dateMatch {
			return calendar(m[0], atoi(m[3]), monthNames[m[1]], atoi(m[2]), false)
		},
	},
	{
		name:  "numeric_dmy_short",
		re:    regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2})\b`),
		parse: func(m []string) dateMatch { return dayMonth(m[0], m[1], m[2], 2000+atoi(m[3])) },
	},
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// dayMonth reads a numeric day/month pair. Day-first is the default; the
// pair is swapped only when the second number cannot be a month
// (first <= 12 < second). Pairs that fit both readings are flagged ambiguous.
func dayMonth(raw, a, b string, year int) dateMatch {
	first, second := atoi(a), atoi(b)
	day, month := first, second
	ambiguous := false
	switch {
	case first <= 12 && second > 12:
		day, month = second, first
	case first <= 12 && second <= 12 && first != second:
		ambiguous = true
	}
	return calendar(raw, year, time.Month(month), day, ambiguous)
}

func calendar(raw string, year int, month time.Month, day int, ambiguous bool) dateMatch {
	d := dateMatch{Raw: raw, Ambiguous: ambiguous}
	if year < 1900 || year > 2100 || month < 1 || month > 12 || day < 1 {
		return d
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return d
	}
	d.Valid = true
	d.ISO = fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
	return d
}

// extractDate matches on folded text; Raw is cut from text as written.
func extractDate(text string) (dateMatch, bool) {
	folded, idx := foldMap(text)
	for _, r := range dateRules {
		loc := r.re.FindStringSubmatchIndex(folded)
		if loc == nil {
			continue
		}
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = folded[loc[2*i]:loc[2*i+1]]
			}
		}
		d := r.parse(m)
		d.Raw = original(text, idx, loc[0], loc[1])
		return d, true
	}
	return dateMatch{}, false
}

// ParseDate runs the date cascade over text and returns the ISO date, or the
// matched text as written when it is not a real calendar date.
func ParseDate(text string) (date string, ambiguous, ok bool) {
	d, found := extractDate(text)
	if !found {
		return "", false, false
	}
	if !d.Valid {
		return d.Raw, d.Ambiguous, true
	}
	return d.ISO, d.Ambiguous, true
}
