package fields

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minAmount = 0.01
	maxAmount = 100000
)

const (
	currencyCodes = `EUR|USD|AED|CHF|AUD|GBP|JPY|SGD|HKD|CNY|INR|THB|MYR|KRW|TWD`
	numberPattern = `(\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)`
)

var symbolCurrency = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
	"¥": "JPY",
	"₹": "INR",
}

// amountRule is one entry of the ordered amount cascade. parse pulls the
// number and, when the pattern carries one, the currency out of a match.
type amountRule struct {
	name   string
	re     *regexp.Regexp
	weight float64
	min    float64
	parse  func(m []string) (num, currency string)
}

func codeFirst(m []string) (string, string)   { return m[2], strings.ToUpper(m[1]) }
func codeLast(m []string) (string, string)    { return m[1], strings.ToUpper(m[2]) }
func symbolFirst(m []string) (string, string) { return m[2], symbolCurrency[m[1]] }
func symbolLast(m []string) (string, string)  { return m[1], symbolCurrency[m[2]] }
func labelled(m []string) (string, string)    { return m[1], strings.ToUpper(m[2]) }
func bare(m []string) (string, string)        { return m[1], "" }

// amountRules is evaluated in order; the first rule yielding a value inside
// the sanity window wins.
var amountRules = []amountRule{
	{
		name:   "code_before",
		re:     regexp.MustCompile(`(?i)\b(` + currencyCodes + `)\b\s*:?\s*` + numberPattern),
		weight: 0.30,
		min:    minAmount,
		parse:  codeFirst,
	},
	{
		name:   "code_after",
		re:     regexp.MustCompile(`(?i)\b` + numberPattern + `\s*(` + currencyCodes + `)\b`),
		weight: 0.25,
		min:    minAmount,
		parse:  codeLast,
	},
	{
		name:   "symbol_before",
		re:     regexp.MustCompile(`([€$£¥₹])\s*` + numberPattern),
		weight: 0.20,
		min:    minAmount,
		parse:  symbolFirst,
	},
	{
		name:   "symbol_after",
		re:     regexp.MustCompile(`\b` + numberPattern + `\s*([€$£¥₹])`),
		weight: 0.15,
		min:    minAmount,
		parse:  symbolLast,
	},
	{
		name:   "label",
		re:     regexp.MustCompile(`(?i)\b(?:total|amount|price|prix|montant)\b[\s:]*` + numberPattern + `(?:\s*(` + currencyCodes + `)\b)?`),
		weight: 0.10,
		min:    minAmount,
		parse:  labelled,
	},
	{
		name:   "bare_decimal",
		re:     regexp.MustCompile(`\b(\d{1,4}[.,]\d{2})\b`),
		weight: 0.05,
		min:    1,
		parse:  bare,
	},
}

var reAnyCurrency = regexp.MustCompile(`(?i)\b(` + currencyCodes + `)\b|([€$£¥₹])`)

type amountMatch struct {
	Amount   float64
	Currency string
	Rule     string
	Weight   float64
}

func extractAmount(text string) (amountMatch, bool) {
	for _, r := range amountRules {
		for _, m := range r.re.FindAllStringSubmatch(text, -1) {
			num, cur := r.parse(m)
			v, ok := CleanAmount(num)
			if !ok || v < r.min {
				continue
			}
			if cur == "" {
				cur = detectCurrency(text)
			}
			return amountMatch{Amount: v, Currency: cur, Rule: r.name, Weight: r.weight}, true
		}
	}
	return amountMatch{}, false
}

// detectCurrency returns the first currency code or symbol mentioned anywhere.
func detectCurrency(text string) string {
	m := reAnyCurrency.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.ToUpper(m[1])
	}
	return symbolCurrency[m[2]]
}

var reNotNumeric = regexp.MustCompile(`[^\d.,]`)

// CleanAmount parses a money string written with either decimal convention.
// When both separators appear the rightmost one is the decimal point. A lone
// comma is decimal only when exactly two digits follow it. Values outside
// 0.01..100000 are rejected.
func CleanAmount(s string) (float64, bool) {
	cleaned := reNotNumeric.ReplaceAllString(strings.TrimSpace(s), "")
	if cleaned == "" {
		return 0, false
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ".") > strings.LastIndex(cleaned, ",") {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		}
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) == 2 {
			cleaned = parts[0] + "." + parts[1]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasDot:
		if strings.Count(cleaned, ".") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if v < minAmount || v > maxAmount {
		return v, false
	}
	return v, true
}
