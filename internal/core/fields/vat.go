package fields

import (
	"regexp"
	"strconv"
	"strings"
)

var reVAT = regexp.MustCompile(`(?i)\b(?:tva|vat|gst)\b[^\d\n]{0,10}?(\d{1,2}(?:[.,]\d{1,2})?)\s*%`)

// extractVATRate returns the first tax rate written as "TVA 10%" or "VAT: 20,0 %".
func extractVATRate(text string) (float64, bool) {
	m := reVAT.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || v <= 0 || v > 50 {
		return 0, false
	}
	return v, true
}
