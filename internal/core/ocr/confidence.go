package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b\d{1,4}[/.\-]\d{1,2}[/.\-]\d{2,4}\b`)
	reCurr   = regexp.MustCompile(`\b(usd|eur|gbp|chf|aud|aed|jpy|sgd|inr|cny)\b|[$£€¥₹]`)
	reAmount = regexp.MustCompile(`\b\d{1,3}([.,]\d{3})*[.,]\d{2}\b`)
)

func hasDatePattern(s string) bool     { return reDate.MatchString(s) }
func hasCurrencyPattern(s string) bool { return reCurr.MatchString(s) }
func hasAmountPattern(s string) bool   { return reAmount.MatchString(s) }

// heuristicConfidence scores recognized text by the receipt artifacts it
// contains (date-ish, currency-ish, amount-ish).
func heuristicConfidence(txt string) float64 {
	txtL := strings.ToLower(txt)
	score := 0.2
	if hasDatePattern(txtL) {
		score += 0.2
	}
	if hasCurrencyPattern(txtL) {
		score += 0.15
	}
	if hasAmountPattern(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	return min(score, 1.0)
}

// blendConfidence weights the engine's mean confidence over the text heuristic.
func blendConfidence(ocrConf float64, txt string) float64 {
	heur := heuristicConfidence(txt)
	if ocrConf <= 0 {
		return heur
	}
	return min(0.7*ocrConf+0.3*heur, 1.0)
}
