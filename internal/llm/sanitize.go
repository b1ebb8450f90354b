package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
)

var (
	reCurrency = regexp.MustCompile(`^[A-Z]{3}$`)
	reCountry  = regexp.MustCompile(`^[A-Z]{2}$`)
	reISODate  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// NormalizeTicketJSON
// - Renames known synonyms (total -> amount, merchant_name -> vendor, ...)
// - Coerces amount strings to numbers
// - Drops null/empty values and unknown keys
// - Upper-cases codes, lower-cases the category
func NormalizeTicketJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
		}
	}
	renamed("total", "amount")
	renamed("total_amount", "amount")
	renamed("merchant", "vendor")
	renamed("merchant_name", "vendor")
	renamed("establishment", "vendor")
	renamed("currency_code", "currency")
	renamed("tx_date", "date")
	renamed("country", "country_code")

	switch t := m["amount"].(type) {
	case nil:
		if _, ok := m["amount"]; ok {
			delete(m, "amount")
			dropped = append(dropped, "amount(null)")
		}
	case float64:
	case string:
		if v, ok := fields.CleanAmount(t); ok {
			m["amount"] = v
		} else {
			delete(m, "amount")
			dropped = append(dropped, "amount(unparsable)")
		}
	default:
		delete(m, "amount")
		dropped = append(dropped, "amount(type)")
	}

	allowed := map[string]struct{}{
		"amount": {}, "currency": {}, "date": {}, "vendor": {}, "category": {},
		"country_code": {}, "city": {}, "confidence": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	for _, k := range []string{"currency", "date", "vendor", "category", "country_code", "city"} {
		v, ok := m[k]
		if !ok {
			continue
		}
		s, isString := v.(string)
		s = strings.TrimSpace(s)
		if !isString || s == "" || strings.EqualFold(s, "null") {
			delete(m, k)
			dropped = append(dropped, k+"(empty)")
			continue
		}
		switch k {
		case "currency", "country_code":
			s = strings.ToUpper(s)
		case "category":
			s = strings.ToLower(s)
		}
		m[k] = s
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.fields.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// SanitizeOptionalFields removes the fields that fail their individual
// constraint so the rest of the document can still validate.
func SanitizeOptionalFields(doc []byte, categories []string) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	var dropped []string
	drop := func(k string) {
		delete(m, k)
		dropped = append(dropped, k)
	}
	checkString := func(k string, re *regexp.Regexp) {
		if v, ok := m[k]; ok {
			if s, isString := v.(string); !isString || !re.MatchString(s) {
				drop(k)
			}
		}
	}
	checkString("currency", reCurrency)
	checkString("country_code", reCountry)
	checkString("date", reISODate)

	if v, ok := m["amount"]; ok {
		if f, isNum := v.(float64); !isNum || f <= 0 || f > 100000 {
			drop("amount")
		}
	}
	if v, ok := m["confidence"]; ok {
		if f, isNum := v.(float64); !isNum || f < 0 || f > 1 {
			drop("confidence")
		}
	}
	if v, ok := m["vendor"]; ok {
		if s, isString := v.(string); !isString || len([]rune(s)) > 100 {
			drop("vendor")
		}
	}
	if v, ok := m["category"]; ok && len(categories) > 0 {
		s, _ := v.(string)
		found := false
		for _, c := range categories {
			if c == s {
				found = true
				break
			}
		}
		if !found {
			drop("category")
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}
