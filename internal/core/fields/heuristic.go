package fields

import (
	"context"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
)

// Strategy turns recognized text into a TicketInfo. Implementations return a
// usable record even when they also report an error.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, text string) (TicketInfo, error)
}

// Heuristic is the pattern-matching strategy. It is pure and never fails.
type Heuristic struct{}

func (Heuristic) Name() string { return constants.MethodHeuristic }

func (Heuristic) Extract(_ context.Context, text string) (TicketInfo, error) {
	return ParseText(text), nil
}

// ParseText runs every sub-extractor over text. Each one contributes its
// field and a confidence increment independently of the others; the total is
// clamped to [0,1].
func ParseText(text string) TicketInfo {
	t := TicketInfo{
		Category:         constants.Unknown,
		ExtractionMethod: constants.MethodHeuristic,
		RawText:          TruncateRaw(text),
	}
	var conf float64

	if a, ok := extractAmount(text); ok {
		t.Amount = ptr(a.Amount)
		if a.Currency != "" {
			t.Currency = ptr(a.Currency)
		}
		conf += a.Weight
	} else if cur := detectCurrency(text); cur != "" {
		t.Currency = ptr(cur)
	}

	if d, ok := extractDate(text); ok {
		t.DateRaw = ptr(d.Raw)
		if d.Valid {
			t.Date = ptr(d.ISO)
		} else {
			t.Date = ptr(d.Raw)
		}
		conf += d.weight()
	}

	if loc, ok := extractLocation(text); ok {
		t.Location = ptr(loc.Location)
		t.CountryCode = ptr(loc.Country)
		if loc.City != "" {
			t.City = ptr(loc.City)
		}
		conf += locationWeight
	}

	if c := classify(text); c.Category != constants.Unknown {
		t.Category = c.Category
		if c.Subcategory != "" {
			t.Subcategory = ptr(c.Subcategory)
		}
		conf += c.Contribution()
	}

	if v, w, ok := extractVendor(text); ok {
		t.Vendor = ptr(v)
		conf += w
	}

	if rate, ok := extractVATRate(text); ok {
		t.VATRate = ptr(rate)
	}

	t.Confidence = clamp01(conf)
	return t
}
