package fields

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

const (
	assistFillBonus  = 0.1
	assistAgreeBonus = 0.05
)

// AssistedFields is what a FieldAssistant proposes. Every field is optional.
type AssistedFields struct {
	Amount      *float64 `json:"amount"`
	Currency    *string  `json:"currency"`
	Date        *string  `json:"date"`
	Vendor      *string  `json:"vendor"`
	Category    *string  `json:"category"`
	CountryCode *string  `json:"country_code"`
	City        *string  `json:"city"`
}

// FieldAssistant asks an external model to read the fields from text.
type FieldAssistant interface {
	ExtractFields(ctx context.Context, text string) (AssistedFields, error)
}

// Assisted runs the heuristic pass, then overlays whatever the assistant
// returns that passes validation. Any assistant failure leaves the heuristic
// result in place and is returned alongside it.
type Assisted struct {
	assistant FieldAssistant
	logger    *slog.Logger
}

func NewAssisted(assistant FieldAssistant, logger *slog.Logger) *Assisted {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assisted{assistant: assistant, logger: logger}
}

func (a *Assisted) Name() string { return constants.MethodAssisted }

func (a *Assisted) Extract(ctx context.Context, text string) (TicketInfo, error) {
	base := ParseText(text)
	if a.assistant == nil {
		return base, common.NewAppError("ASSIST_UNAVAILABLE", "no field assistant configured", common.ErrUnavailable)
	}
	proposed, err := a.assistant.ExtractFields(ctx, text)
	if err != nil {
		return base, common.WrapError(err, "field assistant")
	}
	out, changed := overlay(base, proposed)
	a.logger.Debug("fields.assist.overlay", "changed", changed, "confidence", out.Confidence)
	return out, nil
}

// overlay copies validated assistant fields onto t. A field the heuristics
// missed adds assistFillBonus; one that agrees with them adds assistAgreeBonus.
func overlay(t TicketInfo, f AssistedFields) (TicketInfo, []string) {
	var changed []string
	bonus := 0.0
	track := func(name string, had, agrees bool) {
		switch {
		case !had:
			bonus += assistFillBonus
			changed = append(changed, name)
		case agrees:
			bonus += assistAgreeBonus
		default:
			changed = append(changed, name)
		}
	}

	if f.Amount != nil && *f.Amount >= minAmount && *f.Amount <= maxAmount {
		track("amount", t.Amount != nil, t.Amount != nil && *t.Amount == *f.Amount)
		t.Amount = ptr(*f.Amount)
	}
	if f.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*f.Currency))
		if common.CurrencyCode("currency", cur) == nil {
			track("currency", t.Currency != nil, t.Currency != nil && *t.Currency == cur)
			t.Currency = ptr(cur)
		}
	}
	if f.Date != nil {
		d := strings.TrimSpace(*f.Date)
		if _, err := time.Parse("2006-01-02", d); err == nil {
			track("date", t.Date != nil, t.Date != nil && *t.Date == d)
			t.Date = ptr(d)
		}
	}
	if f.Vendor != nil {
		v := strings.TrimSpace(*f.Vendor)
		if common.Required("vendor", v) == nil && common.MaxLength(100)("vendor", v) == nil {
			track("vendor", t.Vendor != nil, t.Vendor != nil && strings.EqualFold(*t.Vendor, v))
			t.Vendor = ptr(v)
		}
	}
	if f.Category != nil {
		if c, ok := constants.Canonicalize(*f.Category); ok {
			had := t.Category != constants.Unknown
			track("category", had, had && t.Category == c)
			if t.Category != c {
				t.Subcategory = nil
			}
			t.Category = c
		}
	}
	if f.CountryCode != nil {
		cc := strings.ToUpper(strings.TrimSpace(*f.CountryCode))
		if common.CountryCode("country_code", cc) == nil {
			track("country_code", t.CountryCode != nil, t.CountryCode != nil && *t.CountryCode == cc)
			t.CountryCode = ptr(cc)
			if t.Location == nil {
				t.Location = ptr(cc)
			}
		}
	}
	if f.City != nil {
		if city := strings.TrimSpace(*f.City); city != "" && t.City == nil {
			t.City = ptr(city)
			t.Location = ptr(city)
		}
	}

	if len(changed) > 0 || bonus > 0 {
		t.ExtractionMethod = constants.MethodAssisted
	}
	t.Confidence = clamp01(t.Confidence + bonus)
	return t, changed
}
