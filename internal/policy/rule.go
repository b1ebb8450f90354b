package policy

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// Rule is one spending limit: a ceiling for a rule type in a country, in a currency.
type Rule struct {
	Sheet    string             `json:"sheet_name"`
	Currency string             `json:"currency"`
	Country  string             `json:"country"`
	Type     constants.RuleType `json:"type"`
	Limit    float64            `json:"amount_limit"`
}

// Key is the index key, CUR_COUNTRY_TYPE.
func (r Rule) Key() string {
	return Key(r.Currency, r.Country, r.Type)
}

func Key(currency, country string, t constants.RuleType) string {
	return currency + "_" + country + "_" + string(t)
}

// Valid reports whether the rule can be used for a limit check.
func (r Rule) Valid() bool {
	return r.Currency != "" && r.Country != "" && r.Limit > 0
}

// Validate is the stricter check applied before rules are stored: ISO codes,
// a bounded sheet name and a positive limit. The error wraps
// common.ErrValidation and lists every failing field.
func (r Rule) Validate() error {
	return common.NewValidator().
		Field("sheet_name", r.Sheet, common.MaxLength(64)).
		Field("currency", r.Currency, common.Required, common.CurrencyCode).
		Field("country", r.Country, common.Required, common.CountryCode).
		Field("type", string(r.Type), common.Required).
		Field("amount_limit", r.Limit, common.PositiveAmount).
		Error()
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s (%s): limit %s [Source: %s]",
		r.Type, r.Country, r.Currency, strconv.FormatFloat(r.Limit, 'f', -1, 64), r.Sheet)
}

// signature identifies duplicates across sheets and sources.
func (r Rule) signature() string {
	return r.Key() + "_" + strconv.FormatFloat(r.Limit, 'f', -1, 64)
}

// Source answers limit lookups. Both the in-memory Index and the SQL rule store
// implement it.
type Source interface {
	Lookup(ctx context.Context, currency, country string, category constants.Category) ([]Rule, error)
}

var reNotNumeric = regexp.MustCompile(`[^\d.,]`)

// CleanNumber reads a limit cell. Anything but digits and separators is
// dropped, commas become dots and when several dots remain the last one is
// the decimal point. Unreadable cells are 0.
func CleanNumber(cell string) float64 {
	s := reNotNumeric.ReplaceAllString(strings.TrimSpace(cell), "")
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		i := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:i], ".", "") + s[i:]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
