package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

func strp(s string) *string   { return &s }
func f64p(v float64) *float64 { return &v }

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Verdict
	}{
		{"plain pass", "PASS: within the limit", VerdictPass},
		{"markdown", "**FAIL** - exceeds the hotel limit", VerdictFail},
		{"french approved", "Statut : Approuvé, le montant respecte la limite", VerdictPass},
		{"french rejected", "Rejeté car le plafond est dépassé", VerdictFail},
		{"english words", "The expense is Approved.", VerdictPass},
		{"rejected", "Rejected: missing receipt", VerdictFail},
		{"review", "Needs review by a manager", VerdictReview},
		{"first decisive token wins", "Approved for now, although a review may fail later", VerdictPass},
		{"nothing decisive", "The receipt shows a hotel stay in Paris.", VerdictUnknown},
		{"empty", "", VerdictUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVerdict(tt.text))
		})
	}
}

func sampleTicket() fields.TicketInfo {
	return fields.TicketInfo{
		Filename: "marais.jpg",
		Amount:   f64p(180),
		Currency: strp("EUR"),
		Date:     strp("2024-03-18"),
		Vendor:   strp("Hotel Le Marais"),
		Category: constants.Hotel,
		Location: strp("Paris, FR"),
	}
}

func TestBuildTicketAnalysisContext(t *testing.T) {
	rules := []policy.Rule{
		{Sheet: constants.SheetHotel, Currency: "EUR", Country: "FR", Type: constants.RuleHotel, Limit: 150},
	}
	now := time.Date(2024, 3, 20, 9, 30, 0, 0, time.UTC)

	t.Run("with rules and policies", func(t *testing.T) {
		ctx := BuildTicketAnalysisContext(TicketContext{
			Ticket:   sampleTicket(),
			Rules:    rules,
			Policies: strings.Repeat("x", 900),
			Status:   constants.StatusRequiresApproval,
			Issues:   []string{"hotel amount 180.00 EUR exceeds limit of 150 EUR"},
			Now:      now,
		})
		assert.Contains(t, ctx, "Analysis date: 2024-03-20 09:30")
		assert.Contains(t, ctx, "- Amount: 180.00 EUR")
		assert.Contains(t, ctx, "- Location/Country: Paris, FR")
		assert.Contains(t, ctx, "- Hotel1 FR (EUR): limit 150 [Source: Hotel]")
		assert.Contains(t, ctx, "- Status: requires_approval")
		assert.Contains(t, ctx, strings.Repeat("x", 800)+"...")
		assert.NotContains(t, ctx, strings.Repeat("x", 801))
	})

	t.Run("without rules", func(t *testing.T) {
		ctx := BuildTicketAnalysisContext(TicketContext{Ticket: fields.TicketInfo{Category: constants.Unknown}, Now: now})
		assert.Contains(t, ctx, "WARNING: no specific rule found")
		assert.Contains(t, ctx, "- Amount: N/A N/A")
		assert.NotContains(t, ctx, "PRELIMINARY CHECK")
		assert.NotContains(t, ctx, "POLICY EXCERPTS")
	})

	t.Run("short policies are kept whole", func(t *testing.T) {
		ctx := BuildTicketAnalysisContext(TicketContext{Ticket: sampleTicket(), Policies: "Receipts are mandatory.", Now: now})
		assert.Contains(t, ctx, "Receipts are mandatory.\n")
		assert.NotContains(t, ctx, "Receipts are mandatory....")
	})
}

func TestBuildGeneralQueryContext(t *testing.T) {
	s := policy.Summary{
		Sheets:     map[string]int{"Extra": 1, constants.SheetHotel: 3, constants.SheetMeal: 5},
		Currencies: []string{"EUR", "SGD"},
		Countries:  []string{"FR", "SG"},
	}
	ctx := BuildGeneralQueryContext(s, "Taxi receipts are mandatory.")
	meal := strings.Index(ctx, "- Internal staff Meal: 5 rules")
	hotel := strings.Index(ctx, "- Hotel: 3 rules")
	extra := strings.Index(ctx, "- Extra: 1 rules")
	require.True(t, meal >= 0 && hotel >= 0 && extra >= 0)
	assert.Less(t, meal, hotel)
	assert.Less(t, hotel, extra)
	assert.Contains(t, ctx, "- Currencies covered: EUR, SGD")
	assert.Contains(t, ctx, "POLICY EXCERPTS:\nTaxi receipts are mandatory.")

	long := BuildGeneralQueryContext(s, strings.Repeat("y", 5000))
	assert.NotContains(t, long, strings.Repeat("y", policiesExcerptLimit+1))
	assert.Contains(t, long, strings.Repeat("y", policiesExcerptLimit)+"...")
}

func TestBuildPolicyQuestionContext(t *testing.T) {
	sections := []policy.Section{
		{Type: policy.SectionHotel, Text: "Hotels are capped per night."},
		{Type: policy.SectionGeneral, Text: strings.Repeat("z", 2000)},
	}
	ctx := BuildPolicyQuestionContext("hotel", sections, []policy.Rule{
		{Currency: "SGD", Country: "SG", Type: constants.RuleHotel, Limit: 250},
	})
	assert.True(t, strings.HasPrefix(ctx, "=== T&E POLICY QUESTION: HOTEL ==="))
	assert.Contains(t, ctx, "RELEVANT POLICIES:\n[hotel_policy] Hotels are capped per night.")
	assert.NotContains(t, ctx, strings.Repeat("z", policiesExcerptLimit+1))
	assert.Contains(t, ctx, "- Hotel1: 250 SGD in SG")

	empty := BuildPolicyQuestionContext("visa", nil, nil)
	assert.Contains(t, empty, "RELEVANT POLICIES:\nNo specific policy found.")
	assert.NotContains(t, empty, "RELATED RULES:")
}

func TestPrompts(t *testing.T) {
	p := BuildTicketAnalysisPrompt("", sampleTicket())
	assert.True(t, strings.HasPrefix(p, "Analyze this expense ticket"))
	assert.Contains(t, p, "- Amount: 180.00 EUR")

	p = BuildTicketAnalysisPrompt("Can I claim this?", fields.TicketInfo{})
	assert.True(t, strings.HasPrefix(p, "Specific question: Can I claim this?"))
	assert.Contains(t, p, "- Amount: not detected N/A")

	long := strings.Repeat("é", maxPromptText+10)
	u := BuildFieldUserPrompt(long)
	assert.Contains(t, u, "…(truncated)")

	sys := BuildFieldSystemPrompt(constants.AsStringSlice())
	assert.Contains(t, sys, "hotel, meal, breakfast, transport, flight, unknown")
	assert.Contains(t, sys, `"additionalProperties": false`)
}

func TestNormalizeTicketJSON(t *testing.T) {
	raw := []byte(`{"total":"1.234,50","merchant_name":"  Le Marais ","currency_code":"eur",
		"tx_date":"2024-03-18","country":"fr","category":"Hotel","tip":"2.00","city":null,"vendor_address":"x"}`)
	out, dropped, err := NormalizeTicketJSON(raw, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":1234.5,"vendor":"Le Marais","currency":"EUR","date":"2024-03-18",
		"country_code":"FR","category":"hotel"}`, string(out))
	assert.Contains(t, dropped, "tip(unknown)")
	assert.Contains(t, dropped, "vendor_address(unknown)")
	assert.Contains(t, dropped, "city(empty)")

	_, _, err = NormalizeTicketJSON([]byte("not json"), nil)
	assert.Error(t, err)
}

func TestSanitizeOptionalFields(t *testing.T) {
	doc := []byte(`{"amount":-3,"currency":"EURO","date":"18/03/2024","country_code":"FR","category":"spa","vendor":"Ok","confidence":2}`)
	out, dropped, err := SanitizeOptionalFields(doc, constants.AsStringSlice())
	require.NoError(t, err)
	assert.JSONEq(t, `{"country_code":"FR","vendor":"Ok"}`, string(out))
	assert.ElementsMatch(t, []string{"amount", "currency", "date", "category", "confidence"}, dropped)
}

func TestValidator(t *testing.T) {
	v, err := NewValidator(BuildTicketJSONSchema(constants.AsStringSlice()))
	require.NoError(t, err)

	assert.NoError(t, v.Validate([]byte(`{"amount":12.5,"currency":"EUR","category":"meal"}`)))
	assert.NoError(t, v.Validate([]byte(`{}`)))
	assert.Error(t, v.Validate([]byte(`{"amount":0}`)))
	assert.Error(t, v.Validate([]byte(`{"category":"spa"}`)))
	assert.Error(t, v.Validate([]byte(`{"extra":true}`)))
	assert.Error(t, v.Validate([]byte(`[`)))

	assert.NoError(t, ValidateJSONAgainstSchema(BuildTicketJSONSchema(nil), []byte(`{"category":"spa"}`)))
}

func TestFieldDecoder(t *testing.T) {
	d, err := NewFieldDecoder(true, nil)
	require.NoError(t, err)

	t.Run("fenced reply", func(t *testing.T) {
		got, err := d.Decode("```json\n{\"total\": 45.9, \"currency\": \"eur\", \"category\": \"meal\"}\n```")
		require.NoError(t, err)
		require.NotNil(t, got.Amount)
		assert.Equal(t, 45.9, *got.Amount)
		assert.Equal(t, "EUR", *got.Currency)
		assert.Equal(t, "meal", *got.Category)
		assert.Nil(t, got.Date)
	})

	t.Run("lenient drops offenders", func(t *testing.T) {
		got, err := d.Decode(`Here you go: {"amount": 20, "date": "March 18", "vendor": "Cafe"}`)
		require.NoError(t, err)
		assert.Nil(t, got.Date)
		assert.Equal(t, "Cafe", *got.Vendor)
	})

	t.Run("strict rejects offenders", func(t *testing.T) {
		strict, err := NewFieldDecoder(false, nil)
		require.NoError(t, err)
		_, err = strict.Decode(`{"amount": 20, "date": "March 18"}`)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrValidation))
	})

	t.Run("no object", func(t *testing.T) {
		_, err := d.Decode("I cannot read this receipt.")
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrDecode))
	})
}

func TestOffline(t *testing.T) {
	ctx := context.Background()
	var o Offline

	background := BuildTicketAnalysisContext(TicketContext{
		Ticket: sampleTicket(),
		Status: constants.StatusRequiresApproval,
		Issues: []string{"over the limit"},
	})
	reply, err := o.Complete(ctx, "", background)
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, ParseVerdict(reply))
	assert.Contains(t, reply, "- over the limit")

	again, err := o.Complete(ctx, "", background)
	require.NoError(t, err)
	assert.Equal(t, reply, again)

	approved := BuildTicketAnalysisContext(TicketContext{Ticket: sampleTicket(), Status: constants.StatusApproved})
	reply, err = o.Complete(ctx, "", approved)
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, ParseVerdict(reply))

	pending := BuildTicketAnalysisContext(TicketContext{Ticket: sampleTicket(), Status: constants.StatusPendingReview})
	reply, err = o.Complete(ctx, "", pending)
	require.NoError(t, err)
	assert.Equal(t, VerdictReview, ParseVerdict(reply))

	general, err := o.Complete(ctx, "what is the hotel limit?", "=== T&E ASSISTANT ===")
	require.NoError(t, err)
	assert.Contains(t, general, "=== T&E ASSISTANT ===")

	_, err = o.ExtractFields(ctx, "text")
	assert.True(t, errors.Is(err, common.ErrUnavailable))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = o.Complete(cancelled, "", background)
	assert.ErrorIs(t, err, context.Canceled)
}
