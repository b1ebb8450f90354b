// Package compliance checks an extracted ticket against the policy limits and,
// when a reasoning service is configured, asks it for a verdict.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
	"github.com/joseph-ayodele/ticket-analyzer/internal/llm"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

// Analysis is the compliance outcome for one ticket.
type Analysis struct {
	Valid           bool                       `json:"is_valid"`
	Status          constants.ComplianceStatus `json:"status"`
	Confidence      float64                    `json:"confidence"`
	Issues          []string                   `json:"issues"`
	Recommendations []string                   `json:"recommendations"`
	MatchingRules   []policy.Rule              `json:"matching_rules"`
	AppliedRule     *policy.Rule               `json:"applied_rule"`
	Verdict         llm.Verdict                `json:"verdict,omitempty"`
	Reasoning       string                     `json:"ai_response,omitempty"`
	ReasoningError  string                     `json:"reasoning_error,omitempty"`
}

type Analyzer struct {
	rules    policy.Source
	reasoner llm.ReasoningService
	policies string
	logger   *slog.Logger
	now      func() time.Time
}

// NewAnalyzer wires a rule source and an optional reasoning service. policies
// is free-text policy prose excerpted into the reasoning context.
func NewAnalyzer(rules policy.Source, reasoner llm.ReasoningService, policies string, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{rules: rules, reasoner: reasoner, policies: policies, logger: logger, now: time.Now}
}

// Analyze never fails: problems are reported in the Analysis itself.
func (a *Analyzer) Analyze(ctx context.Context, t fields.TicketInfo, question string) Analysis {
	out := a.check(ctx, t)
	if a.reasoner != nil && out.Status != constants.StatusError {
		a.reason(ctx, t, question, &out)
	}
	a.logger.Info("compliance.analyze.ok",
		"filename", t.Filename,
		"status", out.Status,
		"rules", len(out.MatchingRules),
		"verdict", out.Verdict,
		"confidence", out.Confidence,
	)
	return out
}

func (a *Analyzer) check(ctx context.Context, t fields.TicketInfo) Analysis {
	out := Analysis{
		Status:          constants.StatusPendingReview,
		Issues:          []string{},
		Recommendations: []string{},
		MatchingRules:   []policy.Rule{},
	}

	if t.HasError() {
		out.Status = constants.StatusError
		out.Issues = append(out.Issues, "text extraction failed: "+*t.Error)
		out.Recommendations = append(out.Recommendations, "Provide a readable copy of the ticket")
		return out
	}

	currency, country := deref(t.Currency), deref(t.CountryCode)
	if a.rules != nil {
		rules, err := a.rules.Lookup(ctx, currency, country, t.Category)
		if err != nil {
			a.logger.Error("compliance.lookup.failed", "filename", t.Filename, "err", err)
			out.Status = constants.StatusError
			out.Issues = append(out.Issues, "rule lookup failed: "+err.Error())
			out.Recommendations = append(out.Recommendations, "Please contact support")
			return out
		}
		out.MatchingRules = rules
	}

	out.Confidence = confidence(t, len(out.MatchingRules) > 0)

	if t.Amount == nil {
		out.Issues = append(out.Issues, "amount not found in ticket")
		out.Recommendations = append(out.Recommendations, "Please provide a clear ticket with a visible amount")
		return out
	}

	rule, ok := applicable(out.MatchingRules, currency, country, t.Category)
	if !ok {
		out.Issues = append(out.Issues, fmt.Sprintf("no applicable rule found for %s in %s", t.Category, orNA(currency)))
		out.Recommendations = append(out.Recommendations, "Check whether this expense category is covered by policy")
		return out
	}
	out.AppliedRule = &rule

	amount := *t.Amount
	if amount <= rule.Limit {
		out.Valid = true
		out.Status = constants.StatusApproved
		out.Recommendations = append(out.Recommendations, "Expense appears compliant with T&E policy")
		return out
	}
	out.Status = constants.StatusRequiresApproval
	out.Issues = append(out.Issues, fmt.Sprintf("%s amount %s %s exceeds limit of %s %s",
		t.Category, money(amount), rule.Currency, money(rule.Limit), rule.Currency))
	out.Recommendations = append(out.Recommendations, "Get manager approval for the amount exceeding the policy limit")
	return out
}

// applicable picks the rule an amount can be compared with: same currency and
// rule type, and same country when the ticket has one.
func applicable(rules []policy.Rule, currency, country string, c constants.Category) (policy.Rule, bool) {
	if currency == "" {
		return policy.Rule{}, false
	}
	t := constants.RuleTypeFor(c)
	for _, r := range rules {
		if r.Currency == currency && r.Type == t && (country == "" || r.Country == country) {
			return r, true
		}
	}
	return policy.Rule{}, false
}

func confidence(t fields.TicketInfo, hasRules bool) float64 {
	c := 0.5
	if hasRules {
		c += 0.3
	}
	if t.Amount != nil {
		c += 0.1
	}
	if t.Currency != nil {
		c += 0.1
	}
	return min(c, 1.0)
}

func (a *Analyzer) reason(ctx context.Context, t fields.TicketInfo, question string, out *Analysis) {
	background := llm.BuildTicketAnalysisContext(llm.TicketContext{
		Ticket:   t,
		Rules:    out.MatchingRules,
		Policies: a.policies,
		Status:   out.Status,
		Issues:   out.Issues,
		Now:      a.now(),
	})
	prompt := llm.BuildTicketAnalysisPrompt(question, t)

	reply, err := a.reasoner.Complete(ctx, prompt, background)
	if err != nil {
		a.logger.Warn("compliance.reasoning.failed", "filename", t.Filename, "err", err)
		out.ReasoningError = err.Error()
		out.Verdict = llm.VerdictUnknown
		return
	}
	out.Reasoning = reply
	out.Verdict = llm.ParseVerdict(reply)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*s))
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
