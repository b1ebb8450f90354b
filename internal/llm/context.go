package llm

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
	"github.com/joseph-ayodele/ticket-analyzer/internal/policy"
)

const policiesExcerptLimit = 800

// TicketContext is everything the ticket analysis context is built from.
type TicketContext struct {
	Ticket   fields.TicketInfo
	Rules    []policy.Rule
	Policies string // free-text policy document, excerpted
	Status   constants.ComplianceStatus
	Issues   []string
	Now      time.Time
}

func BuildTicketAnalysisContext(tc TicketContext) string {
	t := tc.Ticket
	now := tc.Now
	if now.IsZero() {
		now = time.Now()
	}

	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	add("=== T&E TICKET ANALYSIS ===")
	add("Analysis date: %s", now.Format("2006-01-02 15:04"))
	add("")
	add("TICKET TO ANALYZE:")
	add("- File: %s", orDefault(t.Filename, "N/A"))
	add("- Amount: %s %s", orDefault(formatAmount(t.Amount), "N/A"), orDefault(deref(t.Currency), "N/A"))
	add("- Detected category: %s", orDefault(string(t.Category), "N/A"))
	add("- Date: %s", orDefault(deref(t.Date), "N/A"))
	add("- Location/Country: %s", orDefault(deref(t.Location), "N/A"))
	add("- Vendor: %s", orDefault(deref(t.Vendor), "N/A"))
	add("")

	if tc.Status != "" {
		add("PRELIMINARY CHECK:")
		add("- Status: %s", tc.Status)
		for _, issue := range tc.Issues {
			add("- Issue: %s", issue)
		}
		add("")
	}

	if len(tc.Rules) > 0 {
		add("APPLICABLE T&E RULES:")
		for _, r := range tc.Rules {
			add("- %s", r.String())
		}
	} else {
		add("WARNING: no specific rule found for this ticket")
	}
	add("")

	if p := strings.TrimSpace(tc.Policies); p != "" {
		add("T&E POLICY EXCERPTS:")
		add("%s", excerpt(p, policiesExcerptLimit))
		add("")
	}

	add("ANALYSIS INSTRUCTIONS:")
	add("1. Check the amount against the authorized limits")
	add("2. Validate the expense category and the country")
	add("3. Identify missing documents or potential problems")
	add("4. Give a clear recommendation (PASS/FAIL/REVIEW)")
	add("5. Justify the decision by citing the applicable rules")
	return strings.Join(lines, "\n")
}

// BuildGeneralQueryContext summarizes the loaded rules for questions that
// are not about a specific ticket.
func BuildGeneralQueryContext(summary policy.Summary, policiesExcerpt string) string {
	var lines []string
	lines = append(lines, "=== T&E ASSISTANT ===", "")
	if len(summary.Sheets) > 0 {
		lines = append(lines, "AVAILABLE T&E RULES:")
		for _, name := range sheetOrder(summary.Sheets) {
			lines = append(lines, fmt.Sprintf("- %s: %d rules", name, summary.Sheets[name]))
		}
		if len(summary.Currencies) > 0 {
			lines = append(lines, "- Currencies covered: "+strings.Join(summary.Currencies, ", "))
		}
		if len(summary.Countries) > 0 {
			lines = append(lines, "- Countries covered: "+strings.Join(summary.Countries, ", "))
		}
		lines = append(lines, "")
	}
	if p := strings.TrimSpace(policiesExcerpt); p != "" {
		lines = append(lines, "POLICY EXCERPTS:", excerpt(p, policiesExcerptLimit), "")
	}
	lines = append(lines,
		"You are an assistant specialized in T&E policies.",
		"Answer precisely, based on the rules and policies provided.",
	)
	return strings.Join(lines, "\n")
}

// BuildPolicyQuestionContext frames a question on one policy topic with the
// document sections that matched it, each excerpted.
func BuildPolicyQuestionContext(topic string, sections []policy.Section, rules []policy.Rule) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("=== T&E POLICY QUESTION: %s ===", strings.ToUpper(strings.TrimSpace(topic))), "")
	lines = append(lines, "RELEVANT POLICIES:")
	if len(sections) == 0 {
		lines = append(lines, "No specific policy found.")
	}
	for _, sec := range sections {
		lines = append(lines, fmt.Sprintf("[%s] %s", sec.Type, excerpt(sec.Text, policiesExcerptLimit)))
	}
	lines = append(lines, "")
	if len(rules) > 0 {
		lines = append(lines, "RELATED RULES:")
		for _, r := range rules {
			lines = append(lines, fmt.Sprintf("- %s: %s %s in %s",
				r.Type, strconv.FormatFloat(r.Limit, 'f', -1, 64), r.Currency, r.Country))
		}
		lines = append(lines, "")
	}
	lines = append(lines, "Answer in detail, explaining the rules and how they apply in practice.")
	return strings.Join(lines, "\n")
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// sheetOrder lists the canonical sheets first, then any others by name.
func sheetOrder(counts map[string]int) []string {
	var out []string
	for _, s := range constants.ExpectedSheets {
		if _, ok := counts[s]; ok {
			out = append(out, s)
		}
	}
	var rest []string
	for s := range counts {
		if !slices.Contains(constants.ExpectedSheets, s) {
			rest = append(rest, s)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
