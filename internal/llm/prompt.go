package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
)

const maxPromptText = 3000

// BuildFieldSystemPrompt is the system message for field extraction replies.
func BuildFieldSystemPrompt(categories []string) string {
	schema, _ := json.MarshalIndent(BuildTicketJSONSchema(categories), "", "  ")
	parts := []string{
		"You read expense receipts. Return ONLY one JSON object that matches the JSON Schema below.",
		"'amount' is the total paid, as a number.",
		"'currency' is a 3-letter ISO 4217 code; 'country_code' is a 2-letter ISO 3166 code.",
		"Use ISO-8601 dates (YYYY-MM-DD). Receipts from Europe and Asia usually write day before month.",
		"'category' MUST be exactly one of: " + strings.Join(categories, ", ") + ". If uncertain, use 'unknown'.",
		"'vendor' is the establishment name as printed.",
		"Never output null. If a field is not present, omit it.",
		"JSON Schema:\n" + string(schema),
	}
	return strings.Join(parts, " ")
}

// BuildFieldUserPrompt wraps the receipt text, truncated to the first ~3k chars.
func BuildFieldUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Receipt text:\n")
	r := []rune(strings.TrimSpace(text))
	if len(r) > maxPromptText {
		b.WriteString(string(r[:maxPromptText]))
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(string(r))
	}
	return b.String()
}

// BuildTicketAnalysisPrompt asks for a verdict on one ticket, answering the
// user's question when there is one.
func BuildTicketAnalysisPrompt(question string, t fields.TicketInfo) string {
	var b strings.Builder
	if q := strings.TrimSpace(question); q != "" {
		fmt.Fprintf(&b, "Specific question: %s\n\n", q)
	} else {
		b.WriteString("Analyze this expense ticket against the company T&E policies.\n\n")
	}
	b.WriteString("TICKET INFORMATION:\n")
	fmt.Fprintf(&b, "- Amount: %s %s\n", orDefault(formatAmount(t.Amount), "not detected"), orDefault(deref(t.Currency), "N/A"))
	fmt.Fprintf(&b, "- Category: %s\n", orDefault(string(t.Category), "not determined"))
	fmt.Fprintf(&b, "- Date: %s\n", orDefault(deref(t.Date), "not detected"))
	fmt.Fprintf(&b, "- Vendor: %s\n\n", orDefault(deref(t.Vendor), "not detected"))
	b.WriteString("Please provide:\n")
	b.WriteString("1. Validation status: start your answer with PASS, FAIL or REVIEW\n")
	b.WriteString("2. Justification based on the T&E rules\n")
	b.WriteString("3. Recommended actions if needed")
	return b.String()
}

func BuildGeneralQueryPrompt(question string) string {
	return "Question about the T&E policies: " + strings.TrimSpace(question) +
		"\n\nPlease answer based on the rules and policies provided."
}
