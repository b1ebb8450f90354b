package llm

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
)

// Offline answers from the preliminary check written into the context. It
// never calls out and gives the same reply for the same input.
type Offline struct{}

func (Offline) Complete(ctx context.Context, _, background string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	status, issues, found := preliminary(background)
	if !found {
		return "Offline mode: no language model is configured, so only the loaded rules can be reported.\n\n" + background, nil
	}

	var b strings.Builder
	switch constants.ComplianceStatus(status) {
	case constants.StatusApproved:
		b.WriteString("PASS: the amount is within the applicable policy limit.")
	case constants.StatusRequiresApproval:
		b.WriteString("FAIL: the amount exceeds the applicable policy limit; manager approval is required.")
	default:
		b.WriteString("REVIEW: the ticket could not be confirmed against a policy limit.")
	}
	for _, issue := range issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	b.WriteString("\n\n(offline reasoning, no language model consulted)")
	return b.String(), nil
}

func (Offline) ExtractFields(context.Context, string) (fields.AssistedFields, error) {
	return fields.AssistedFields{}, common.NewAppError("LLM_OFFLINE", "offline provider cannot extract fields", common.ErrUnavailable)
}

// preliminary reads the PRELIMINARY CHECK block of a ticket analysis context.
func preliminary(background string) (status string, issues []string, found bool) {
	in := false
	for _, line := range strings.Split(background, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "PRELIMINARY CHECK:":
			in = true
		case !in:
		case line == "":
			return status, issues, found
		case strings.HasPrefix(line, "- Status: "):
			status = strings.TrimPrefix(line, "- Status: ")
			found = true
		case strings.HasPrefix(line, "- Issue: "):
			issues = append(issues, strings.TrimPrefix(line, "- Issue: "))
		}
	}
	return status, issues, found
}
