package llm

import (
	"context"

	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
)

// ReasoningService answers a prompt against a context block of ticket data,
// matched rules and policy excerpts.
type ReasoningService interface {
	Complete(ctx context.Context, prompt, background string) (string, error)
}

// Assistant is a provider that can both reason about a ticket and propose
// field values for the assisted extraction strategy.
type Assistant interface {
	ReasoningService
	fields.FieldAssistant
}

// Verdict is the decision read back from a reasoning reply.
type Verdict string

const (
	VerdictPass    Verdict = "PASS"
	VerdictFail    Verdict = "FAIL"
	VerdictReview  Verdict = "REVIEW"
	VerdictUnknown Verdict = "UNKNOWN"
)
