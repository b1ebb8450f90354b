package llm

import (
	"strings"
	"unicode"
)

var verdictTokens = map[string]Verdict{
	"pass":     VerdictPass,
	"passed":   VerdictPass,
	"approved": VerdictPass,
	"approuvé": VerdictPass,
	"approuve": VerdictPass,
	"accepted": VerdictPass,
	"fail":     VerdictFail,
	"failed":   VerdictFail,
	"rejected": VerdictFail,
	"rejeté":   VerdictFail,
	"rejete":   VerdictFail,
	"refused":  VerdictFail,
	"refusé":   VerdictFail,
	"denied":   VerdictFail,
	"review":   VerdictReview,
	"revision": VerdictReview,
	"révision": VerdictReview,
	"pending":  VerdictReview,
	"attente":  VerdictReview,
}

// ParseVerdict reads the decision out of a reasoning reply. The first decisive
// word wins; a reply without one is UNKNOWN.
func ParseVerdict(text string) Verdict {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if v, ok := verdictTokens[w]; ok {
			return v
		}
	}
	return VerdictUnknown
}
