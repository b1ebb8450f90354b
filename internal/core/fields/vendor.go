package fields

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var reEstablishment = regexp.MustCompile(`\b(hotel|restaurant|cafe|bistro|store|shop|market)s?\b`)

// extractVendor takes the first non-empty line, trims non-word runes from
// both ends and keeps it when it is 3 to 50 runes long.
func extractVendor(text string) (string, float64, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name := strings.TrimFunc(line, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		n := utf8.RuneCountInString(name)
		if n < 3 || n > 50 {
			return "", 0, false
		}
		if reEstablishment.MatchString(fold(name)) {
			return name, 0.25, true
		}
		return name, 0.2, true
	}
	return "", 0, false
}
