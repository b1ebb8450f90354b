package fields

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s and strips combining accents ("Février" -> "fevrier").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// foldMap folds s rune by rune and records, for each byte of the result, the
// offset of the source rune it came from. Matches found in the folded text
// can then be cut from s with original.
func foldMap(s string) (string, []int) {
	var b strings.Builder
	idx := make([]int, 0, len(s))
	for i, r := range s {
		f := fold(string(r))
		b.WriteString(f)
		for range len(f) {
			idx = append(idx, i)
		}
	}
	return b.String(), idx
}

// original returns the slice of s that produced folded bytes [start, end).
func original(s string, idx []int, start, end int) string {
	if start >= end || end > len(idx) {
		return ""
	}
	last := idx[end-1]
	_, size := utf8.DecodeRuneInString(s[last:])
	return s[idx[start] : last+size]
}
