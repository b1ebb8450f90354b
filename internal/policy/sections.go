package policy

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// SectionType classifies a paragraph of the free-text policy document.
type SectionType string

const (
	SectionHotel         SectionType = "hotel_policy"
	SectionMeal          SectionType = "meal_policy"
	SectionTransport     SectionType = "transport_policy"
	SectionDocumentation SectionType = "documentation_policy"
	SectionGeneral       SectionType = "general_policy"
)

// MinSectionLength drops headings and stray lines from the index.
const MinSectionLength = 50

// MaxSectionResults is how many sections Search returns by default.
const MaxSectionResults = 3

// sectionKeywords are the T&E terms a paragraph is indexed under.
var sectionKeywords = []string{
	"hotel", "meal", "transport", "flight", "taxi", "restaurant",
	"breakfast", "lunch", "dinner", "accommodation", "expense",
	"receipt", "approval", "limit", "policy", "reimbursement",
}

// sectionClasses is checked in order; the first hit wins.
var sectionClasses = []struct {
	typ   SectionType
	words []string
}{
	{SectionHotel, []string{"hotel", "accommodation", "lodging"}},
	{SectionMeal, []string{"meal", "restaurant", "food", "dining"}},
	{SectionTransport, []string{"transport", "taxi", "flight", "travel"}},
	{SectionDocumentation, []string{"receipt", "documentation", "proof"}},
}

var reParagraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// Section is one indexed paragraph of the policy document.
type Section struct {
	Index    int         `json:"index"`
	Type     SectionType `json:"type"`
	Keywords []string    `json:"keywords"`
	Text     string      `json:"text"`
}

// Sections is a keyword index over the policy document's paragraphs.
type Sections struct {
	list []Section
}

// IndexSections splits text on blank lines and keeps paragraphs longer than
// MinSectionLength. Index is the paragraph position in the document.
func IndexSections(text string) *Sections {
	s := &Sections{}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	i := 0
	for _, para := range reParagraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) > MinSectionLength {
			s.list = append(s.list, Section{
				Index:    i,
				Type:     classifySection(para),
				Keywords: sectionKeywordsIn(para),
				Text:     para,
			})
		}
		i++
	}
	return s
}

func (s *Sections) Len() int { return len(s.list) }

// All returns the indexed sections in document order.
func (s *Sections) All() []Section {
	return append([]Section(nil), s.list...)
}

// Search returns up to limit sections sharing a keyword with topic, those
// sharing the most first and document order breaking ties. A topic naming a
// section type ("hotel", "meal", ...) also matches sections of that type.
// limit <= 0 means MaxSectionResults.
func (s *Sections) Search(topic string, limit int) []Section {
	if limit <= 0 {
		limit = MaxSectionResults
	}
	topic = strings.ToLower(strings.TrimSpace(topic))
	if s == nil || topic == "" {
		return nil
	}

	type hit struct {
		sec   Section
		score int
	}
	var hits []hit
	for _, sec := range s.list {
		score := 0
		for _, kw := range sec.Keywords {
			if strings.Contains(topic, kw) {
				score++
			}
		}
		if sec.Type != SectionGeneral && strings.Contains(topic, strings.TrimSuffix(string(sec.Type), "_policy")) {
			score++
		}
		if score > 0 {
			hits = append(hits, hit{sec, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Section, 0, min(limit, len(hits)))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, h.sec)
	}
	return out
}

func sectionKeywordsIn(text string) []string {
	lower := strings.ToLower(text)
	out := []string{}
	for _, kw := range sectionKeywords {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func classifySection(text string) SectionType {
	lower := strings.ToLower(text)
	for _, c := range sectionClasses {
		for _, w := range c.words {
			if strings.Contains(lower, w) {
				return c.typ
			}
		}
	}
	return SectionGeneral
}
