package doctext

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gonfva/docxlib"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

func extractDocx(data []byte, filename string) Result {
	doc, err := docxlib.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return failure(constants.KindWord, KindDecode, filename, fmt.Errorf("%w: %v", common.ErrDecode, err))
	}

	var lines []string
	for _, para := range doc.Paragraphs() {
		var b strings.Builder
		for _, child := range para.Children() {
			if child.Run != nil && child.Run.Text != nil {
				b.WriteString(child.Run.Text.Text)
			}
			if child.Link != nil && child.Link.Run.Text != nil {
				b.WriteString(child.Link.Run.Text.Text)
			}
		}
		lines = append(lines, b.String())
	}

	text := strings.Join(lines, "\n")
	if strings.TrimSpace(text) == "" {
		return failure(constants.KindWord, KindEmpty, filename, nil)
	}
	return direct(text, constants.MethodDocx)
}

const (
	minSalvageRun     = 4
	minSalvageLetters = 8
)

// extractDoc salvages printable runs from a legacy Word binary. Word stores
// body text either as cp1252 bytes or as UTF-16LE, so both are scanned.
func extractDoc(data []byte, filename string) Result {
	runs := append(salvage8(data), salvage16(data)...)

	seen := make(map[string]bool, len(runs))
	var kept []string
	letters := 0
	for _, r := range runs {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] || oleNoise[r] {
			continue
		}
		n := countLetters(r)
		if n*2 < utf8.RuneCountInString(r) {
			continue
		}
		seen[r] = true
		kept = append(kept, r)
		letters += n
	}
	if letters < minSalvageLetters {
		return failure(constants.KindWord, KindUnsupported, filename, errLegacyDOC)
	}
	return direct(strings.Join(kept, "\n"), constants.MethodDocSalv)
}

var oleNoise = func() map[string]bool {
	m := map[string]bool{}
	for _, s := range []string{
		"Root Entry", "WordDocument", "SummaryInformation", "DocumentSummaryInformation",
		"CompObj", "ObjectPool", "Data", "1Table", "0Table", "MSWordDoc", "Word.Document.8",
		"Microsoft Word-Dokument", "Microsoft Office Word", "Microsoft Word 97-2003 Document",
		"Normal", "Default Paragraph Font", "Table Normal", "Times New Roman", "Symbol", "Arial",
	} {
		m[s] = true
	}
	return m
}()

func printable8(b byte) bool {
	return b == '\t' || (b >= 0x20 && b < 0x7f) || b >= 0xc0
}

func salvage8(data []byte) []string {
	dec := charmap.Windows1252.NewDecoder()
	var out []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minSalvageRun {
			if s, err := dec.Bytes(data[start:end]); err == nil {
				out = append(out, string(s))
			}
		}
		start = -1
	}
	for i, b := range data {
		if printable8(b) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))
	return out
}

func salvage16(data []byte) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) >= minSalvageRun {
			out = append(out, string(cur))
		}
		cur = cur[:0]
	}
	for i := 0; i+1 < len(data); i += 2 {
		r := rune(data[i]) | rune(data[i+1])<<8
		if latinText(r) {
			cur = append(cur, r)
			continue
		}
		flush()
	}
	flush()
	return out
}

// latinText limits UTF-16 salvage to Latin script and common punctuation;
// pairs of ASCII bytes would otherwise decode as CJK letters.
func latinText(r rune) bool {
	switch {
	case r == '\t', r >= 0x20 && r < 0x7f:
		return true
	case r >= 0xa0 && r < 0x250:
		return true
	case r >= 0x2010 && r <= 0x20cf:
		return true
	}
	return false
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// extractXLSX dumps every sheet as tab separated rows under a
// "Sheet: <name>" header.
func extractXLSX(data []byte, filename string) Result {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return failure(constants.KindExcel, KindDecode, filename, fmt.Errorf("%w: %v", common.ErrDecode, err))
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	cells := 0
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return failure(constants.KindExcel, KindDecode, filename, fmt.Errorf("%w: sheet %q: %v", common.ErrDecode, sheet, err))
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Sheet: " + sheet + "\n")
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
			if line == "" {
				continue
			}
			cells += len(row)
			b.WriteString(line + "\n")
		}
	}
	if cells == 0 {
		return failure(constants.KindExcel, KindEmpty, filename, nil)
	}
	res := direct(strings.TrimRight(b.String(), "\n"), constants.MethodXLSX)
	res.Pages = len(sheets)
	return res
}
