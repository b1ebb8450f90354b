package fields

import (
	"unicode/utf8"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
)

// TicketInfo is the structured record extracted from one receipt. It
// serializes to a flat JSON object whose leaves are strings, numbers or null.
//
// Confidence is an additive heuristic used to rank results. It is not a
// calibrated probability.
type TicketInfo struct {
	Filename         string             `json:"filename"`
	FileType         string             `json:"file_type"`
	Amount           *float64           `json:"amount"`
	Currency         *string            `json:"currency"`
	Date             *string            `json:"date"`
	DateRaw          *string            `json:"date_raw"`
	Vendor           *string            `json:"vendor"`
	Category         constants.Category `json:"category"`
	Subcategory      *string            `json:"subcategory"`
	Location         *string            `json:"location"`
	CountryCode      *string            `json:"country_code"`
	City             *string            `json:"city"`
	VATRate          *float64           `json:"vat_rate"`
	Confidence       float64            `json:"confidence"`
	ExtractionMethod string             `json:"extraction_method"`
	Error            *string            `json:"error"`
	RawText          string             `json:"raw_text"`
}

// Failed builds the record returned when no text could be read: every field
// null, category unknown and the sentinel kept as raw text.
func Failed(filename, fileType, sentinel string, cause error) TicketInfo {
	t := TicketInfo{
		Filename:         filename,
		FileType:         fileType,
		Category:         constants.Unknown,
		ExtractionMethod: constants.MethodHeuristic,
		RawText:          TruncateRaw(sentinel),
	}
	if cause != nil {
		t.Error = ptr(cause.Error())
	} else {
		t.Error = ptr(sentinel)
	}
	return t
}

// HasError reports whether the record carries an extraction error.
func (t TicketInfo) HasError() bool { return t.Error != nil }

// TruncateRaw caps raw text at constants.RawTextLimit runes.
func TruncateRaw(s string) string {
	if utf8.RuneCountInString(s) <= constants.RawTextLimit {
		return s
	}
	r := []rune(s)
	return string(r[:constants.RawTextLimit])
}

func ptr[T any](v T) *T { return &v }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
