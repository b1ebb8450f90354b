package doctext

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// Kind says why a document produced no usable text.
type Kind string

const (
	KindDecode                Kind = "decode"
	KindUnsupported           Kind = "unsupported"
	KindEmpty                 Kind = "empty"
	KindRasterizeUnavailable  Kind = "rasterize_unavailable"
	KindRecognizerUnavailable Kind = "recognizer_unavailable"
)

type ExtractionError struct {
	Kind     Kind
	Filename string
	Cause    error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Filename, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Filename)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

var (
	errNoRecognizer = common.NewAppError("OCR_UNAVAILABLE", "no image recognizer configured", common.ErrUnavailable)
	errNoRasterizer = common.NewAppError("PDF_RASTER_UNAVAILABLE", "no PDF rasterizer configured", common.ErrUnavailable)
	errLegacyXLS    = common.NewAppError("UNSUPPORTED", "legacy .xls workbooks are not supported", common.ErrUnsupported)
	errLegacyDOC    = common.NewAppError("UNSUPPORTED", "no readable text in legacy .doc", common.ErrUnsupported)
	errBinary       = common.NewAppError("UNSUPPORTED", "content is not text", common.ErrUnsupported)
)

func classify(err error) Kind {
	switch {
	case errors.Is(err, common.ErrUnavailable):
		return KindRecognizerUnavailable
	case errors.Is(err, common.ErrUnsupported):
		return KindUnsupported
	default:
		return KindDecode
	}
}

var kindLabel = map[constants.FileKind]string{
	constants.KindImage: "Image",
	constants.KindPDF:   "PDF",
	constants.KindWord:  "Word",
	constants.KindExcel: "Excel",
	constants.KindText:  "Text",
	constants.KindRTF:   "RTF",
}

// Sentinel is the human readable text that stands in for a document whose
// text could not be read.
func Sentinel(fk constants.FileKind, k Kind, filename string) string {
	label, known := kindLabel[fk]
	if !known {
		label = "Unknown"
	}
	switch k {
	case KindEmpty:
		return fmt.Sprintf("[%s file %s - no text found]", label, filename)
	case KindUnsupported:
		if !known {
			return fmt.Sprintf("[Unsupported file type %s - content unreadable]", filename)
		}
		return fmt.Sprintf("[%s file %s - format not supported, please convert it]", label, filename)
	case KindRasterizeUnavailable:
		return fmt.Sprintf("[%s file %s - no text layer and PDF rasterization is unavailable]", label, filename)
	case KindRecognizerUnavailable:
		return fmt.Sprintf("[%s file %s - OCR extraction failed: recognizer unavailable]", label, filename)
	default:
		return fmt.Sprintf("[%s file %s - text extraction failed]", label, filename)
	}
}

func failure(fk constants.FileKind, k Kind, filename string, cause error) Result {
	return Result{
		Text: Sentinel(fk, k, filename),
		Err:  &ExtractionError{Kind: k, Filename: filename, Cause: cause},
	}
}
