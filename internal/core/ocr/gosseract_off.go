//go:build !gosseract

package ocr

import (
	"context"
	"image"
	"log/slog"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// Gosseract is only available in binaries built with -tags gosseract.
type Gosseract struct{}

func NewGosseract(TesseractConfig, *slog.Logger) (*Gosseract, error) {
	return nil, common.NewAppError("OCR_UNAVAILABLE", "built without the gosseract tag", common.ErrUnavailable)
}

func (*Gosseract) Name() string { return "gosseract" }

func (*Gosseract) Recognize(context.Context, image.Image) ([]Fragment, error) {
	return nil, common.NewAppError("OCR_UNAVAILABLE", "built without the gosseract tag", common.ErrUnavailable)
}
