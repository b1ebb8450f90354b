//go:build gosseract

package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// Gosseract runs libtesseract in-process. A client is created per call, so
// the recognizer is safe for concurrent use.
type Gosseract struct {
	cfg    TesseractConfig
	logger *slog.Logger
}

func NewGosseract(cfg TesseractConfig, logger *slog.Logger) (*Gosseract, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Gosseract{cfg: cfg, logger: logger}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Recognize(ctx context.Context, img image.Image) ([]Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, common.WrapError(err, "gosseract encode")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if g.cfg.TessdataDir != "" {
		client.TessdataPrefix = g.cfg.TessdataDir
	}
	if err := client.SetLanguage(strings.Split(g.cfg.Lang, "+")...); err != nil {
		return nil, common.NewAppError("OCR_UNAVAILABLE", "gosseract language", common.ErrUnavailable)
	}
	if g.cfg.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
			return nil, common.WrapError(err, "gosseract psm")
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, common.WrapError(err, "gosseract image")
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, common.WrapError(err, "gosseract recognize")
	}
	frags := make([]Fragment, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" || b.Confidence < 0 {
			continue
		}
		frags = append(frags, Fragment{
			Text:       text,
			Confidence: min(b.Confidence/100, 1),
			Box:        BBoxFromRect(b.Box),
		})
	}
	SortFragments(frags)
	g.logger.Debug("ocr.gosseract.ok", "fragments", len(frags))
	return frags, nil
}
