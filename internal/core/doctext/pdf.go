package doctext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

func (e *Extractor) extractPDF(ctx context.Context, data []byte, filename string, logger *slog.Logger) Result {
	var warnings []string
	text, pages, err := pdfText(data)
	if err != nil {
		logger.Warn("doctext.pdf.text_layer_failed", "err", err)
		warnings = append(warnings, fmt.Sprintf("text layer: %v", err))
	}
	if strings.TrimSpace(text) != "" {
		return Result{Text: text, Method: constants.MethodPDFText, Pages: pages, Warnings: warnings}
	}

	logger.Info("doctext.pdf.fallback", "reason", "empty text layer", "zoom", e.cfg.Zoom)
	res := e.ocrPDF(ctx, data, filename, logger)
	res.Warnings = append(warnings, res.Warnings...)
	return res
}

// pdfText concatenates the embedded text of every page. The reader panics
// on some malformed files, so that is turned into an error.
func pdfText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: pdf reader panic: %v", common.ErrDecode, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", common.ErrDecode, err)
	}
	pages = r.NumPage()
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		t, perr := p.GetPlainText(nil)
		if perr != nil {
			err = errors.Join(err, fmt.Errorf("page %d: %w", i, perr))
			continue
		}
		if strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n"), pages, err
}

func (e *Extractor) ocrPDF(ctx context.Context, data []byte, filename string, logger *slog.Logger) Result {
	if e.raster == nil {
		return failure(constants.KindPDF, KindRasterizeUnavailable, filename, errNoRasterizer)
	}
	if e.images == nil {
		return failure(constants.KindPDF, KindRecognizerUnavailable, filename, errNoRecognizer)
	}

	imgs, err := e.raster.Rasterize(ctx, data, e.cfg.Zoom, e.cfg.MaxPages)
	if err != nil {
		if errors.Is(err, common.ErrUnavailable) {
			return failure(constants.KindPDF, KindRasterizeUnavailable, filename, err)
		}
		return failure(constants.KindPDF, KindDecode, filename, err)
	}

	var (
		parts    []string
		warnings []string
		confSum  float64
		lastErr  error
	)
	for i, img := range imgs {
		out, err := e.images.RunImage(ctx, img)
		if err != nil {
			logger.Warn("doctext.pdf.page_ocr_failed", "page", i+1, "err", err)
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i+1, err))
			lastErr = err
			continue
		}
		if strings.TrimSpace(out.Text) == "" {
			continue
		}
		parts = append(parts, out.Text)
		confSum += out.Confidence
	}

	if len(parts) == 0 {
		res := failure(constants.KindPDF, KindEmpty, filename, nil)
		if lastErr != nil {
			res = failure(constants.KindPDF, classify(lastErr), filename, lastErr)
		}
		res.Pages = len(imgs)
		res.Warnings = warnings
		return res
	}
	return Result{
		Text:       strings.Join(parts, "\n"),
		Method:     constants.MethodPDFOCR,
		Pages:      len(imgs),
		Confidence: confSum / float64(len(parts)),
		Warnings:   warnings,
	}
}
