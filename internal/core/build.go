package core

import (
	"log/slog"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/doctext"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/ocr"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/preprocess"
)

// Build assembles the full document pipeline from configuration: preprocess,
// recognizer (with fallback), PDF rasterizer, document dispatch and field
// extraction. assistant and textCache may be nil.
func Build(cfg *common.Config, assistant fields.FieldAssistant, textCache TextCache, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		return nil, common.NewAppError("CONFIG_ERROR", "nil config", common.ErrInvalidInput)
	}

	pcfg := preprocess.DefaultConfig()
	pcfg.MinSide = cfg.Preprocess.MinSide
	pcfg.DisableOrientation = cfg.Preprocess.DisableOrientation
	pre := preprocess.New(pcfg, logger.With("stage", "preprocess"))

	var images doctext.ImageReader
	rec, err := ocr.NewRecognizer(cfg.OCR, logger.With("stage", "ocr"))
	if err != nil {
		// Direct-text documents still work without a recognizer.
		logger.Warn("core.build.recognizer_unavailable", "engine", cfg.OCR.Engine, "err", err)
	} else {
		images = ocr.NewImagePipeline(pre, rec, ocr.PipelineConfig{
			MinConfidence: cfg.OCR.MinConfidence,
			LineTolerance: cfg.OCR.LineTolerance,
		}, logger.With("stage", "ocr"))
	}

	reader := doctext.New(images, doctext.FitzRasterizer{}, doctext.Config{
		Zoom:     cfg.OCR.PDFZoom,
		MaxPages: cfg.OCR.MaxPages,
	}, logger.With("stage", "doctext"))

	fx := fields.NewFromConfig(cfg.Fields, assistant, logger.With("stage", "fields"))

	return NewProcessor(logger, reader, fx, textCache), nil
}
