package ocr

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// NewRecognizer builds the configured engine, wrapped in a Fallback when a
// second engine is configured.
func NewRecognizer(cfg common.OCRConfig, logger *slog.Logger) (Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	primary, err := newEngine(cfg.Engine, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == "" || cfg.Fallback == cfg.Engine {
		return primary, nil
	}
	secondary, err := newEngine(cfg.Fallback, cfg, logger)
	if err != nil {
		logger.Warn("ocr.fallback.unavailable", "engine", cfg.Fallback, "err", err)
		return primary, nil
	}
	return &Fallback{Primary: primary, Secondary: secondary, Logger: logger}, nil
}

func newEngine(name string, cfg common.OCRConfig, logger *slog.Logger) (Recognizer, error) {
	tc := TesseractConfig{
		Binary:      cfg.Tesseract,
		Lang:        cfg.TesseractLang,
		TessdataDir: cfg.TessdataDir,
		PSM:         cfg.PSM,
	}
	switch name {
	case "", "tesseract":
		return NewTesseract(tc, nil, logger), nil
	case "gosseract":
		g, err := NewGosseract(tc, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown OCR engine %q", name), common.ErrInvalidInput)
	}
}
