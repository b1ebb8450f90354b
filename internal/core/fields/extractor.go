package fields

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/ocr"
)

// Extractor is the single entry point for field extraction. The strategy is
// chosen by configuration.
type Extractor struct {
	strategy Strategy
	logger   *slog.Logger
}

func NewExtractor(strategy Strategy, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if strategy == nil {
		strategy = Heuristic{}
	}
	return &Extractor{strategy: strategy, logger: logger}
}

// NewFromConfig picks the assisted strategy when configured and an assistant
// is available, and the heuristic one otherwise.
func NewFromConfig(cfg common.FieldsConfig, assistant FieldAssistant, logger *slog.Logger) *Extractor {
	if cfg.Strategy == "assisted" && assistant != nil {
		return NewExtractor(NewAssisted(assistant, logger), logger)
	}
	return NewExtractor(Heuristic{}, logger)
}

func (e *Extractor) StrategyName() string { return e.strategy.Name() }

// Extract never fails: strategy errors are logged and the record the
// strategy returned (at worst the heuristic one) is used.
func (e *Extractor) Extract(ctx context.Context, text string) (out TicketInfo) {
	logger := common.LoggerFrom(ctx, e.logger)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("fields.extract.panic", "strategy", e.strategy.Name(), "panic", fmt.Sprint(r))
			out = ParseText(text)
		}
	}()

	t, err := e.strategy.Extract(ctx, text)
	if err != nil {
		logger.Warn("fields.extract.degraded", "strategy", e.strategy.Name(), "err", err)
	}
	t.RawText = TruncateRaw(text)
	logger.Debug("fields.extract.ok",
		"strategy", e.strategy.Name(),
		"method", t.ExtractionMethod,
		"category", t.Category,
		"has_amount", t.Amount != nil,
		"confidence", t.Confidence,
	)
	return t
}

// ExtractLines joins reconstructed lines and extracts from the result.
func (e *Extractor) ExtractLines(ctx context.Context, lines []ocr.Line) TicketInfo {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, l.Text)
	}
	return e.Extract(ctx, strings.Join(parts, "\n"))
}
