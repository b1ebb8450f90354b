package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/cache"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/doctext"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
)

// DocumentReader turns document bytes into text. *doctext.Extractor satisfies it.
type DocumentReader interface {
	Extract(ctx context.Context, data []byte, filename string) doctext.Result
}

// TextCache stores extracted text by content hash. *cache.BoltCache satisfies it.
type TextCache interface {
	Get(ctx context.Context, key string) (cache.Entry, bool, error)
	Put(ctx context.Context, key string, e cache.Entry) error
}

// Processor coordinates text extraction then field extraction.
type Processor struct {
	logger *slog.Logger
	reader DocumentReader
	fields *fields.Extractor
	cache  TextCache
}

// NewProcessor wires the stages. cache may be nil.
func NewProcessor(logger *slog.Logger, reader DocumentReader, fx *fields.Extractor, textCache TextCache) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if fx == nil {
		fx = fields.NewExtractor(nil, logger)
	}
	return &Processor{logger: logger, reader: reader, fields: fx, cache: textCache}
}

// ProcessDocument reads one document and returns its TicketInfo. It never
// fails: unreadable documents yield a record with every field null, category
// unknown, the sentinel as raw_text and error set.
func (p *Processor) ProcessDocument(ctx context.Context, data []byte, filename string) (out fields.TicketInfo) {
	if common.RequestIDFromContext(ctx) == "" {
		ctx = common.WithRequestID(ctx, uuid.NewString())
	}
	ctx = common.WithFilename(ctx, filename)
	logger := common.LoggerFrom(ctx, p.logger)
	start := time.Now()
	fileType := FileType(filename)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("processor.panic", "panic", fmt.Sprint(r))
			out = fields.Failed(filename, fileType, doctext.Sentinel(constants.KindForExt(fileType), doctext.KindDecode, filename), fmt.Errorf("panic: %v", r))
		}
	}()

	res := p.ReadText(ctx, data, filename)
	if res.Failed() {
		logger.Warn("processor.text.failed", "reason", res.Err.Kind, "duration_ms", time.Since(start).Milliseconds())
		return fields.Failed(filename, fileType, res.Text, res.Err)
	}

	out = p.fields.Extract(ctx, res.Text)
	out.Filename = filename
	out.FileType = fileType
	logger.Info("processor.document.ok",
		"method", res.Method,
		"category", out.Category,
		"confidence", out.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// ReadText runs text extraction, consulting the cache first when one is
// configured. Cache errors are logged and ignored.
func (p *Processor) ReadText(ctx context.Context, data []byte, filename string) doctext.Result {
	logger := common.LoggerFrom(ctx, p.logger)
	var key string
	if p.cache != nil {
		key = cache.Key(data, filepath.Ext(filename))
		e, found, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("processor.cache.get_failed", "err", err)
		case found:
			logger.Debug("processor.cache.hit", "key", key)
			return doctext.Result{
				Text:       e.Text,
				Kind:       constants.KindForExt(filepath.Ext(filename)),
				Method:     e.Method,
				Pages:      e.Pages,
				Confidence: e.Confidence,
			}
		}
	}

	if p.reader == nil {
		return doctext.Result{
			Text: doctext.Sentinel(constants.KindForExt(filepath.Ext(filename)), doctext.KindRecognizerUnavailable, filename),
			Err:  &doctext.ExtractionError{Kind: doctext.KindRecognizerUnavailable, Filename: filename, Cause: common.ErrUnavailable},
		}
	}
	res := p.reader.Extract(ctx, data, filename)
	if p.cache != nil && !res.Failed() {
		err := p.cache.Put(ctx, key, cache.Entry{Text: res.Text, Method: res.Method, Pages: res.Pages, Confidence: res.Confidence})
		if err != nil {
			logger.Warn("processor.cache.put_failed", "err", err)
		}
	}
	return res
}

// FileType is the lowercased extension with its dot, as reported on TicketInfo.
func FileType(filename string) string {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if ext == "" {
		return ""
	}
	return "." + ext
}
