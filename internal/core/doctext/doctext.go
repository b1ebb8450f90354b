package doctext

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/ocr"
)

// ImageReader recognizes text in images. *ocr.ImagePipeline satisfies it.
type ImageReader interface {
	Run(ctx context.Context, data []byte) (ocr.ExtractionResult, error)
	RunImage(ctx context.Context, img image.Image) (ocr.ExtractionResult, error)
}

type Config struct {
	Zoom     float64 // PDF raster zoom; values below 2 are raised to 2
	MaxPages int     // 0 = every page
}

// Result is the text read from one document. Text is never empty: when
// extraction fails it holds a descriptive sentinel and Err says why.
type Result struct {
	Text       string
	Kind       constants.FileKind
	Method     string
	Pages      int
	Confidence float64 // mean OCR confidence, zero for direct text
	Warnings   []string
	Err        *ExtractionError
	Duration   time.Duration
}

func (r Result) Failed() bool { return r.Err != nil }

// Extractor dispatches a document to the reader for its extension.
type Extractor struct {
	images ImageReader
	raster Rasterizer
	cfg    Config
	logger *slog.Logger
}

// New builds an Extractor. images and raster may be nil; documents that need
// them then yield recognizer_unavailable / rasterize_unavailable results.
func New(images ImageReader, raster Rasterizer, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Zoom < 2 {
		cfg.Zoom = 2
	}
	if cfg.MaxPages < 0 {
		cfg.MaxPages = 0
	}
	return &Extractor{images: images, raster: raster, cfg: cfg, logger: logger}
}

// Extract reads the text of one document. It never panics and never returns
// an empty Text.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) (res Result) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(filename))
	kind := constants.KindForExt(ext)
	logger := common.LoggerFrom(ctx, e.logger).With("ext", ext, "kind", kind)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("doctext.extract.panic", "panic", fmt.Sprint(r))
			res = failure(kind, KindDecode, filename, fmt.Errorf("panic: %v", r))
		}
		res.Kind = kind
		res.Duration = time.Since(start)
		if res.Err != nil {
			logger.Warn("doctext.extract.failed", "reason", res.Err.Kind, "err", res.Err.Cause)
		} else {
			logger.Info("doctext.extract.ok", "method", res.Method, "pages", res.Pages, "chars", len(res.Text), "duration_ms", res.Duration.Milliseconds())
		}
	}()

	switch kind {
	case constants.KindImage:
		return e.extractImage(ctx, data, filename)
	case constants.KindPDF:
		return e.extractPDF(ctx, data, filename, logger)
	case constants.KindWord:
		if ext == "doc" {
			return extractDoc(data, filename)
		}
		return extractDocx(data, filename)
	case constants.KindExcel:
		if ext == "xls" {
			return failure(kind, KindUnsupported, filename, errLegacyXLS)
		}
		return extractXLSX(data, filename)
	case constants.KindText:
		return extractPlain(data, filename)
	case constants.KindRTF:
		return extractRTF(data, filename)
	default:
		return extractUnknown(data, filename, ext)
	}
}

// ExtractText returns only the text (or sentinel) of Extract.
func (e *Extractor) ExtractText(ctx context.Context, data []byte, filename string) string {
	return e.Extract(ctx, data, filename).Text
}

func (e *Extractor) extractImage(ctx context.Context, data []byte, filename string) Result {
	if e.images == nil {
		return failure(constants.KindImage, KindRecognizerUnavailable, filename, errNoRecognizer)
	}
	out, err := e.images.Run(ctx, data)
	if err != nil {
		return failure(constants.KindImage, classify(err), filename, err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return failure(constants.KindImage, KindEmpty, filename, nil)
	}
	return Result{
		Text:       out.Text,
		Method:     constants.MethodImageOCR,
		Pages:      1,
		Confidence: out.Confidence,
	}
}

func direct(text, method string) Result {
	return Result{Text: text, Method: method, Pages: 1}
}
