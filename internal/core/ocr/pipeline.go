package ocr

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/ticket-analyzer/internal/core/preprocess"
)

type PipelineConfig struct {
	MinConfidence float64 // fragments below this are dropped before grouping
	LineTolerance float64
}

// ExtractionResult is the text recovered from one image.
type ExtractionResult struct {
	Text          string
	Lines         []Line
	Fragments     int // as returned by the recognizer
	Kept          int // after the confidence floor
	OCRConfidence float64
	Confidence    float64 // OCR confidence blended with text heuristics
	Engine        string
	Preprocess    []preprocess.StepReport
	Duration      time.Duration
}

// ImagePipeline glues preprocessing, recognition and line reconstruction.
type ImagePipeline struct {
	pre    *preprocess.Preprocessor
	rec    Recognizer
	cfg    PipelineConfig
	logger *slog.Logger
}

func NewImagePipeline(pre *preprocess.Preprocessor, rec Recognizer, cfg PipelineConfig, logger *slog.Logger) *ImagePipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if pre == nil {
		pre = preprocess.New(preprocess.Config{}, logger)
	}
	if cfg.MinConfidence < 0 {
		cfg.MinConfidence = 0
	}
	if cfg.LineTolerance <= 0 {
		cfg.LineTolerance = DefaultLineTolerance
	}
	return &ImagePipeline{pre: pre, rec: rec, cfg: cfg, logger: logger}
}

// Run decodes and recognizes raw image bytes.
func (p *ImagePipeline) Run(ctx context.Context, data []byte) (ExtractionResult, error) {
	start := time.Now()
	prep, err := p.pre.Preprocess(ctx, data)
	if err != nil {
		return ExtractionResult{}, err
	}
	return p.recognize(ctx, prep, start)
}

// RunImage recognizes an already decoded image, such as a rasterized PDF page.
func (p *ImagePipeline) RunImage(ctx context.Context, img image.Image) (ExtractionResult, error) {
	start := time.Now()
	prep, err := p.pre.PreprocessImage(ctx, img)
	if err != nil {
		return ExtractionResult{}, err
	}
	return p.recognize(ctx, prep, start)
}

func (p *ImagePipeline) recognize(ctx context.Context, prep preprocess.Result, start time.Time) (ExtractionResult, error) {
	frags, err := p.rec.Recognize(ctx, prep.Image)
	if err != nil {
		p.logger.Error("ocr.recognize.failed", "engine", p.rec.Name(), "err", err)
		return ExtractionResult{Engine: p.rec.Name(), Preprocess: prep.Steps}, err
	}

	kept := FilterConfidence(frags, p.cfg.MinConfidence)
	SortFragments(kept)
	lines := Group(kept, p.cfg.LineTolerance)
	text := Normalize(JoinLines(lines))

	var sum float64
	for _, f := range kept {
		sum += f.Confidence
	}
	var mean float64
	if len(kept) > 0 {
		mean = sum / float64(len(kept))
	}

	res := ExtractionResult{
		Text:          text,
		Lines:         lines,
		Fragments:     len(frags),
		Kept:          len(kept),
		OCRConfidence: mean,
		Confidence:    blendConfidence(mean, text),
		Engine:        p.rec.Name(),
		Preprocess:    prep.Steps,
		Duration:      time.Since(start),
	}
	p.logger.Info("ocr.pipeline.ok",
		"engine", res.Engine,
		"fragments", res.Fragments,
		"kept", res.Kept,
		"lines", len(lines),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
