package preprocess

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// Config tunes the cleanup chain applied before text recognition.
type Config struct {
	MinSide            int     // upscale when the shorter side is below this
	BorderDivisor      int     // crop min(h,w)/BorderDivisor px per edge
	MinBorder          int     // skip the crop when the border is this small
	BilateralDiameter  int
	SigmaColor         float64
	SigmaSpace         float64
	ClipLimit          float64
	TileGrid           int
	UnsharpSigma       float64
	UnsharpAmount      float64 // out = amount*orig - (amount-1)*blur
	CannyLow           float64
	CannyHigh          float64
	HoughThreshold     int
	MaxSkewLines       int
	SkewThreshold      float64 // degrees
	DisableOrientation bool
}

// DefaultConfig mirrors the values the recognizers were tuned against.
func DefaultConfig() Config {
	return Config{
		MinSide:           1000,
		BorderDivisor:     50,
		MinBorder:         5,
		BilateralDiameter: 7,
		SigmaColor:        50,
		SigmaSpace:        50,
		ClipLimit:         2.0,
		TileGrid:          8,
		UnsharpSigma:      1.0,
		UnsharpAmount:     1.5,
		CannyLow:          50,
		CannyHigh:         150,
		HoughThreshold:    100,
		MaxSkewLines:      20,
		SkewThreshold:     0.5,
	}
}

// StepReport records what happened to one step of the chain.
type StepReport struct {
	Name    string
	Applied bool
	Err     error
	Elapsed time.Duration
}

// Result is the preprocessed image plus a trace of the chain.
type Result struct {
	Image             *image.NRGBA
	Width             int
	Height            int
	Orientation       int    // degrees of counter-clockwise correction applied
	OrientationSource string // "exif", "lines" or "none"
	SkewAngle         float64
	Rotated           bool
	Scale             float64
	Steps             []StepReport
}

// Applied lists the names of the steps that changed the image.
func (r Result) Applied() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Applied {
			out = append(out, s.Name)
		}
	}
	return out
}

// Preprocessor runs the fixed cleanup chain. It holds no mutable state and is
// safe for concurrent use.
type Preprocessor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a preprocessor. Zero-valued fields in cfg take their defaults.
func New(cfg Config, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MinSide <= 0 {
		cfg.MinSide = def.MinSide
	}
	if cfg.BorderDivisor <= 0 {
		cfg.BorderDivisor = def.BorderDivisor
	}
	if cfg.MinBorder <= 0 {
		cfg.MinBorder = def.MinBorder
	}
	if cfg.BilateralDiameter <= 0 {
		cfg.BilateralDiameter = def.BilateralDiameter
	}
	if cfg.SigmaColor <= 0 {
		cfg.SigmaColor = def.SigmaColor
	}
	if cfg.SigmaSpace <= 0 {
		cfg.SigmaSpace = def.SigmaSpace
	}
	if cfg.ClipLimit <= 0 {
		cfg.ClipLimit = def.ClipLimit
	}
	if cfg.TileGrid <= 0 {
		cfg.TileGrid = def.TileGrid
	}
	if cfg.UnsharpSigma <= 0 {
		cfg.UnsharpSigma = def.UnsharpSigma
	}
	if cfg.UnsharpAmount <= 0 {
		cfg.UnsharpAmount = def.UnsharpAmount
	}
	if cfg.CannyLow <= 0 {
		cfg.CannyLow = def.CannyLow
	}
	if cfg.CannyHigh <= 0 {
		cfg.CannyHigh = def.CannyHigh
	}
	if cfg.HoughThreshold <= 0 {
		cfg.HoughThreshold = def.HoughThreshold
	}
	if cfg.MaxSkewLines <= 0 {
		cfg.MaxSkewLines = def.MaxSkewLines
	}
	if cfg.SkewThreshold <= 0 {
		cfg.SkewThreshold = def.SkewThreshold
	}
	return &Preprocessor{cfg: cfg, logger: logger}
}

// Preprocess decodes data and runs the chain. The only error is an
// undecodable input (or a cancelled context); individual step failures are
// logged, recorded in Result.Steps and skipped.
func (p *Preprocessor) Preprocess(ctx context.Context, data []byte) (Result, error) {
	img, format, err := Decode(data)
	if err != nil {
		p.logger.Warn("preprocess.decode.failed", "bytes", len(data), "err", err)
		return Result{}, err
	}
	p.logger.Debug("preprocess.decode.ok", "format", format, "w", img.Bounds().Dx(), "h", img.Bounds().Dy())

	res := Result{OrientationSource: "none", Scale: 1}
	cur := img

	if o, ok := ReadOrientation(data); ok && o != 1 {
		cur = p.step(&res, "exif_orientation", cur, func(in *image.NRGBA) (*image.NRGBA, bool, error) {
			out, deg := ApplyOrientation(in, o)
			res.Orientation = deg
			res.OrientationSource = "exif"
			return out, true, nil
		})
	} else if !ok && !p.cfg.DisableOrientation {
		cur = p.step(&res, "line_orientation", cur, func(in *image.NRGBA) (*image.NRGBA, bool, error) {
			deg := DetectOrientation(in)
			if deg == 0 {
				return in, false, nil
			}
			res.Orientation = deg
			res.OrientationSource = "lines"
			return rotateQuarter(in, deg), true, nil
		})
	}

	return p.run(ctx, cur, res)
}

// PreprocessImage runs the chain on an already decoded image (rasterized PDF
// pages). No EXIF data is available, so orientation falls back to line scoring.
func (p *Preprocessor) PreprocessImage(ctx context.Context, img image.Image) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, common.NewAppError("PREPROCESS_ERROR", "empty image", common.ErrDecode)
	}
	res := Result{OrientationSource: "none", Scale: 1}
	cur := flatten(img)
	if !p.cfg.DisableOrientation {
		cur = p.step(&res, "line_orientation", cur, func(in *image.NRGBA) (*image.NRGBA, bool, error) {
			deg := DetectOrientation(in)
			if deg == 0 {
				return in, false, nil
			}
			res.Orientation = deg
			res.OrientationSource = "lines"
			return rotateQuarter(in, deg), true, nil
		})
	}
	return p.run(ctx, cur, res)
}

func (p *Preprocessor) run(ctx context.Context, cur *image.NRGBA, res Result) (Result, error) {
	steps := []struct {
		name string
		fn   func(*image.NRGBA) (*image.NRGBA, bool, error)
	}{
		{"border_crop", func(in *image.NRGBA) (*image.NRGBA, bool, error) {
			out, ok := CropBorder(in, p.cfg.BorderDivisor, p.cfg.MinBorder)
			return out, ok, nil
		}},
		{"bilateral", func(in *image.NRGBA) (*image.NRGBA, bool, error) {
			return Bilateral(in, p.cfg.BilateralDiameter, p.cfg.SigmaColor, p.cfg.SigmaSpace), true, nil
		}},
		{"clahe", func(in *image.NRGBA) (*image.NRGBA, bool, error) {
			return CLAHE(in, p.cfg.ClipLimit, p.cfg.TileGrid), true, nil
		}},
		{"unsharp", func(in *image.NRGBA) (*image.NRGBA, bool, error) {
			return Unsharp(in, p.cfg.UnsharpSigma, p.cfg.UnsharpAmount), true, nil
		}},
		{"deskew", func(in *image.NRGBA) (*image.NRGBA, bool, error) {
			out, angle, rotated := p.deskew(in)
			res.SkewAngle = angle
			res.Rotated = rotated
			return out, rotated, nil
		}},
		{"upscale", func(in *image.NRGBA) (*image.NRGBA, bool, error) {
			out, scale := Upscale(in, p.cfg.MinSide)
			res.Scale = scale
			return out, scale != 1, nil
		}},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		cur = p.step(&res, s.name, cur, s.fn)
	}

	res.Image = cur
	res.Width = cur.Bounds().Dx()
	res.Height = cur.Bounds().Dy()
	p.logger.Debug("preprocess.ok",
		"w", res.Width, "h", res.Height,
		"orientation", res.Orientation,
		"skew", res.SkewAngle,
		"scale", res.Scale,
		"applied", res.Applied(),
	)
	return res, nil
}

// step runs fn and keeps the previous image when it fails or panics.
func (p *Preprocessor) step(res *Result, name string, in *image.NRGBA, fn func(*image.NRGBA) (*image.NRGBA, bool, error)) (out *image.NRGBA) {
	start := time.Now()
	report := StepReport{Name: name}
	out = in
	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("panic in %s: %v", name, r)
			report.Applied = false
			out = in
		}
		report.Elapsed = time.Since(start)
		if report.Err != nil {
			p.logger.Warn("preprocess.step.failed", "step", name, "err", report.Err)
		}
		res.Steps = append(res.Steps, report)
	}()

	got, applied, err := fn(in)
	if err != nil {
		report.Err = err
		return in
	}
	if got == nil || got.Bounds().Empty() {
		report.Err = fmt.Errorf("%s produced an empty image", name)
		return in
	}
	report.Applied = applied
	return got
}

func (p *Preprocessor) deskew(img *image.NRGBA) (*image.NRGBA, float64, bool) {
	angle, ok := EstimateSkew(img, p.skewParams())
	if !ok || math.Abs(angle) <= p.cfg.SkewThreshold {
		return img, angle, false
	}
	return Rotate(img, -angle), angle, true
}

func (p *Preprocessor) skewParams() SkewParams {
	return SkewParams{
		CannyLow:       p.cfg.CannyLow,
		CannyHigh:      p.cfg.CannyHigh,
		HoughThreshold: p.cfg.HoughThreshold,
		MaxLines:       p.cfg.MaxSkewLines,
	}
}

// Deskew estimates the dominant text angle and rotates it away when it
// exceeds threshold degrees.
func Deskew(img image.Image, threshold float64) (*image.NRGBA, float64, bool) {
	p := New(Config{SkewThreshold: threshold}, nil)
	return p.deskew(flatten(img))
}
