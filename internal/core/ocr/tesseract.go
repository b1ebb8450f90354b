package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	PSM         int // 6 suits a uniform block of text
	OEM         int // 0 keeps the engine default
	TempDir     string
}

// Tesseract drives the tesseract CLI in TSV mode and returns word fragments.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg TesseractConfig, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = execRunner{}
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]Fragment, error) {
	f, err := os.CreateTemp(t.cfg.TempDir, "ticket-ocr-*.png")
	if err != nil {
		return nil, common.WrapError(err, "tesseract temp file")
	}
	path := f.Name()
	defer os.Remove(path)

	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return nil, common.WrapError(err, "tesseract encode")
	}
	if err := f.Close(); err != nil {
		return nil, common.WrapError(err, "tesseract temp file")
	}

	args := []string{path, "stdout", "-l", t.cfg.Lang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, t.logger, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, common.NewAppError("OCR_UNAVAILABLE", "tesseract binary not found", common.ErrUnavailable)
		}
		return nil, fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	frags := ParseTSV(out)
	SortFragments(frags)
	t.logger.Debug("ocr.tesseract.ok", "fragments", len(frags))
	return frags, nil
}

// ParseTSV reads tesseract's TSV output and keeps word-level rows (level 5)
// that carry text and a confidence. Confidences are scaled to [0,1].
func ParseTSV(data []byte) []Fragment {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) == 0 {
		return nil
	}
	col := map[string]int{}
	for i, name := range strings.Split(lines[0], "\t") {
		col[strings.TrimSpace(name)] = i
	}
	need := []string{"level", "left", "top", "width", "height", "conf", "text"}
	for _, n := range need {
		if _, ok := col[n]; !ok {
			return nil
		}
	}

	var out []Fragment
	for _, ln := range lines[1:] {
		if ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) <= col["text"] {
			continue
		}
		if cols[col["level"]] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[col["text"]])
		if text == "" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[col["conf"]], 64)
		if err != nil || conf < 0 {
			continue
		}
		left, _ := strconv.ParseFloat(cols[col["left"]], 64)
		top, _ := strconv.ParseFloat(cols[col["top"]], 64)
		width, _ := strconv.ParseFloat(cols[col["width"]], 64)
		height, _ := strconv.ParseFloat(cols[col["height"]], 64)
		out = append(out, Fragment{
			Text:       text,
			Confidence: min(conf/100, 1),
			Box:        BBox{X1: left, Y1: top, X2: left + width, Y2: top + height},
		})
	}
	return out
}
