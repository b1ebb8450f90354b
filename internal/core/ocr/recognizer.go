package ocr

import (
	"context"
	"image"
	"log/slog"
	"math"
	"sort"
)

// Point is a polygon vertex as reported by layout-aware engines.
type Point struct {
	X, Y float64
}

// BBox is an axis-aligned box with X1 <= X2 and Y1 <= Y2.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// NewBBox returns the axis-aligned hull of a polygon.
func NewBBox(points ...Point) BBox {
	if len(points) == 0 {
		return BBox{}
	}
	b := BBox{X1: math.Inf(1), Y1: math.Inf(1), X2: math.Inf(-1), Y2: math.Inf(-1)}
	for _, p := range points {
		b.X1 = math.Min(b.X1, p.X)
		b.Y1 = math.Min(b.Y1, p.Y)
		b.X2 = math.Max(b.X2, p.X)
		b.Y2 = math.Max(b.Y2, p.Y)
	}
	return b
}

// BBoxFromRect converts an integer rectangle.
func BBoxFromRect(r image.Rectangle) BBox {
	r = r.Canon()
	return BBox{X1: float64(r.Min.X), Y1: float64(r.Min.Y), X2: float64(r.Max.X), Y2: float64(r.Max.Y)}
}

func (b BBox) CenterY() float64 { return (b.Y1 + b.Y2) / 2 }

// Fragment is one recognized span of text.
type Fragment struct {
	Text       string
	Confidence float64 // [0,1]
	Box        BBox
}

// Recognizer turns an image into positioned fragments. Implementations return
// every fragment they find, sorted by (Y1, X1); filtering is the caller's job.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) ([]Fragment, error)
}

// SortFragments orders fragments top-to-bottom, then left-to-right.
func SortFragments(frags []Fragment) {
	sort.SliceStable(frags, func(i, j int) bool {
		if frags[i].Box.Y1 != frags[j].Box.Y1 {
			return frags[i].Box.Y1 < frags[j].Box.Y1
		}
		return frags[i].Box.X1 < frags[j].Box.X1
	})
}

// Fallback tries Primary and switches to Secondary when Primary fails.
type Fallback struct {
	Primary   Recognizer
	Secondary Recognizer
	Logger    *slog.Logger
}

func (f *Fallback) Name() string {
	return f.Primary.Name() + "|" + f.Secondary.Name()
}

func (f *Fallback) Recognize(ctx context.Context, img image.Image) ([]Fragment, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	frags, err := f.Primary.Recognize(ctx, img)
	if err == nil {
		return frags, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	logger.Warn("ocr.fallback", "primary", f.Primary.Name(), "secondary", f.Secondary.Name(), "err", err)
	return f.Secondary.Recognize(ctx, img)
}
