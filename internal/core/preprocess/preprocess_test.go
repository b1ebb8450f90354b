package preprocess

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// textLike draws dark horizontal bars on white, roughly like printed lines.
func textLike(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i++ {
		img.Pix[i] = 0xff
	}
	for y := 60; y+8 < h-60; y += 40 {
		for dy := 0; dy < 8; dy++ {
			for x := 100; x < w-100; x++ {
				img.SetNRGBA(x, y+dy, color.NRGBA{A: 0xff})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEstimateSkew(t *testing.T) {
	params := SkewParams{CannyLow: 50, CannyHigh: 150, HoughThreshold: 100, MaxLines: 20}

	t.Run("level text", func(t *testing.T) {
		angle, ok := EstimateSkew(textLike(800, 600), params)
		require.True(t, ok)
		assert.InDelta(t, 0, angle, 0.5)
	})

	t.Run("two degrees", func(t *testing.T) {
		angle, ok := EstimateSkew(Rotate(textLike(800, 600), 2), params)
		require.True(t, ok)
		assert.InDelta(t, 2, angle, 0.6)
	})

	t.Run("blank page", func(t *testing.T) {
		blank := image.NewNRGBA(image.Rect(0, 0, 200, 200))
		_, ok := EstimateSkew(blank, params)
		assert.False(t, ok)
	})
}

func TestPreprocessSkewThreshold(t *testing.T) {
	p := New(Config{}, nil)

	small, err := p.Preprocess(context.Background(), encodePNG(t, Rotate(textLike(800, 600), 0.3)))
	require.NoError(t, err)
	assert.False(t, small.Rotated, "0.3 degrees is below the rotation threshold")

	large, err := p.Preprocess(context.Background(), encodePNG(t, Rotate(textLike(800, 600), 2.0)))
	require.NoError(t, err)
	assert.True(t, large.Rotated)
	assert.Contains(t, large.Applied(), "deskew")
}

func TestPreprocessOutput(t *testing.T) {
	p := New(Config{}, nil)
	res, err := p.Preprocess(context.Background(), encodePNG(t, textLike(800, 600)))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Orientation)
	assert.GreaterOrEqual(t, min(res.Width, res.Height), 1000)
	assert.Greater(t, res.Scale, 1.0)
	assert.Equal(t, res.Width, res.Image.Bounds().Dx())
	for i := 3; i < len(res.Image.Pix); i += 4 {
		if res.Image.Pix[i] != 0xff {
			t.Fatalf("pixel %d is not opaque", i/4)
		}
	}
	names := make([]string, 0, len(res.Steps))
	for _, s := range res.Steps {
		names = append(names, s.Name)
		assert.NoError(t, s.Err)
	}
	assert.Equal(t, []string{"line_orientation", "border_crop", "bilateral", "clahe", "unsharp", "deskew", "upscale"}, names)
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	p := New(Config{}, nil)
	_, err := p.Preprocess(context.Background(), []byte("definitely not an image"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDecode))

	_, err = p.Preprocess(context.Background(), nil)
	assert.True(t, errors.Is(err, common.ErrDecode))
}

func TestPreprocessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}, nil).Preprocess(ctx, encodePNG(t, textLike(200, 200)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepRecoversPanics(t *testing.T) {
	p := New(Config{}, nil)
	in := textLike(50, 50)
	var res Result
	out := p.step(&res, "boom", in, func(*image.NRGBA) (*image.NRGBA, bool, error) {
		panic("kaboom")
	})
	assert.Same(t, in, out)
	require.Len(t, res.Steps, 1)
	assert.False(t, res.Steps[0].Applied)
	assert.ErrorContains(t, res.Steps[0].Err, "kaboom")
}

func TestCropBorder(t *testing.T) {
	out, ok := CropBorder(textLike(300, 200), 50, 5)
	assert.False(t, ok, "4px border is skipped")
	assert.Equal(t, 300, out.Bounds().Dx())

	out, ok = CropBorder(textLike(600, 500), 50, 5)
	assert.True(t, ok)
	assert.Equal(t, image.Pt(580, 480), out.Bounds().Size())
}

func TestUpscale(t *testing.T) {
	out, scale := Upscale(textLike(400, 300), 1000)
	assert.InDelta(t, 1000.0/300.0, scale, 1e-9)
	assert.Equal(t, image.Pt(1333, 1000), out.Bounds().Size())

	big := textLike(1200, 1100)
	out, scale = Upscale(big, 1000)
	assert.Equal(t, 1.0, scale)
	assert.Same(t, big, out)
}

func TestRotateExpandsCanvas(t *testing.T) {
	out := Rotate(textLike(100, 50), 90)
	assert.Equal(t, image.Pt(50, 100), out.Bounds().Size())

	out = Rotate(textLike(100, 100), 45)
	assert.InDelta(t, 142, out.Bounds().Dx(), 1)
}

func TestApplyOrientation(t *testing.T) {
	red := color.NRGBA{R: 0xff, A: 0xff}
	blue := color.NRGBA{B: 0xff, A: 0xff}
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, red)
	src.SetNRGBA(1, 0, blue)

	out, deg := ApplyOrientation(src, 6)
	assert.Equal(t, 270, deg)
	assert.Equal(t, image.Pt(1, 2), out.Bounds().Size())
	assert.Equal(t, red, out.NRGBAAt(0, 0))

	out, deg = ApplyOrientation(src, 8)
	assert.Equal(t, 90, deg)
	assert.Equal(t, blue, out.NRGBAAt(0, 0))

	out, deg = ApplyOrientation(src, 3)
	assert.Equal(t, 180, deg)
	assert.Equal(t, blue, out.NRGBAAt(0, 0))

	out, _ = ApplyOrientation(src, 2)
	assert.Equal(t, blue, out.NRGBAAt(0, 0))

	out, deg = ApplyOrientation(src, 1)
	assert.Equal(t, 0, deg)
	assert.Same(t, src, out)
}

func TestDetectOrientation(t *testing.T) {
	t.Run("upright pages stay put", func(t *testing.T) {
		assert.Equal(t, 0, DetectOrientation(textLike(800, 600)), "landscape")
		assert.Equal(t, 0, DetectOrientation(textLike(600, 900)), "portrait")
		assert.Equal(t, 0, DetectOrientation(Rotate(textLike(800, 600), 2)), "slightly skewed")
		assert.Equal(t, 0, DetectOrientation(Rotate(textLike(600, 900), -3)), "skewed portrait")
	})

	t.Run("upside down is not distinguishable", func(t *testing.T) {
		assert.Equal(t, 0, DetectOrientation(rotateQuarter(textLike(800, 600), 180)))
	})

	t.Run("quarter turned pages", func(t *testing.T) {
		assert.Equal(t, 90, DetectOrientation(rotateQuarter(textLike(800, 600), 90)))
		assert.Equal(t, 90, DetectOrientation(rotateQuarter(textLike(600, 900), 270)))
	})

	t.Run("blank page", func(t *testing.T) {
		assert.Equal(t, 0, DetectOrientation(image.NewNRGBA(image.Rect(0, 0, 300, 400))))
	})
}

func TestPreprocessKeepsUprightPages(t *testing.T) {
	p := New(Config{}, nil)
	pages := map[string]*image.NRGBA{
		"portrait":         textLike(600, 900),
		"skewed landscape": Rotate(textLike(800, 600), 2),
		"skewed portrait":  Rotate(textLike(600, 900), 2),
	}
	for name, page := range pages {
		t.Run(name, func(t *testing.T) {
			res, err := p.Preprocess(context.Background(), encodePNG(t, page))
			require.NoError(t, err)
			assert.Equal(t, 0, res.Orientation)
			assert.Equal(t, "none", res.OrientationSource)

			res, err = p.PreprocessImage(context.Background(), page)
			require.NoError(t, err)
			assert.Equal(t, 0, res.Orientation)
		})
	}
}

func TestPreprocessTurnsSidewaysPages(t *testing.T) {
	res, err := New(Config{}, nil).PreprocessImage(context.Background(), rotateQuarter(textLike(800, 600), 90))
	require.NoError(t, err)
	assert.Equal(t, 90, res.Orientation)
	assert.Equal(t, "lines", res.OrientationSource)
	assert.Greater(t, res.Width, res.Height)
}

func TestPreprocessLevelsSkewedText(t *testing.T) {
	params := SkewParams{CannyLow: 50, CannyHigh: 150, HoughThreshold: 100, MaxLines: 20}
	res, err := New(Config{}, nil).Preprocess(context.Background(), encodePNG(t, Rotate(textLike(800, 600), 2)))
	require.NoError(t, err)
	require.True(t, res.Rotated)
	assert.InDelta(t, 2, res.SkewAngle, 0.6)

	residual, ok := EstimateSkew(res.Image, params)
	require.True(t, ok)
	assert.LessOrEqual(t, math.Abs(residual), 0.5)
}

func TestReadOrientationWithoutExif(t *testing.T) {
	_, ok := ReadOrientation(encodePNG(t, textLike(20, 20)))
	assert.False(t, ok)
}

func TestIsHEIC(t *testing.T) {
	hdr := append([]byte{0, 0, 0, 0x18}, []byte("ftypheic0000")...)
	assert.True(t, IsHEIC(hdr))
	assert.False(t, IsHEIC([]byte("\x89PNG\r\n\x1a\n0000")))
	assert.False(t, IsHEIC(nil))
}

func TestDecodeFlattensAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	out, format, err := Decode(encodePNG(t, img))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, out.NRGBAAt(1, 1))
}
