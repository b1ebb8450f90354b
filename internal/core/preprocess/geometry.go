package preprocess

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// CropBorder trims min(h,w)/divisor pixels from every edge. It reports false
// and returns img untouched when that border is not larger than minBorder.
func CropBorder(img *image.NRGBA, divisor, minBorder int) (*image.NRGBA, bool) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if divisor <= 0 {
		return img, false
	}
	border := min(w, h) / divisor
	if border <= minBorder || 2*border >= w || 2*border >= h {
		return img, false
	}
	return imaging.Crop(img, image.Rect(border, border, w-border, h-border)), true
}

// Upscale enlarges img with a Lanczos filter so its shorter side reaches
// minSide. The returned scale is 1 when nothing was done.
func Upscale(img *image.NRGBA, minSide int) (*image.NRGBA, float64) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	short := min(w, h)
	if short <= 0 || short >= minSide {
		return img, 1
	}
	scale := float64(minSide) / float64(short)
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return imaging.Resize(img, nw, nh, imaging.Lanczos), scale
}

// Rotate turns img by deg degrees in image coordinates (positive is clockwise
// on screen) onto an expanded canvas. Samples are bicubic and pixels outside
// the source replicate the nearest edge.
func Rotate(img image.Image, deg float64) *image.NRGBA {
	src := flatten(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if deg == 0 {
		return imaging.Clone(src)
	}

	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	nw := int(math.Ceil(math.Abs(float64(w)*cos) + math.Abs(float64(h)*sin) - 1e-9))
	nh := int(math.Ceil(math.Abs(float64(w)*sin) + math.Abs(float64(h)*cos) - 1e-9))
	nw, nh = max(nw, 1), max(nh, 1)

	cx, cy := float64(w)/2, float64(h)/2
	ncx, ncy := float64(nw)/2, float64(nh)/2
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	parallel(nh, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			dy := float64(y) + 0.5 - ncy
			for x := 0; x < nw; x++ {
				dx := float64(x) + 0.5 - ncx
				sx := cos*dx + sin*dy + cx - 0.5
				sy := -sin*dx + cos*dy + cy - 0.5
				i := y*dst.Stride + x*4
				bicubic(src, w, h, sx, sy, dst.Pix[i:i+4])
			}
		}
	})
	return dst
}

// cubic is the Keys kernel with a = -0.75.
func cubic(t float64) float64 {
	const a = -0.75
	t = math.Abs(t)
	switch {
	case t <= 1:
		return (a+2)*t*t*t - (a+3)*t*t + 1
	case t < 2:
		return a*t*t*t - 5*a*t*t + 8*a*t - 4*a
	default:
		return 0
	}
}

func bicubic(src *image.NRGBA, w, h int, sx, sy float64, out []uint8) {
	x0 := int(math.Floor(sx))
	y0 := int(math.Floor(sy))
	fx, fy := sx-float64(x0), sy-float64(y0)

	var wx, wy [4]float64
	for k := 0; k < 4; k++ {
		wx[k] = cubic(fx - float64(k-1))
		wy[k] = cubic(fy - float64(k-1))
	}

	var acc [3]float64
	for j := 0; j < 4; j++ {
		py := clampInt(y0+j-1, 0, h-1)
		for i := 0; i < 4; i++ {
			px := clampInt(x0+i-1, 0, w-1)
			wt := wx[i] * wy[j]
			p := py*src.Stride + px*4
			acc[0] += wt * float64(src.Pix[p])
			acc[1] += wt * float64(src.Pix[p+1])
			acc[2] += wt * float64(src.Pix[p+2])
		}
	}
	out[0], out[1], out[2], out[3] = clamp8(acc[0]), clamp8(acc[1]), clamp8(acc[2]), 0xff
}
