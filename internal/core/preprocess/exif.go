package preprocess

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// ReadOrientation returns the EXIF orientation tag (274) when present and
// within 1..8.
func ReadOrientation(data []byte) (int, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 0, false
	}
	return v, true
}

// ApplyOrientation undoes an EXIF orientation and returns the image together
// with the counter-clockwise rotation (0, 90, 180, 270) it involved.
func ApplyOrientation(img *image.NRGBA, orientation int) (*image.NRGBA, int) {
	switch orientation {
	case 2:
		return imaging.FlipH(img), 0
	case 3:
		return imaging.Rotate180(img), 180
	case 4:
		return imaging.FlipV(img), 0
	case 5:
		return imaging.Transpose(img), 90
	case 6:
		return imaging.Rotate270(img), 270
	case 7:
		return imaging.Transverse(img), 270
	case 8:
		return imaging.Rotate90(img), 90
	default:
		return img, 0
	}
}

// rotateQuarter rotates counter-clockwise by a multiple of 90 degrees.
func rotateQuarter(img *image.NRGBA, deg int) *image.NRGBA {
	switch ((deg % 360) + 360) % 360 {
	case 90:
		return imaging.Rotate90(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate270(img)
	default:
		return img
	}
}

// orientationMargin is how much stronger the quarter-turned reading has to be
// before an upright page is rotated.
const orientationMargin = 1.5

// DetectOrientation compares the near-horizontal Hough votes of a downscaled
// copy against the same copy turned a quarter. Text lines vote for one axis
// only, so this tells 0 from 90 but cannot tell 0 from 180; upside-down pages
// are left as they are. It returns 90 only when the turned copy wins by
// orientationMargin, otherwise 0.
func DetectOrientation(img *image.NRGBA) int {
	small := imaging.Fit(img, 400, 400, imaging.Box)
	params := SkewParams{
		CannyLow:       50,
		CannyHigh:      150,
		HoughThreshold: orientationThreshold(small.Bounds().Dx(), small.Bounds().Dy()),
	}

	upright := horizontalVotes(small, params)
	turned := horizontalVotes(rotateQuarter(small, 90), params)
	if turned > 0 && float64(turned) > float64(upright)*orientationMargin {
		return 90
	}
	return 0
}

// horizontalVotes sums the accumulator votes of lines within 10 degrees of
// horizontal.
func horizontalVotes(img *image.NRGBA, params SkewParams) int {
	total := 0
	for _, l := range DetectLines(img, params) {
		if a := l.Angle(); a >= -10 && a <= 10 {
			total += l.Votes
		}
	}
	return total
}

func orientationThreshold(w, h int) int {
	t := min(w, h) / 4
	if t < 30 {
		t = 30
	}
	return t
}
