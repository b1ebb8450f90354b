package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// Decode turns raw bytes into an opaque RGB image. HEIC/HEIF containers are
// detected by their ftyp brand; everything else goes through image.Decode.
func Decode(data []byte) (*image.NRGBA, string, error) {
	if len(data) == 0 {
		return nil, "", common.NewAppError("DECODE_ERROR", "empty input", common.ErrDecode)
	}

	var (
		img    image.Image
		format string
		err    error
	)
	if IsHEIC(data) {
		img, err = heic.Decode(bytes.NewReader(data))
		format = "heic"
	} else {
		img, format, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, "", common.NewAppError("DECODE_ERROR", "not a decodable image", common.ErrDecode)
	}
	if img.Bounds().Empty() {
		return nil, format, common.NewAppError("DECODE_ERROR", "image has no pixels", common.ErrDecode)
	}
	return flatten(img), format, nil
}

// IsHEIC reports whether data starts with an ISO-BMFF ftyp box carrying a
// HEIC/HEIF brand.
func IsHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1", "hevc":
		return true
	}
	return false
}

// flatten composites img onto white and returns a zero-origin NRGBA with
// every alpha value at 255.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && opaque(n) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func opaque(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// gray returns the luminance plane of img as a row-major byte slice.
func gray(img *image.NRGBA) ([]uint8, int, int) {
	g := imaging.Grayscale(img)
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w*4]
		for x := 0; x < w; x++ {
			out[y*w+x] = row[x*4]
		}
	}
	return out, w, h
}
