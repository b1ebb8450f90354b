package doctext

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
)

// Rasterizer renders PDF pages to images for OCR.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, zoom float64, maxPages int) ([]image.Image, error)
}

// pdfBaseDPI is the PDF user-space resolution; zoom 2 renders at 144 DPI.
const pdfBaseDPI = 72

// FitzRasterizer renders pages with MuPDF.
type FitzRasterizer struct{}

func (FitzRasterizer) Rasterize(ctx context.Context, data []byte, zoom float64, maxPages int) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", common.ErrDecode, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	out := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		img, err := doc.ImageDPI(i, pdfBaseDPI*zoom)
		if err != nil {
			return out, fmt.Errorf("%w: render page %d: %v", common.ErrDecode, i+1, err)
		}
		out = append(out, img)
	}
	return out, nil
}
