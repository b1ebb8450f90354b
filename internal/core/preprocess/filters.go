package preprocess

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// parallel splits [0,n) into contiguous chunks, one per CPU.
func parallel(n int, fn func(start, end int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// Bilateral is an edge-preserving smoothing filter over a circular window of
// the given diameter. Colour distance is the L1 sum over the RGB channels.
func Bilateral(img *image.NRGBA, diameter int, sigmaColor, sigmaSpace float64) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	radius := diameter / 2
	if radius < 1 {
		return imaging.Clone(img)
	}

	type offset struct {
		dx, dy int
		weight float64
	}
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	var window []offset
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if math.Sqrt(r2) > float64(radius) {
				continue
			}
			window = append(window, offset{dx, dy, math.Exp(r2 * spaceCoeff)})
		}
	}

	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	colorWeight := make([]float64, 3*256)
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	src := img.Pix
	stride := img.Stride
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	parallel(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				ci := y*stride + x*4
				r0, g0, b0 := int(src[ci]), int(src[ci+1]), int(src[ci+2])
				var sr, sg, sb, sw float64
				for _, o := range window {
					nx := clampInt(x+o.dx, 0, w-1)
					ny := clampInt(y+o.dy, 0, h-1)
					ni := ny*stride + nx*4
					r, g, b := int(src[ni]), int(src[ni+1]), int(src[ni+2])
					d := absInt(r-r0) + absInt(g-g0) + absInt(b-b0)
					wt := o.weight * colorWeight[d]
					sr += float64(r) * wt
					sg += float64(g) * wt
					sb += float64(b) * wt
					sw += wt
				}
				di := y*dst.Stride + x*4
				dst.Pix[di] = clamp8(sr / sw)
				dst.Pix[di+1] = clamp8(sg / sw)
				dst.Pix[di+2] = clamp8(sb / sw)
				dst.Pix[di+3] = 0xff
			}
		}
	})
	return dst
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// CLAHE equalizes luminance with contrast-limited adaptive histograms over a
// grid x grid tiling. Chroma is carried over unchanged.
func CLAHE(img *image.NRGBA, clipLimit float64, grid int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	tilesX, tilesY := min(grid, w), min(grid, h)
	if tilesX < 1 || tilesY < 1 {
		return imaging.Clone(img)
	}

	n := w * h
	ys := make([]uint8, n)
	cbs := make([]uint8, n)
	crs := make([]uint8, n)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			ys[y*w+x], cbs[y*w+x], crs[y*w+x] = color.RGBToYCbCr(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		}
	}

	tileW := float64(w) / float64(tilesX)
	tileH := float64(h) / float64(tilesY)
	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, x1 := int(float64(tx)*tileW), int(float64(tx+1)*tileW)
			y0, y1 := int(float64(ty)*tileH), int(float64(ty+1)*tileH)
			luts[ty*tilesX+tx] = tileLUT(ys, w, x0, x1, y0, y1, clipLimit)
		}
	}

	out := make([]uint8, n)
	parallel(h, func(r0, r1 int) {
		for y := r0; y < r1; y++ {
			fy := (float64(y)+0.5)/tileH - 0.5
			ty1 := int(math.Floor(fy))
			wy := fy - float64(ty1)
			ty2 := ty1 + 1
			ty1 = clampInt(ty1, 0, tilesY-1)
			ty2 = clampInt(ty2, 0, tilesY-1)
			for x := 0; x < w; x++ {
				fx := (float64(x)+0.5)/tileW - 0.5
				tx1 := int(math.Floor(fx))
				wx := fx - float64(tx1)
				tx2 := tx1 + 1
				tx1 = clampInt(tx1, 0, tilesX-1)
				tx2 = clampInt(tx2, 0, tilesX-1)

				v := ys[y*w+x]
				top := (1-wx)*float64(luts[ty1*tilesX+tx1][v]) + wx*float64(luts[ty1*tilesX+tx2][v])
				bot := (1-wx)*float64(luts[ty2*tilesX+tx1][v]) + wx*float64(luts[ty2*tilesX+tx2][v])
				out[y*w+x] = clamp8((1-wy)*top + wy*bot)
			}
		}
	})

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := color.YCbCrToRGB(out[y*w+x], cbs[y*w+x], crs[y*w+x])
			i := y*dst.Stride + x*4
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = r, g, b, 0xff
		}
	}
	return dst
}

// tileLUT builds the clipped, redistributed cumulative mapping for one tile.
func tileLUT(plane []uint8, stride, x0, x1, y0, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[plane[y*stride+x]]++
		}
	}
	area := (x1 - x0) * (y1 - y0)
	var lut [256]uint8
	if area <= 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	clip := int(clipLimit * float64(area) / 256)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	share := excess / 256
	residual := excess - share*256
	for i := range hist {
		hist[i] += share
	}
	if residual > 0 {
		step := max(256/residual, 1)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	scale := 255.0 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = clamp8(float64(sum) * scale)
	}
	return lut
}

// Unsharp sharpens with a gaussian blur: out = amount*orig - (amount-1)*blur.
func Unsharp(img *image.NRGBA, sigma, amount float64) *image.NRGBA {
	blur := imaging.Blur(img, sigma)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	k := amount - 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			j := y*blur.Stride + x*4
			d := y*dst.Stride + x*4
			for c := 0; c < 3; c++ {
				dst.Pix[d+c] = clamp8(amount*float64(img.Pix[i+c]) - k*float64(blur.Pix[j+c]))
			}
			dst.Pix[d+3] = 0xff
		}
	}
	return dst
}
