package preprocess

import (
	"image"
	"math"
	"sort"
)

// SkewParams configures edge detection and the line transform used for skew
// and orientation estimates.
type SkewParams struct {
	CannyLow       float64
	CannyHigh      float64
	HoughThreshold int
	MaxLines       int // 0 keeps every line
}

// HoughLine is a line in normal form: x*cos(theta) + y*sin(theta) = rho.
type HoughLine struct {
	Rho   float64
	Theta float64 // radians in [0, pi)
	Votes int
}

// Angle is the line direction in degrees relative to horizontal, in
// (-90, 90]. Lines sloping down to the right are positive.
func (l HoughLine) Angle() float64 {
	return l.Theta*180/math.Pi - 90
}

// Otsu returns the threshold maximising between-class variance.
func Otsu(plane []uint8) uint8 {
	var hist [256]int
	for _, v := range plane {
		hist[v]++
	}
	total := len(plane)
	if total == 0 {
		return 127
	}
	sumAll := 0.0
	for i, c := range hist {
		sumAll += float64(i * c)
	}

	var (
		sumB   float64
		wB     int
		best   float64
		thresh int
	)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			thresh = t
		}
	}
	return uint8(thresh)
}

// Binarize maps pixels above t to 255 and the rest to 0.
func Binarize(plane []uint8, t uint8) []uint8 {
	out := make([]uint8, len(plane))
	for i, v := range plane {
		if v > t {
			out[i] = 255
		}
	}
	return out
}

// Canny marks edge pixels (255) using 3x3 Sobel gradients with the L1 norm,
// non-maximum suppression and hysteresis between low and high.
func Canny(plane []uint8, w, h int, low, high float64) []uint8 {
	mag := make([]float64, w*h)
	dir := make([]uint8, w*h) // 0: horizontal, 1: 45, 2: vertical, 3: 135

	at := func(x, y int) float64 {
		return float64(plane[clampInt(y, 0, h-1)*w+clampInt(x, 0, w-1)])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			mag[y*w+x] = math.Abs(gx) + math.Abs(gy)

			a := math.Atan2(gy, gx) * 180 / math.Pi
			if a < 0 {
				a += 180
			}
			switch {
			case a < 22.5 || a >= 157.5:
				dir[y*w+x] = 0
			case a < 67.5:
				dir[y*w+x] = 1
			case a < 112.5:
				dir[y*w+x] = 2
			default:
				dir[y*w+x] = 3
			}
		}
	}

	const (
		none   = 0
		weak   = 1
		strong = 2
	)
	state := make([]uint8, w*h)
	var stack []int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}
			var a, b float64
			switch dir[i] {
			case 0:
				a, b = mag[i-1], mag[i+1]
			case 1:
				a, b = mag[i-w-1], mag[i+w+1]
			case 2:
				a, b = mag[i-w], mag[i+w]
			default:
				a, b = mag[i-w+1], mag[i+w-1]
			}
			if m < a || m < b {
				continue
			}
			if m > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	out := make([]uint8, w*h)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[i] != 0 {
			continue
		}
		out[i] = 255
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] != none && out[j] == 0 {
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}

// Hough runs the standard line transform (rho step 1px, theta step 1 degree)
// over an edge map and returns local maxima above threshold, strongest first.
func Hough(edges []uint8, w, h, threshold int) []HoughLine {
	const numAngle = 180
	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	numRho := 2*diag + 1

	cosT := make([]float64, numAngle)
	sinT := make([]float64, numAngle)
	for t := 0; t < numAngle; t++ {
		theta := float64(t) * math.Pi / numAngle
		cosT[t], sinT[t] = math.Cos(theta), math.Sin(theta)
	}

	// padded by one cell on every side so the maxima test needs no bounds checks
	stride := numRho + 2
	acc := make([]int, (numAngle+2)*stride)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if edges[y*w+x] == 0 {
				continue
			}
			for t := 0; t < numAngle; t++ {
				r := int(math.Round(float64(x)*cosT[t]+float64(y)*sinT[t])) + diag
				acc[(t+1)*stride+r+1]++
			}
		}
	}

	type peak struct{ idx, votes int }
	var peaks []peak
	for t := 0; t < numAngle; t++ {
		for r := 0; r < numRho; r++ {
			base := (t+1)*stride + r + 1
			v := acc[base]
			if v > threshold &&
				v > acc[base-1] && v >= acc[base+1] &&
				v > acc[base-stride] && v >= acc[base+stride] {
				peaks = append(peaks, peak{t*numRho + r, v})
			}
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool {
		if peaks[i].votes != peaks[j].votes {
			return peaks[i].votes > peaks[j].votes
		}
		return peaks[i].idx < peaks[j].idx
	})

	lines := make([]HoughLine, len(peaks))
	for i, p := range peaks {
		t, r := p.idx/numRho, p.idx%numRho
		lines[i] = HoughLine{
			Rho:   float64(r - diag),
			Theta: float64(t) * math.Pi / numAngle,
			Votes: p.votes,
		}
	}
	return lines
}

// DetectLines runs Otsu binarization, Canny and Hough over img.
func DetectLines(img *image.NRGBA, p SkewParams) []HoughLine {
	plane, w, h := gray(img)
	if w < 3 || h < 3 {
		return nil
	}
	bin := Binarize(plane, Otsu(plane))
	edges := Canny(bin, w, h, p.CannyLow, p.CannyHigh)
	lines := Hough(edges, w, h, p.HoughThreshold)
	if p.MaxLines > 0 && len(lines) > p.MaxLines {
		lines = lines[:p.MaxLines]
	}
	return lines
}

// EstimateSkew returns the median angle of the strongest lines that lie
// within 45 degrees of horizontal. ok is false when no such line exists.
func EstimateSkew(img *image.NRGBA, p SkewParams) (angle float64, ok bool) {
	var angles []float64
	for _, l := range DetectLines(img, p) {
		if a := l.Angle(); a > -45 && a < 45 {
			angles = append(angles, a)
		}
	}
	if len(angles) == 0 {
		return 0, false
	}
	return median(angles), true
}

func median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
