package cv

import (
	"image"
	"math"
)

// MatchResult holds the outcome of one template search.
type MatchResult struct {
	Found      bool
	Location   image.Point
	Confidence float64
}

// Method selects the template matching algorithm.
type Method int

const (
	// MethodSSD scores by sum of squared differences (fast).
	MethodSSD Method = iota
	// MethodNCC scores by normalized cross-correlation (robust to
	// brightness shifts, slower). The Remote's status widgets change
	// brightness as the camera works, so readiness matching uses NCC.
	MethodNCC
)

// MatchConfig configures a template search.
type MatchConfig struct {
	Method       Method
	Threshold    float64 // 0.0-1.0, higher is stricter
	SearchRegion *image.Rectangle
}

// DefaultMatchConfig returns the settings used when none are supplied.
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{Method: MethodNCC, Threshold: 0.9}
}

// FindTemplate locates needle within haystack, returning the best-scoring
// position. Found is set only when the best score reaches the threshold;
// Confidence always carries the best score so callers can apply their own
// cutoffs.
func FindTemplate(haystack, needle *image.RGBA, config *MatchConfig) *MatchResult {
	if config == nil {
		config = DefaultMatchConfig()
	}

	hb := haystack.Bounds()
	nb := needle.Bounds()
	nw, nh := nb.Dx(), nb.Dy()

	if nw > hb.Dx() || nh > hb.Dy() {
		return &MatchResult{}
	}

	search := hb
	if config.SearchRegion != nil {
		search = config.SearchRegion.Intersect(hb)
		if search.Empty() {
			return &MatchResult{}
		}
	}

	maxY := search.Max.Y - nh
	maxX := search.Max.X - nw
	if maxY < search.Min.Y || maxX < search.Min.X {
		return &MatchResult{}
	}

	best := &MatchResult{}
	for y := search.Min.Y; y <= maxY; y++ {
		for x := search.Min.X; x <= maxX; x++ {
			score := scoreAt(haystack, needle, x, y, config.Method)
			if score > best.Confidence {
				best.Confidence = score
				best.Location = image.Point{X: x, Y: y}
			}
		}
	}
	best.Found = best.Confidence >= config.Threshold
	return best
}

func scoreAt(haystack, needle *image.RGBA, x, y int, method Method) float64 {
	nb := needle.Bounds()
	w, h := nb.Dx(), nb.Dy()
	if method == MethodNCC {
		return scoreNCC(haystack, needle, x, y, w, h)
	}
	return scoreSSD(haystack, needle, x, y, w, h)
}

func scoreSSD(haystack, needle *image.RGBA, x, y, w, h int) float64 {
	var ssd uint64
	for ny := 0; ny < h; ny++ {
		for nx := 0; nx < w; nx++ {
			hi := (y+ny)*haystack.Stride + (x+nx)*4
			ni := ny*needle.Stride + nx*4
			dr := int(haystack.Pix[hi]) - int(needle.Pix[ni])
			dg := int(haystack.Pix[hi+1]) - int(needle.Pix[ni+1])
			db := int(haystack.Pix[hi+2]) - int(needle.Pix[ni+2])
			ssd += uint64(dr*dr + dg*dg + db*db)
		}
	}
	maxSSD := float64(w * h * 3 * 255 * 255)
	return 1.0 - float64(ssd)/maxSSD
}

func scoreNCC(haystack, needle *image.RGBA, x, y, w, h int) float64 {
	var sumH, sumN, sumHN, sumHH, sumNN float64
	count := float64(w * h * 3)

	for ny := 0; ny < h; ny++ {
		for nx := 0; nx < w; nx++ {
			hi := (y+ny)*haystack.Stride + (x+nx)*4
			ni := ny*needle.Stride + nx*4
			for c := 0; c < 3; c++ {
				hv := float64(haystack.Pix[hi+c])
				nv := float64(needle.Pix[ni+c])
				sumH += hv
				sumN += nv
				sumHN += hv * nv
				sumHH += hv * hv
				sumNN += nv * nv
			}
		}
	}

	numerator := sumHN - sumH*sumN/count
	denomH := math.Sqrt(sumHH - sumH*sumH/count)
	denomN := math.Sqrt(sumNN - sumN*sumN/count)
	if denomH == 0 || denomN == 0 {
		// Flat regions correlate with nothing; a flat needle over an
		// equally flat region is a perfect match.
		if denomH == denomN && equalRegion(haystack, needle, x, y, w, h) {
			return 1.0
		}
		return 0
	}

	correlation := numerator / (denomH * denomN)
	return (correlation + 1.0) / 2.0
}

func equalRegion(haystack, needle *image.RGBA, x, y, w, h int) bool {
	for ny := 0; ny < h; ny++ {
		for nx := 0; nx < w; nx++ {
			hi := (y+ny)*haystack.Stride + (x+nx)*4
			ni := ny*needle.Stride + nx*4
			for c := 0; c < 3; c++ {
				if haystack.Pix[hi+c] != needle.Pix[ni+c] {
					return false
				}
			}
		}
	}
	return true
}

// MaxBrightness returns the brightest luminance value (0-255) inside rect.
// The camera-ready indicator lights up its matched region, so the peak
// luminance is the readiness signal.
func MaxBrightness(img *image.RGBA, rect image.Rectangle) int {
	rect = rect.Intersect(img.Bounds())
	max := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			i := y*img.Stride + x*4
			lum := (int(img.Pix[i])*299 + int(img.Pix[i+1])*587 + int(img.Pix[i+2])*114) / 1000
			if lum > max {
				max = lum
			}
		}
	}
	return max
}
