package mrz

import (
	"image"

	"github.com/solivar/docintake/internal/imaging"
)

// Band proposal thresholds, tuned for OCR-B strips on card scans: a zone
// row is mostly white with a steady run of dark glyphs, so its dark-pixel
// density sits well above background noise without approaching solid ink.
const (
	darkLuma    = 100
	rowDensity  = 0.08
	maxProposed = 2
	nearStart   = 0.05
)

// proposeBands scans an image (the lower half of a page) for horizontal
// strips of dense dark ink and returns their top offsets as fractions of
// the image height. The fixed hypothesis set covers well-framed scans;
// proposals catch zones sitting outside it, as on cropped or skewed scans.
func proposeBands(img image.Image) []float64 {
	g := imaging.ToGray(img)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h < 10 {
		return nil
	}

	// Per-row dark-pixel density.
	inked := make([]bool, h)
	for y := 0; y < h; y++ {
		dark := 0
		for x := 0; x < w; x++ {
			if g.GrayAt(b.Min.X+x, b.Min.Y+y).Y < darkLuma {
				dark++
			}
		}
		density := float64(dark) / float64(w)
		inked[y] = density >= rowDensity && density <= 0.6
	}

	// Group consecutive inked rows into strips and keep those shaped like a
	// one-or-two-line zone.
	minStrip, maxStrip := h/50, h/4
	if minStrip < 2 {
		minStrip = 2
	}

	var fracs []float64
	start := -1
	for y := 0; y <= h; y++ {
		if y < h && inked[y] {
			if start < 0 {
				start = y
			}
			continue
		}
		if start >= 0 {
			if run := y - start; run >= minStrip && run <= maxStrip {
				top := start - minStrip
				if top < 0 {
					top = 0
				}
				fracs = append(fracs, float64(top)/float64(h))
			}
			start = -1
		}
	}

	// Drop proposals the fixed set already covers, and keep only the first
	// few: every extra band costs four OCR passes per variant set.
	var out []float64
	for _, f := range fracs {
		if f >= 1 || nearAny(f, bandStarts) || nearAny(f, out) {
			continue
		}
		out = append(out, f)
		if len(out) == maxProposed {
			break
		}
	}
	return out
}

func nearAny(f float64, set []float64) bool {
	for _, s := range set {
		d := f - s
		if d < 0 {
			d = -d
		}
		if d < nearStart {
			return true
		}
	}
	return false
}
