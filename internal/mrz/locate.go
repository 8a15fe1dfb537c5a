package mrz

import (
	"image"
	"strings"

	"github.com/solivar/docintake/internal/imaging"
)

// TextOCR is the pair of specialized reads the locator needs. Both passes run
// with the MRZ character whitelist; they differ only in segmentation mode.
type TextOCR interface {
	MRZLine(img image.Image) (string, error)
	MRZBlock(img image.Image) (string, error)
}

// minUseful is the shortest trimmed read worth keeping over the alternative
// segmentation pass.
const minUseful = 10

// bandStarts are the fractional top offsets, within the lower half of the
// page, of the horizontal strips tried as MRZ candidates. Identity cards put
// the zone anywhere from just past the middle to the very bottom edge.
var bandStarts = []float64{0.55, 0.65, 0.72, 0.78}

// upscaleFactor compensates for scans where the OCR-B glyphs are too small
// for reliable recognition.
const upscaleFactor = 1.6

// variants are the geometric transforms applied to each enhanced band before
// reading. Rotations recover sideways or upside-down scans.
var variants = []struct {
	name      string
	transform func(image.Image) image.Image
}{
	{"plain", func(img image.Image) image.Image { return img }},
	{"rot90", func(img image.Image) image.Image { return imaging.Rotate90Steps(img, 1) }},
	{"rot180", func(img image.Image) image.Image { return imaging.Rotate90Steps(img, 2) }},
	{"rot270", func(img image.Image) image.Image { return imaging.Rotate90Steps(img, 3) }},
	{"upscaled", func(img image.Image) image.Image { return imaging.Upscale(img, upscaleFactor) }},
}

// Candidate is one scored MRZ read. A zero Candidate means nothing was found.
type Candidate struct {
	Text  string
	Score int
	Page  int
}

// Locator runs the multi-hypothesis MRZ search over document scans.
type Locator struct {
	ocr  TextOCR
	pats Patterns
}

// NewLocator builds a Locator reading through ocr and scoring against the
// given issuing country code ("" means COL).
func NewLocator(ocr TextOCR, country string) *Locator {
	return &Locator{ocr: ocr, pats: NewPatterns(country)}
}

// Patterns exposes the locator's compiled country patterns, so callers can
// validate and parse what Locate returns without recompiling them.
func (l *Locator) Patterns() Patterns { return l.pats }

// Locate searches a single page for its best MRZ candidate. Every band start
// in the lower half, fixed or proposed from ink density, is enhanced once,
// then read under each geometric variant; the highest-scoring non-empty read
// wins. Ties keep the earliest hypothesis, which favors upright bands over
// rotations.
func (l *Locator) Locate(img image.Image) Candidate {
	half := imaging.BottomHalf(img)
	starts := append(append([]float64(nil), bandStarts...), proposeBands(half)...)

	var best Candidate
	for _, frac := range starts {
		band := imaging.EnhanceMRZ(imaging.Band(half, frac))
		for _, v := range variants {
			text := l.read(v.transform(band))
			if text == "" {
				continue
			}
			if score := l.pats.Score(text); best.Text == "" || score > best.Score {
				best = Candidate{Text: text, Score: score}
			}
		}
	}
	return best
}

// LocatePages runs Locate over every page and keeps the best-scoring
// candidate overall, recording which page produced it.
func (l *Locator) LocatePages(pages []image.Image) Candidate {
	var best Candidate
	for i, page := range pages {
		c := l.Locate(page)
		if c.Text == "" {
			continue
		}
		c.Page = i
		if best.Text == "" || c.Score > best.Score {
			best = c
		}
	}
	return best
}

// read performs both segmentation passes over one prepared band and keeps
// the longer useful result. OCR errors degrade to empty reads; a band that
// cannot be read is simply not a candidate.
func (l *Locator) read(img image.Image) string {
	line, err := l.ocr.MRZLine(img)
	if err != nil {
		line = ""
	}
	block, err := l.ocr.MRZBlock(img)
	if err != nil {
		block = ""
	}

	line, block = strings.TrimSpace(line), strings.TrimSpace(block)
	pick := line
	if len(block) > len(pick) {
		pick = block
	}
	if len(pick) < minUseful {
		return ""
	}
	return Normalize(pick)
}
