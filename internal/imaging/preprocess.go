package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/histogram"
	"github.com/anthonynsimon/bild/segment"
	dimg "github.com/disintegration/imaging"
)

// PrepareForOCR produces the binarized frame fed to the general OCR pass.
//
// The chain is grayscale conversion, an edge-preserving median denoise, and
// binarization at an automatic global (Otsu) threshold. Scanned documents
// vary widely in exposure; the automatic threshold adapts per frame instead
// of relying on a fixed level.
func PrepareForOCR(img image.Image) *image.Gray {
	gray := effect.Grayscale(img)
	denoised := effect.Median(gray, 3)
	return segment.Threshold(denoised, OtsuLevel(denoised))
}

// EnhanceMRZ prepares a candidate band for the specialized MRZ pass:
// histogram equalization, Otsu binarization, then a morphological closing
// (dilate followed by erode) that reconnects broken character strokes.
func EnhanceMRZ(img image.Image) image.Image {
	eq := EqualizeGray(ToGray(img))
	bin := segment.Threshold(eq, OtsuLevel(eq))
	return effect.Erode(effect.Dilate(bin, 1), 1)
}

// ToGray converts any image to 8-bit grayscale using the standard library's
// luminance conversion.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// OtsuLevel computes the global threshold that maximizes between-class
// variance over the image's luminance histogram. For grayscale input the
// red channel carries the luminance.
func OtsuLevel(img image.Image) uint8 {
	bins := histogram.NewRGBAHistogram(img).R.Bins

	total := 0
	sum := 0.0
	for i, n := range bins {
		total += n
		sum += float64(i) * float64(n)
	}
	if total == 0 {
		return 0
	}

	var (
		sumB    float64
		countB  int
		best    float64
		bestBin int
	)
	for i, n := range bins {
		countB += n
		if countB == 0 {
			continue
		}
		countF := total - countB
		if countF == 0 {
			break
		}
		sumB += float64(i) * float64(n)

		meanB := sumB / float64(countB)
		meanF := (sum - sumB) / float64(countF)
		between := float64(countB) * float64(countF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			bestBin = i
		}
	}

	return uint8(bestBin)
}

// EqualizeGray applies histogram equalization to a grayscale image,
// stretching low-contrast MRZ bands across the full dynamic range.
func EqualizeGray(g *image.Gray) *image.Gray {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return g
	}

	var hist [256]int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[g.GrayAt(x, y).Y]++
		}
	}

	// Cumulative distribution, remapped so the darkest occupied bin maps to 0.
	var cdf [256]int
	running := 0
	for i, n := range hist {
		running += n
		cdf[i] = running
	}
	cdfMin := 0
	for _, n := range cdf {
		if n > 0 {
			cdfMin = n
			break
		}
	}

	totalPixels := w * h
	out := image.NewGray(bounds)
	denom := totalPixels - cdfMin
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := g.GrayAt(x, y).Y
			mapped := 0
			if denom > 0 {
				mapped = (cdf[v] - cdfMin) * 255 / denom
			}
			if mapped < 0 {
				mapped = 0
			}
			out.Pix[out.PixOffset(x, y)] = uint8(mapped)
		}
	}
	return out
}

// Rotate90Steps rotates an image by steps quarter turns counter-clockwise.
// steps is taken modulo 4; 0 returns the input unchanged.
func Rotate90Steps(img image.Image, steps int) image.Image {
	switch ((steps % 4) + 4) % 4 {
	case 1:
		return dimg.Rotate90(img)
	case 2:
		return dimg.Rotate180(img)
	case 3:
		return dimg.Rotate270(img)
	default:
		return img
	}
}

// Upscale resizes an image by the given factor, preserving aspect ratio.
// Factors at or below zero return the input unchanged.
func Upscale(img image.Image, factor float64) image.Image {
	if factor <= 0 {
		return img
	}
	w := int(math.Round(float64(img.Bounds().Dx()) * factor))
	if w < 1 {
		w = 1
	}
	return dimg.Resize(img, w, 0, dimg.Lanczos)
}

// BottomHalf crops the lower half of an image. On a dual-face scan (front
// and back stacked vertically) this is where the document back, and with it
// the MRZ, normally sits.
func BottomHalf(img image.Image) image.Image {
	bounds := img.Bounds()
	return dimg.Crop(img, image.Rect(bounds.Min.X, bounds.Min.Y+bounds.Dy()/2, bounds.Max.X, bounds.Max.Y))
}

// Band crops from a fractional vertical offset down to the bottom edge.
// topFrac is clamped to [0,1); 0 returns the whole image.
func Band(img image.Image, topFrac float64) image.Image {
	if topFrac < 0 {
		topFrac = 0
	}
	if topFrac >= 1 {
		topFrac = 0
	}
	bounds := img.Bounds()
	y0 := bounds.Min.Y + int(float64(bounds.Dy())*topFrac)
	return dimg.Crop(img, image.Rect(bounds.Min.X, y0, bounds.Max.X, bounds.Max.Y))
}
