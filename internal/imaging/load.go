package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/lucasb-eyer/go-colorful"
)

// Load decodes an image file from disk.
//
// Supported formats are PNG, JPEG, and GIF. The concrete return type depends
// on the source color model (e.g., *image.RGBA, *image.YCbCr).
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Decode decodes an in-memory image (PNG, JPEG, or GIF).
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// IsLowContrast reports whether an image has too little perceptual contrast
// to be worth an OCR pass. It samples a coarse pixel grid, converts samples
// to CIE Lab, and compares the lightness spread against minSpread
// (Lab L ranges 0..1; 0.08 is a reasonable floor for scanned documents).
//
// Blank pages and failed scans come out nearly uniform; skipping them keeps
// the expensive OCR engine off frames that can only produce noise.
func IsLowContrast(img image.Image, minSpread float64) bool {
	bounds := img.Bounds()
	if bounds.Empty() {
		return true
	}

	const grid = 24
	stepX := bounds.Dx() / grid
	stepY := bounds.Dy() / grid
	if stepX < 1 {
		stepX = 1
	}
	if stepY < 1 {
		stepY = 1
	}

	minL, maxL := 1.0, 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				// Fully transparent pixel; treat as background.
				continue
			}
			l, _, _ := c.Lab()
			if l < minL {
				minL = l
			}
			if l > maxL {
				maxL = l
			}
		}
	}

	return maxL-minL < minSpread
}
