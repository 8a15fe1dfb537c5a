// Package raster converts a paged document into an ordered sequence of
// raster frames, one per page up to a fixed cap. Plain images pass through
// as a single frame. A corrupt or unreadable source yields an empty
// sequence; the rest of the pipeline then reports missing text instead of
// failing the submission outright.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sunshineplan/imgconv"
	"github.com/sunshineplan/pdf"

	"github.com/solivar/docintake/internal/imaging"
)

// Frame is one rasterized page. Frames are owned by the pipeline invocation
// that created them and are discarded after OCR.
type Frame struct {
	// Index is the zero-based page index in the source document.
	Index int
	// Image is the decoded pixel buffer for the page.
	Image image.Image
}

// Options control rasterization.
type Options struct {
	// DPI is the target render resolution. Frames stored far below it are
	// upscaled so OCR sees usable glyph sizes.
	DPI int
	// MaxPages caps how many pages are rasterized. Pages beyond the cap are
	// silently ignored; large documents are intentionally truncated for
	// cost control.
	MaxPages int
}

// IsPaged reports whether the file at path is a paged (PDF) source.
// Everything else is treated as a single image.
func IsPaged(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Frames rasterizes the document at path. The result is ordered by page and
// never restartable: callers iterate it once and let the frames go.
func Frames(path string, opts Options) []Frame {
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.DPI < 1 {
		opts.DPI = 320
	}

	if !IsPaged(path) {
		img, err := imaging.Load(path)
		if err != nil {
			log.Printf("raster: unreadable image %s: %v", filepath.Base(path), err)
			return nil
		}
		return []Frame{{Index: 0, Image: img}}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("raster: cannot read %s: %v", filepath.Base(path), err)
		return nil
	}

	pageCount, err := validatedPageCount(data)
	if err != nil {
		log.Printf("raster: rejecting %s: %v", filepath.Base(path), err)
		return nil
	}
	if pageCount > opts.MaxPages {
		pageCount = opts.MaxPages
	}

	images, err := decodePages(data)
	if err != nil || len(images) == 0 {
		// Some PDFs carry no extractable page images; fall back to a
		// single-page render.
		img, rerr := imgconv.Decode(bytes.NewReader(data))
		if rerr != nil {
			log.Printf("raster: no frames from %s: %v", filepath.Base(path), rerr)
			return nil
		}
		images = []image.Image{img}
	}
	if len(images) > pageCount {
		images = images[:pageCount]
	}

	frames := make([]Frame, 0, len(images))
	for i, img := range images {
		if img == nil {
			continue
		}
		frames = append(frames, Frame{Index: i, Image: normalize(img, opts.DPI)})
	}
	return frames
}

// validatedPageCount parses and validates the PDF, returning its page count.
func validatedPageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	if ctx.PageCount < 1 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return ctx.PageCount, nil
}

// decodePages extracts per-page images. The decoder can panic on malformed
// cross-reference tables, so the call is fenced.
func decodePages(data []byte) (images []image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			images = nil
			err = fmt.Errorf("panic while decoding PDF pages: %v", r)
		}
	}()

	images, err = pdf.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PDF pages: %w", err)
	}
	return images, nil
}

// normalize upscales frames stored well below the target resolution.
// Embedded page images are sometimes thumbnail-sized; OCR needs glyphs of a
// few dozen pixels to have a chance.
func normalize(img image.Image, dpi int) image.Image {
	target := dpi * 8 // roughly letter width in inches
	w := img.Bounds().Dx()
	if w == 0 || w >= target/2 {
		return img
	}
	factor := float64(target) / float64(w)
	if factor > 3 {
		factor = 3
	}
	return imaging.Upscale(img, factor)
}
