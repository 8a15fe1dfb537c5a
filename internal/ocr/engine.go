package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/solivar/docintake/internal/imaging"
)

// mrzWhitelist is the character set printed in a machine-readable zone.
// The pipe-to-I confusion is corrected after recognition, not excluded here.
const mrzWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ<0123456789"

// contrastFloor is the minimum Lab lightness spread a frame needs before the
// general pass will bother running Tesseract on it.
const contrastFloor = 0.08

// Engine is the process-wide OCR service. Construct it once with NewEngine,
// pass it explicitly into pipeline calls, and Close it at shutdown.
type Engine struct {
	mu        sync.Mutex
	client    *gosseract.Client
	languages []string
}

// NewEngine creates the shared engine. languages apply to the general pass
// (the MRZ passes always use "eng", whose glyph set covers the OCR-B font);
// with no languages given, English is used.
func NewEngine(languages ...string) (*Engine, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set languages %v: %w", languages, err)
	}

	return &Engine{client: client, languages: languages}, nil
}

// Close releases the underlying Tesseract client.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// PlainText runs the general OCR pass on one frame: preprocessing
// (grayscale, denoise, automatic binarization) followed by automatic page
// segmentation. Recognized lines come back newline-joined. A frame without
// enough contrast to carry text returns "" with no error.
func (e *Engine) PlainText(img image.Image) (string, error) {
	if imaging.IsLowContrast(img, contrastFloor) {
		return "", nil
	}

	prepared := imaging.PrepareForOCR(img)

	text, err := e.recognize(prepared, e.languages, "", gosseract.PSM_AUTO)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// MRZLine runs the specialized pass tuned for a single MRZ text line.
func (e *Engine) MRZLine(img image.Image) (string, error) {
	return e.recognize(img, []string{"eng"}, mrzWhitelist, gosseract.PSM_SINGLE_LINE)
}

// MRZBlock runs the specialized pass tuned for a uniform block of MRZ lines.
func (e *Engine) MRZBlock(img image.Image) (string, error) {
	return e.recognize(img, []string{"eng"}, mrzWhitelist, gosseract.PSM_SINGLE_BLOCK)
}

// recognize serializes access to the shared client, reconfiguring it for the
// requested pass. Tesseract wants encoded image bytes, so frames are packed
// as PNG in memory.
func (e *Engine) recognize(img image.Image, languages []string, whitelist string, psm gosseract.PageSegMode) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return "", fmt.Errorf("ocr engine is closed")
	}

	if err := e.client.SetLanguage(languages...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := e.client.SetWhitelist(whitelist); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetPageSegMode(psm); err != nil {
		return "", fmt.Errorf("failed to set segmentation mode: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}
