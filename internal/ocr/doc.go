// Package ocr wraps the Tesseract engine (via gosseract/v2) behind a single
// shared Engine created once per process.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr
//   - macOS: brew install tesseract
//
// Language data files are required for each configured language, e.g.
// tesseract-ocr-spa and tesseract-ocr-eng on Debian-family systems.
//
// # Passes
//
// The Engine exposes two kinds of passes:
//
//   - PlainText: the general pass over a preprocessed frame, using the
//     configured document languages. An unreadable (blank or low-contrast)
//     frame yields an empty string, not an error; downstream treats that
//     as "no text available".
//   - MRZLine / MRZBlock: specialized passes restricted to the
//     machine-readable-zone character set (A–Z, 0–9, and '<'), tuned for a
//     single text line and a uniform block respectively.
//
// # Concurrency
//
// Tesseract clients are not safe for concurrent use and are reconfigured
// between pass kinds, so the Engine serializes all invocations internally.
// Multiple submissions may share one Engine; their OCR calls simply queue.
package ocr
