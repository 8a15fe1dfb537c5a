// Package imaging provides the image primitives used by the extraction
// pipeline: decoding, OCR preprocessing, machine-readable-zone enhancement,
// and the geometric transforms (band crops, quarter-turn rotations, upscaling)
// that the multi-hypothesis MRZ search enumerates.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner,
// X increasing rightward and Y increasing downward. Band crops are specified
// as fractions of the image height.
//
// # Thread Safety
//
// Every function in this package is stateless and safe for concurrent use on
// distinct images. Inputs are never mutated; each transform allocates its
// output.
//
// # Error Handling
//
// Preprocessing never fails: given a decodable image, each transform returns
// a valid image. Decoding functions return an error only for unreadable
// input; callers in the pipeline translate that into the empty-text outcome
// rather than aborting a submission.
package imaging
