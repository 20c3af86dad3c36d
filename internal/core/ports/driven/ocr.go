package driven

import "context"

// OCRResult is the outcome of an OCR pass.
type OCRResult struct {
	// Text is the recognized text.
	Text string

	// Confidence is the average recognition confidence in [0, 1].
	Confidence float64
}

// OCRService recognizes text in images or scanned documents. The
// provider handles rasterization of multi-page inputs (e.g. PDFs).
// This is an optional capability: when unavailable, scanned documents
// degrade to whatever the text layer yielded.
type OCRService interface {
	// Recognize runs OCR over the raw bytes. hint is a MIME type or
	// format tag describing the input.
	Recognize(ctx context.Context, data []byte, hint string) (*OCRResult, error)

	// Available reports whether the service can be called.
	Available() bool
}
