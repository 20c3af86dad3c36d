// Package image extracts text from standalone images through OCR.
// There is no text layer to fall back to, so a missing OCR capability
// is a parse failure rather than a degraded result.
package image

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
)

// lowOCRConfidence marks OCR output that needs review.
const lowOCRConfidence = 0.7

// magic numbers for the supported raster formats, used only to pick
// the MIME hint passed to the OCR provider.
var signatures = []struct {
	prefix []byte
	mime   string
}{
	{[]byte{0x89, 'P', 'N', 'G'}, "image/png"},
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte{'B', 'M'}, "image/bmp"},
	{[]byte{'I', 'I', 0x2A, 0x00}, "image/tiff"},
	{[]byte{'M', 'M', 0x00, 0x2A}, "image/tiff"},
}

// Parser extracts text from image content.
type Parser struct {
	ocr driven.OCRService
}

// New creates an image parser backed by the given OCR service, which
// may be nil when no provider is configured.
func New(ocr driven.OCRService) *Parser {
	return &Parser{ocr: ocr}
}

// Parse runs OCR over the image. OCRUsed is always true for images
// that produce text.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format: domain.FormatImage,
		Engine: "native/image+ocr",
		Pages:  1,
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	if p.ocr == nil || !p.ocr.Available() {
		report.Fail("image ingestion requires an OCR capability and none is configured")
		report.Suggest("enable an OCR provider")
		return "", report, nil
	}

	result, err := p.ocr.Recognize(ctx, data, mimeHint(data))
	if err != nil {
		report.Fail(fmt.Sprintf("OCR failed: %v", err))
		return "", report, nil
	}

	report.OCRUsed = true
	report.OCRConfidence = result.Confidence
	report.Images = 1
	if result.Confidence < lowOCRConfidence {
		report.Warn(fmt.Sprintf("OCR confidence is low (%.2f)", result.Confidence))
		report.Suggest("provide a higher resolution image")
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		report.Fail("image contains no recognizable text")
		return "", report, nil
	}

	report.Characters = len([]rune(text))
	return text, report, nil
}

func mimeHint(data []byte) string {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.mime
		}
	}
	return "application/octet-stream"
}
