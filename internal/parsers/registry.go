// Package parsers dispatches document bytes to a format-specific
// extraction strategy. The format set is closed: dispatch is an
// exhaustive switch over domain.Format, so adding a format is a
// compile-time change. All parsers converge on the same contract —
// extracted text plus a populated QualityReport — and accumulate
// issues in the report instead of raising per-issue errors.
package parsers

import (
	"context"
	"strings"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
	"github.com/counselstack/corpus/internal/logger"
	"github.com/counselstack/corpus/internal/parsers/docx"
	"github.com/counselstack/corpus/internal/parsers/html"
	"github.com/counselstack/corpus/internal/parsers/image"
	"github.com/counselstack/corpus/internal/parsers/jsondoc"
	"github.com/counselstack/corpus/internal/parsers/markdown"
	"github.com/counselstack/corpus/internal/parsers/pdf"
	"github.com/counselstack/corpus/internal/parsers/plaintext"
	"github.com/counselstack/corpus/internal/parsers/pptx"
	"github.com/counselstack/corpus/internal/parsers/rtf"
	"github.com/counselstack/corpus/internal/parsers/spreadsheet"
)

// externalAcceptScore is the quality score an external parse must
// beat; at or below it the native parser takes over.
const externalAcceptScore = 0.5

// Registry selects and runs the parser for a declared format.
type Registry struct {
	ocr      driven.OCRService
	external driven.ExternalParser
}

// Option configures the registry.
type Option func(*Registry)

// WithOCR provides the OCR capability used by the PDF and image parsers.
func WithOCR(ocr driven.OCRService) Option {
	return func(r *Registry) { r.ocr = ocr }
}

// WithExternal provides the high-quality external parsing pipeline,
// attempted before the native parsers for formats it supports.
func WithExternal(external driven.ExternalParser) Option {
	return func(r *Registry) { r.external = external }
}

// NewRegistry creates a parser registry. Capabilities are resolved
// once here; parsers never probe for availability themselves.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Parse extracts text from data according to the declared format.
// Unrecognized formats fail fast with domain.ErrUnsupportedFormat
// before any work. Extraction problems accumulate in the returned
// QualityReport; the caller aborts ingestion when the report finalizes
// to the failed tier.
func (r *Registry) Parse(ctx context.Context, format domain.Format, filename string, data []byte) (string, *domain.QualityReport, error) {
	if !format.Valid() {
		return "", nil, domain.ErrUnsupportedFormat
	}

	if text, report, ok := r.tryExternal(ctx, format, filename, data); ok {
		return text, report, nil
	}

	switch format {
	case domain.FormatText:
		return plaintext.New().Parse(ctx, data)
	case domain.FormatPDF:
		return pdf.New(r.ocr).Parse(ctx, data)
	case domain.FormatDoc, domain.FormatDocx:
		return docx.New(format).Parse(ctx, data)
	case domain.FormatXLS, domain.FormatXLSX, domain.FormatCSV:
		return spreadsheet.New(format).Parse(ctx, data)
	case domain.FormatHTML:
		return html.New().Parse(ctx, data)
	case domain.FormatMarkdown:
		return markdown.New().Parse(ctx, data)
	case domain.FormatRTF:
		return rtf.New().Parse(ctx, data)
	case domain.FormatJSON:
		return jsondoc.New().Parse(ctx, data)
	case domain.FormatImage:
		return image.New(r.ocr).Parse(ctx, data)
	case domain.FormatPresentation:
		return pptx.New().Parse(ctx, data)
	default:
		return "", nil, domain.ErrUnsupportedFormat
	}
}

// tryExternal attempts the external parsing pipeline. The fallback to
// the native parser is mandatory: empty output, an error, or a score
// below the acceptance threshold all reject the external result
// silently so availability never depends on the external service.
func (r *Registry) tryExternal(ctx context.Context, format domain.Format, filename string, data []byte) (string, *domain.QualityReport, bool) {
	if r.external == nil || !r.external.Supports(format) {
		return "", nil, false
	}

	text, err := r.external.Parse(ctx, filename, data)
	if err != nil {
		logger.Warn("external parser failed for %s, using native parser: %v", filename, err)
		return "", nil, false
	}
	if strings.TrimSpace(text) == "" {
		logger.Debug("external parser returned empty output for %s, using native parser", filename)
		return "", nil, false
	}

	report := &domain.QualityReport{
		Format:     format,
		Characters: len([]rune(text)),
		Engine:     "external",
	}
	report.Finalize()

	if report.Score <= externalAcceptScore {
		logger.Debug("external parse scored %.2f for %s, using native parser", report.Score, filename)
		return "", nil, false
	}

	return text, report, true
}
