// Package pdf extracts text from PDF documents. Extraction is
// tiered: the embedded text layer first, then a scan classification
// over per-page character counts, then OCR when the document looks
// scanned and an OCR capability is wired. A supplementary pass
// rebuilds column-aligned rows as pipe tables from glyph positions.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/core/ports/driven"
	"github.com/counselstack/corpus/internal/logger"
)

const (
	// likelyScannedAvgChars is the average characters per page below
	// which a document is classified as likely scanned.
	likelyScannedAvgChars = 100

	// partialScanEmptyRatio is the fraction of empty pages above which
	// a document is flagged as partially scanned.
	partialScanEmptyRatio = 0.3

	// lowOCRConfidence marks OCR output that needs review.
	lowOCRConfidence = 0.7

	// cellGap is the horizontal glyph gap, in points, treated as a
	// column boundary during table reconstruction.
	cellGap = 18.0
)

// Parser extracts text from PDF content.
type Parser struct {
	ocr driven.OCRService
}

// New creates a PDF parser. The OCR service may be nil; scanned
// documents then fail with a report error instead of being recognized.
func New(ocr driven.OCRService) *Parser {
	return &Parser{ocr: ocr}
}

// Parse extracts the text layer, classifies scan coverage, and falls
// back to OCR for likely scanned documents.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format: domain.FormatPDF,
		Engine: "native/pdf",
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	pages, tables, err := extractPages(data)
	if err != nil {
		report.Fail(fmt.Sprintf("unable to open PDF: %v", err))
		return "", report, nil
	}
	report.Pages = len(pages)
	if len(pages) == 0 {
		report.Fail("PDF has no pages")
		return "", report, nil
	}

	emptyPages := 0
	for _, page := range pages {
		if len(strings.TrimSpace(page)) == 0 {
			emptyPages++
		}
	}

	switch Classify(pages) {
	case ScanLikely:
		return p.parseScanned(ctx, data, report)
	case ScanPartial:
		report.Warn(fmt.Sprintf("%d of %d pages have no text layer, document may be partially scanned", emptyPages, len(pages)))
	}

	var out strings.Builder
	for i, page := range pages {
		text := strings.TrimSpace(page)
		if text == "" {
			continue
		}
		out.WriteString(text)
		out.WriteString("\n\n")
		if t := tables[i]; t != "" {
			out.WriteString(t)
			out.WriteString("\n")
			report.Tables++
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		report.Fail("PDF text layer is empty")
		return "", report, nil
	}

	report.Characters = len([]rune(text))
	logger.Debug("pdf: %d pages, %d chars, %d tables", report.Pages, report.Characters, report.Tables)
	return text, report, nil
}

// parseScanned runs the OCR tier for documents without a usable text
// layer.
func (p *Parser) parseScanned(ctx context.Context, data []byte, report *domain.QualityReport) (string, *domain.QualityReport, error) {
	if p.ocr == nil || !p.ocr.Available() {
		report.Fail("document appears to be scanned and no OCR capability is configured")
		report.Suggest("enable an OCR provider or upload a text-based PDF")
		return "", report, nil
	}

	result, err := p.ocr.Recognize(ctx, data, "application/pdf")
	if err != nil {
		report.Fail(fmt.Sprintf("OCR failed: %v", err))
		return "", report, nil
	}

	report.Engine = "native/pdf+ocr"
	report.OCRUsed = true
	report.OCRConfidence = result.Confidence
	if result.Confidence < lowOCRConfidence {
		report.Warn(fmt.Sprintf("OCR confidence is low (%.2f)", result.Confidence))
		report.Suggest("rescan the document at a higher resolution")
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		report.Fail("OCR produced no text")
		return "", report, nil
	}

	report.Characters = len([]rune(text))
	return text, report, nil
}

// ScanClass is the outcome of the scan classification pass.
type ScanClass int

const (
	// ScanNone means the text layer covers the document.
	ScanNone ScanClass = iota
	// ScanPartial means a notable share of pages lack text.
	ScanPartial
	// ScanLikely means the document is probably a scan.
	ScanLikely
)

// Classify inspects per-page text and decides whether the document
// looks scanned. Exported for the ingestion service's diagnostics.
func Classify(pages []string) ScanClass {
	if len(pages) == 0 {
		return ScanLikely
	}
	total, empty := 0, 0
	for _, page := range pages {
		n := len([]rune(strings.TrimSpace(page)))
		total += n
		if n == 0 {
			empty++
		}
	}
	if total/len(pages) < likelyScannedAvgChars {
		return ScanLikely
	}
	if float64(empty)/float64(len(pages)) > partialScanEmptyRatio {
		return ScanPartial
	}
	return ScanNone
}

// extractPages returns per-page plain text and per-page reconstructed
// tables. The pdf library panics on some malformed files, so the whole
// walk runs under a recover.
func extractPages(data []byte) (pages []string, tables []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	tables = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			tables = append(tables, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		pages = append(pages, text)
		tables = append(tables, reconstructTables(page))
	}
	return pages, tables, nil
}

// reconstructTables rebuilds pipe tables from rows whose glyphs split
// into multiple column groups. Only runs of two or more multi-cell
// rows count, single aligned rows are ordinary layout.
func reconstructTables(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}

	var (
		out strings.Builder
		run []string
	)
	flush := func() {
		if len(run) >= 2 {
			for i, line := range run {
				out.WriteString(line + "\n")
				if i == 0 {
					cols := strings.Count(line, "|") - 1
					out.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")
				}
			}
			out.WriteByte('\n')
		}
		run = nil
	}

	for _, row := range rows {
		cells := splitCells(row.Content)
		if len(cells) < 2 {
			flush()
			continue
		}
		run = append(run, "| "+strings.Join(cells, " | ")+" |")
	}
	flush()
	return strings.TrimSpace(out.String())
}

// splitCells groups a row's glyphs into cells at large horizontal gaps.
func splitCells(texts []pdf.Text) []string {
	var (
		cells []string
		cur   strings.Builder
		lastX float64
		lastW float64
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			cells = append(cells, strings.ReplaceAll(s, "|", "\\|"))
		}
		cur.Reset()
	}
	for i, t := range texts {
		if i > 0 && t.X-(lastX+lastW) > cellGap {
			flush()
		}
		cur.WriteString(t.S)
		lastX = t.X
		lastW = t.W
	}
	flush()
	return cells
}
