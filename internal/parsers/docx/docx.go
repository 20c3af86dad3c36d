// Package docx extracts text from Word documents. Modern .docx files
// are ZIP archives holding WordprocessingML; the token stream is
// walked directly so heading styles become Markdown headings and
// tables become pipe tables. Legacy binary .doc files get a
// best-effort salvage of printable text runs, flagged in the report.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/counselstack/corpus/internal/core/domain"
)

// Parser extracts text from Word documents.
type Parser struct {
	format domain.Format
}

// New creates a Word parser for either domain.FormatDocx or the
// legacy domain.FormatDoc.
func New(format domain.Format) *Parser {
	return &Parser{format: format}
}

// Parse extracts document text. Problems accumulate in the report.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format: p.format,
		Engine: "native/docx",
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	var (
		text string
		err  error
	)
	if p.format == domain.FormatDoc {
		report.Engine = "native/doc-salvage"
		text = salvageLegacy(data)
		report.Warn("legacy .doc format: text salvaged without structure")
		report.Suggest("convert the document to .docx for full extraction")
	} else {
		text, err = extractDocx(data, report)
		if err != nil {
			report.Fail(fmt.Sprintf("unable to read docx archive: %v", err))
			return "", report, nil
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		report.Fail("document contains no extractable text")
		return "", report, nil
	}

	report.Characters = len([]rune(text))
	return text, report, nil
}

func extractDocx(data []byte, report *domain.QualityReport) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return walkDocumentXML(rc, report)
}

// walkDocumentXML streams WordprocessingML tokens. Paragraph runs are
// joined per paragraph; table cells are joined with pipes per row.
func walkDocumentXML(r io.Reader, report *domain.QualityReport) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		out       strings.Builder
		para      strings.Builder
		cell      strings.Builder
		row       []string
		inText    bool
		inTable   int
		rowsDone  int
		headingLv int
	)

	flushPara := func() {
		text := strings.TrimSpace(para.String())
		para.Reset()
		lv := headingLv
		headingLv = 0
		if text == "" {
			return
		}
		if lv > 0 {
			out.WriteString(strings.Repeat("#", lv) + " " + text + "\n\n")
			return
		}
		out.WriteString(text + "\n\n")
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tbl":
				if inTable == 0 {
					report.Tables++
					rowsDone = 0
				}
				inTable++
			case "tr":
				row = row[:0]
			case "tab":
				if inTable > 0 {
					cell.WriteByte(' ')
				} else {
					para.WriteByte('\t')
				}
			case "br":
				if inTable == 0 {
					para.WriteByte('\n')
				}
			case "pStyle":
				headingLv = headingLevel(attr(t, "val"))
			case "drawing", "pict":
				report.Images++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inTable == 0 {
					flushPara()
				} else if s := strings.TrimSpace(para.String()); s != "" {
					cell.WriteString(s + " ")
					para.Reset()
				} else {
					para.Reset()
				}
			case "tc":
				row = append(row, strings.TrimSpace(cell.String()))
				cell.Reset()
			case "tr":
				if len(row) > 0 {
					out.WriteString("| " + strings.Join(row, " | ") + " |\n")
					rowsDone++
					if rowsDone == 1 {
						out.WriteString("|" + strings.Repeat(" --- |", len(row)) + "\n")
					}
				}
			case "tbl":
				inTable--
				if inTable == 0 {
					out.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	flushPara()
	return out.String(), nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// headingLevel maps Word paragraph styles like "Heading1" or "Titre2"
// prefixed styles to a Markdown heading level.
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	if !strings.HasPrefix(lower, "heading") && !strings.HasPrefix(lower, "title") {
		return 0
	}
	for i := len(lower) - 1; i >= 0; i-- {
		if lower[i] < '0' || lower[i] > '9' {
			digits := lower[i+1:]
			if digits == "" {
				if strings.HasPrefix(lower, "title") {
					return 1
				}
				return 0
			}
			lv := 0
			for _, d := range digits {
				lv = lv*10 + int(d-'0')
			}
			if lv < 1 || lv > 6 {
				return 0
			}
			return lv
		}
	}
	return 0
}

// salvageLegacy pulls printable character runs out of the OLE binary.
// Runs shorter than a few characters are noise from the file's
// structure records and are dropped.
func salvageLegacy(data []byte) string {
	const minRun = 4
	var (
		out strings.Builder
		run strings.Builder
	)
	flush := func() {
		if run.Len() >= minRun {
			out.WriteString(strings.TrimSpace(run.String()))
			out.WriteByte('\n')
		}
		run.Reset()
	}
	for _, b := range data {
		r := rune(b)
		if r == '\r' || r == '\n' {
			flush()
			continue
		}
		if r == '\t' || (unicode.IsPrint(r) && r < 0x7F) {
			run.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return strings.TrimSpace(out.String())
}
