// Package pptx extracts text from PowerPoint presentations. A .pptx
// file is a ZIP archive with one DrawingML part per slide; the text
// runs in each part are collected in slide order, each slide headed by
// its number so slide boundaries survive chunking.
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/counselstack/corpus/internal/core/domain"
)

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Parser extracts text from presentation content.
type Parser struct{}

// New creates a presentation parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts slide text in slide order.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format: domain.FormatPresentation,
		Engine: "native/pptx",
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		report.Fail(fmt.Sprintf("unable to read pptx archive: %v", err))
		return "", report, nil
	}

	slides := map[int]*zip.File{}
	var numbers []int
	for _, f := range zr.File {
		m := slidePartRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides[n] = f
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		report.Fail("presentation contains no slides")
		return "", report, nil
	}
	sort.Ints(numbers)
	report.Pages = len(numbers)

	var out strings.Builder
	emptySlides := 0
	for _, n := range numbers {
		text, err := slideText(slides[n])
		if err != nil {
			report.Warn(fmt.Sprintf("slide %d could not be read: %v", n, err))
			continue
		}
		if text == "" {
			emptySlides++
			continue
		}
		out.WriteString(fmt.Sprintf("## Slide %d\n\n%s\n\n", n, text))
	}
	if emptySlides > 0 {
		report.Warn(fmt.Sprintf("%d slides contain no text", emptySlides))
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		report.Fail("presentation contains no extractable text")
		return "", report, nil
	}

	report.Characters = len([]rune(text))
	return text, report, nil
}

// slideText collects the <a:t> runs of one slide part. Paragraph
// boundaries come from <a:p> elements.
func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		out    strings.Builder
		line   strings.Builder
		inText bool
	)
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			out.WriteString(s + "\n")
		}
		line.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	flush()
	return strings.TrimSpace(out.String()), nil
}
