// Package markdown extracts text from Markdown files. Markdown is
// already the pipeline's working representation, so extraction is
// mostly pass-through: strip YAML frontmatter, normalize newlines,
// and count the structural elements the quality report tracks.
package markdown

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/counselstack/corpus/internal/core/domain"
)

var (
	frontmatterRe = regexp.MustCompile(`(?s)\A---\r?\n.*?\r?\n---\r?\n`)
	imageRe       = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
)

// Parser extracts text from Markdown content.
type Parser struct{}

// New creates a Markdown parser.
func New() *Parser {
	return &Parser{}
}

// Parse strips frontmatter and reports structural counts.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format:   domain.FormatMarkdown,
		Engine:   "native/markdown",
		Encoding: "utf-8",
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = frontmatterRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		report.Fail("document contains no content")
		return "", report, nil
	}

	report.Characters = len([]rune(text))
	report.Tables = countTables(text)
	report.Images = len(imageRe.FindAllString(text, -1))
	return text, report, nil
}

// countTables counts contiguous runs of pipe-table lines.
func countTables(text string) int {
	tables := 0
	inTable := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		isRow := strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "|") >= 2
		if isRow && !inTable {
			tables++
		}
		inTable = isRow
	}
	return tables
}
