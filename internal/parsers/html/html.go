// Package html extracts readable text from HTML documents. Page
// chrome (navigation, scripts, styles) is removed entirely, and
// headings, list items, and blockquotes are rewritten with Markdown
// markers so the chunker can see the document structure.
package html

import (
	"context"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/counselstack/corpus/internal/core/domain"
)

// Pre-compiled regular expressions for HTML stripping performance.
var (
	scriptTag    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag  = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag      = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag       = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag       = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	headerTag    = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	footerTag    = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	asideTag     = regexp.MustCompile(`(?is)<aside[^>]*>.*?</aside>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)

	headingOpen  = regexp.MustCompile(`(?i)<h([1-6])[^>]*>`)
	headingClose = regexp.MustCompile(`(?i)</h[1-6]>`)
	listItemOpen = regexp.MustCompile(`(?i)<li[^>]*>`)
	quoteOpen    = regexp.MustCompile(`(?i)<blockquote[^>]*>`)
	tableOpen    = regexp.MustCompile(`(?i)<table[^>]*>`)
	imgTag       = regexp.MustCompile(`(?i)<img[^>]*>`)

	blockClose = regexp.MustCompile(`(?i)</(p|div|li|tr|blockquote|pre|table|section|article|ul|ol)>`)
	blockOpen  = regexp.MustCompile(`(?i)<(p|div|tr|pre|table|section|article)[^>]*>`)
	brTags     = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags     = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags    = regexp.MustCompile(`<[^>]+>`)

	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Parser extracts text from HTML content.
type Parser struct{}

// New creates an HTML parser.
func New() *Parser {
	return &Parser{}
}

// Parse strips HTML down to structured plain text.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format:   domain.FormatHTML,
		Engine:   "native/html",
		Encoding: "utf-8",
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	content := string(data)
	report.Tables = len(tableOpen.FindAllString(content, -1))
	report.Images = len(imgTag.FindAllString(content, -1))

	text := strip(content)
	if text == "" {
		report.Fail("no readable text after removing markup")
		return "", report, nil
	}

	report.Characters = len([]rune(text))
	return text, report, nil
}

// strip removes non-content markup and converts the rest to text with
// Markdown structure markers.
func strip(content string) string {
	for _, re := range []*regexp.Regexp{
		scriptTag, styleTag, noscriptTag, headTag, svgTag,
		navTag, headerTag, footerTag, asideTag, htmlComments,
	} {
		content = re.ReplaceAllString(content, "")
	}

	// Structural elements become Markdown markers.
	content = headingOpen.ReplaceAllStringFunc(content, func(tag string) string {
		level := headingOpen.FindStringSubmatch(tag)[1]
		n := int(level[0] - '0')
		return "\n\n" + strings.Repeat("#", n) + " "
	})
	content = headingClose.ReplaceAllString(content, "\n\n")
	content = listItemOpen.ReplaceAllString(content, "\n- ")
	content = quoteOpen.ReplaceAllString(content, "\n> ")

	content = blockOpen.ReplaceAllString(content, "\n")
	content = blockClose.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")

	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimRight(strings.TrimLeft(line, " \t"), " \t")
		kept = append(kept, line)
	}
	content = strings.Join(kept, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
