// Package chunker converts extracted document text into an ordered
// sequence of chunks sized to a token budget. Splitting respects
// structure: tables are never divided, heading boundaries force chunk
// breaks once enough content has accumulated, and oversized sections
// are split at sentence boundaries with a trailing-token overlap
// carried between neighbours.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// Default configuration values.
const (
	DefaultChunkSize          = 1000
	DefaultChunkOverlap       = 150
	DefaultMinSectionMarkdown = 50
	DefaultMinSectionText     = 20

	// headingBreakTokens is the minimum accumulated content before a
	// heading section forces a chunk break.
	headingBreakTokens = 30
)

var headingLine = regexp.MustCompile(`(?m)^#{1,6}\s`)

// Chunker splits text into token-budgeted chunks.
type Chunker struct {
	chunkSize          int
	overlap            int
	minSectionMarkdown int
	minSectionText     int
	counter            TokenCounter
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens. Callers
// should keep overlap to a fraction of the chunk size; an overlap
// approaching the chunk size degrades to near-duplicate chunks.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinSections sets the minimum section token floors used when
// merging undersized sections (markdown-like and plain text).
func WithMinSections(markdown, text int) Option {
	return func(c *Chunker) {
		if markdown > 0 {
			c.minSectionMarkdown = markdown
		}
		if text > 0 {
			c.minSectionText = text
		}
	}
}

// WithCounter sets the token counter. Defaults to the estimator.
func WithCounter(counter TokenCounter) Option {
	return func(c *Chunker) {
		if counter != nil {
			c.counter = counter
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:          DefaultChunkSize,
		overlap:            DefaultChunkOverlap,
		minSectionMarkdown: DefaultMinSectionMarkdown,
		minSectionText:     DefaultMinSectionText,
		counter:            Estimator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 10
	}
	return c
}

// Split converts text into an ordered sequence of non-empty chunks.
// Empty input yields an empty sequence. Chunks whose token count falls
// below the plain-text floor are dropped from the final output.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	protected, tables := protectTables(text)

	markdownLike := looksLikeMarkdown(protected)
	sections := splitSections(protected, markdownLike)

	floor := c.minSectionText
	if markdownLike {
		floor = c.minSectionMarkdown
	}
	sections = c.mergeUndersized(sections, floor)

	raw := c.accumulate(sections)

	out := make([]string, 0, len(raw))
	for _, chunk := range raw {
		chunk = strings.TrimSpace(restoreTables(chunk, tables))
		if chunk == "" {
			continue
		}
		if c.counter.Count(chunk) < c.minSectionText {
			continue
		}
		out = append(out, chunk)
	}
	return out
}

// tablePlaceholder builds the placeholder token for table block i. The
// NUL delimiters cannot occur in parsed text.
func tablePlaceholder(i int) string {
	return fmt.Sprintf("\x00TBL%d\x00", i)
}

// protectTables replaces contiguous pipe-table blocks with atomic
// placeholders so structural splitting can never divide a table.
func protectTables(text string) (string, []string) {
	lines := strings.Split(text, "\n")
	var tables []string
	var out []string

	i := 0
	for i < len(lines) {
		if !isTableLine(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}
		start := i
		for i < len(lines) && isTableLine(lines[i]) {
			i++
		}
		block := strings.Join(lines[start:i], "\n")
		out = append(out, tablePlaceholder(len(tables)))
		tables = append(tables, block)
	}

	return strings.Join(out, "\n"), tables
}

// restoreTables substitutes table blocks back for their placeholders.
func restoreTables(text string, tables []string) string {
	for i, block := range tables {
		text = strings.ReplaceAll(text, tablePlaceholder(i), block)
	}
	return text
}

// isTableLine reports whether a line belongs to a pipe table.
func isTableLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

// looksLikeMarkdown applies the heading heuristic: at least 3 heading
// lines, or more than 10% of sampled lines are headings.
func looksLikeMarkdown(text string) bool {
	lines := strings.Split(text, "\n")
	sample := lines
	if len(sample) > 200 {
		sample = sample[:200]
	}

	headings := 0
	for _, line := range sample {
		if headingLine.MatchString(line) {
			headings++
		}
	}
	if headings >= 3 {
		return true
	}
	return len(sample) > 0 && float64(headings)/float64(len(sample)) > 0.1
}

// splitSections divides text into candidate sections: heading-bounded
// when the text is markdown-like, blank-line paragraphs otherwise.
func splitSections(text string, markdownLike bool) []string {
	if markdownLike {
		return splitAtHeadings(text)
	}
	return splitParagraphs(text)
}

// splitAtHeadings starts a new section at every heading line. Content
// before the first heading forms its own section.
func splitAtHeadings(text string) []string {
	lines := strings.Split(text, "\n")
	var sections []string
	var cur []string

	flush := func() {
		s := strings.TrimSpace(strings.Join(cur, "\n"))
		if s != "" {
			sections = append(sections, s)
		}
		cur = cur[:0]
	}

	for _, line := range lines {
		if headingLine.MatchString(line) {
			flush()
		}
		cur = append(cur, line)
	}
	flush()

	return sections
}

// splitParagraphs splits text at blank lines.
func splitParagraphs(text string) []string {
	var sections []string
	for _, p := range regexp.MustCompile(`\n\s*\n`).Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			sections = append(sections, p)
		}
	}
	return sections
}

// mergeUndersized merges adjacent sections below the token floor,
// preserving order, until each merged section meets the floor or no
// further merging is possible. The trailing section may remain small.
func (c *Chunker) mergeUndersized(sections []string, floor int) []string {
	if len(sections) < 2 {
		return sections
	}

	var merged []string
	var cur string

	for _, sec := range sections {
		if cur == "" {
			cur = sec
		} else {
			cur = cur + "\n\n" + sec
		}
		if c.counter.Count(cur) >= floor {
			merged = append(merged, cur)
			cur = ""
		}
	}
	if cur != "" {
		merged = append(merged, cur)
	}

	return merged
}

// accumulate greedily packs sections into chunks honouring the token
// budget, heading breaks, and the overlap contract.
func (c *Chunker) accumulate(sections []string) []string {
	var chunks []string
	var cur strings.Builder
	curTokens := 0

	appendSection := func(s string) {
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(s)
		curTokens = c.counter.Count(cur.String())
	}

	flush := func() string {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curTokens = 0
		return s
	}

	for _, sec := range sections {
		secTokens := c.counter.Count(sec)

		// Force a break at heading boundaries once minimum content exists.
		if isHeadingLed(sec) && curTokens >= headingBreakTokens {
			flush()
		}

		// A section that alone exceeds the budget is force-split at
		// sentence boundaries.
		if secTokens > c.chunkSize {
			flush()
			chunks = append(chunks, c.splitOversized(sec)...)
			continue
		}

		if curTokens > 0 && curTokens+secTokens > c.chunkSize {
			prev := flush()
			if tail := c.overlapTail(prev); tail != "" {
				appendSection(tail)
			}
		}
		appendSection(sec)
	}
	flush()

	return chunks
}

// isHeadingLed reports whether the section starts with a heading line.
func isHeadingLed(section string) bool {
	first := section
	if i := strings.IndexByte(section, '\n'); i >= 0 {
		first = section[:i]
	}
	return headingLine.MatchString(first)
}

var sentenceEnd = regexp.MustCompile(`([.!?。！？])\s+`)

// splitOversized divides a section that exceeds the chunk budget at
// sentence boundaries, carrying a trailing-token overlap from each
// sub-chunk into the next.
func (c *Chunker) splitOversized(section string) []string {
	sentences := splitSentences(section)

	var parts []string
	var cur strings.Builder
	curTokens := 0

	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
		curTokens = 0
	}

	for _, sent := range sentences {
		st := c.counter.Count(sent)

		// A single sentence over the budget is hard-split on words.
		if st > c.chunkSize {
			flush()
			parts = append(parts, c.splitWords(sent)...)
			continue
		}

		if curTokens > 0 && curTokens+st > c.chunkSize {
			prev := strings.TrimSpace(cur.String())
			flush()
			if tail := c.overlapTail(prev); tail != "" {
				cur.WriteString(tail)
				cur.WriteString(" ")
				curTokens = c.counter.Count(cur.String())
			}
		}

		cur.WriteString(sent)
		cur.WriteString(" ")
		curTokens = c.counter.Count(cur.String())
	}
	flush()

	return parts
}

// splitSentences splits text on sentence-ending punctuation, keeping
// the terminator with its sentence.
func splitSentences(text string) []string {
	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")
	var sentences []string
	for _, s := range strings.Split(marked, "\x00") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// splitWords hard-splits a single oversized sentence by words,
// carrying the configured overlap between parts.
func (c *Chunker) splitWords(sentence string) []string {
	words := strings.Fields(sentence)

	var parts []string
	var cur []string
	curTokens := 0

	for _, w := range words {
		wt := c.counter.Count(w)
		if curTokens > 0 && curTokens+wt > c.chunkSize {
			part := strings.Join(cur, " ")
			parts = append(parts, part)
			cur = cur[:0]
			if tail := c.overlapTail(part); tail != "" {
				cur = append(cur, tail)
			}
			curTokens = c.counter.Count(strings.Join(cur, " "))
		}
		cur = append(cur, w)
		curTokens += wt
	}
	if len(cur) > 0 {
		parts = append(parts, strings.Join(cur, " "))
	}

	return parts
}

// overlapTail returns the trailing words of text amounting to roughly
// the configured overlap token budget.
func (c *Chunker) overlapTail(text string) string {
	if c.overlap <= 0 || text == "" {
		return ""
	}

	words := strings.Fields(text)
	var tail []string
	tokens := 0

	for i := len(words) - 1; i >= 0; i-- {
		t := c.counter.Count(words[i])
		if tokens+t > c.overlap {
			break
		}
		tail = append([]string{words[i]}, tail...)
		tokens += t
	}
	// Never echo more than half the source back as overlap.
	if len(tail) > len(words)/2 {
		tail = tail[len(tail)-len(words)/2:]
	}

	return strings.Join(tail, " ")
}
