// Package tokenizer provides mixed CJK/Latin tokenization for the
// lexical index. When the dictionary segmenter loads, CJK runs are
// segmented into words; otherwise each CJK character becomes its own
// token. Latin text is tokenized as lowercase alphanumeric runs either
// way.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/go-ego/gse"

	"github.com/counselstack/corpus/internal/logger"
)

// Tokenizer splits text into lowercase search tokens.
type Tokenizer struct {
	seg        *gse.Segmenter
	segmenting bool
}

// New creates a tokenizer, loading the dictionary segmenter when
// possible. The capability is resolved once here rather than checked
// per call.
func New() *Tokenizer {
	seg := &gse.Segmenter{}
	if err := seg.LoadDict(); err != nil {
		logger.Warn("CJK dictionary unavailable, falling back to per-character segmentation: %v", err)
		return &Tokenizer{}
	}
	return &Tokenizer{seg: seg, segmenting: true}
}

// NewFallback creates a tokenizer that never uses the dictionary
// segmenter. Used in tests and constrained environments.
func NewFallback() *Tokenizer {
	return &Tokenizer{}
}

// Segmenting reports whether dictionary-based CJK segmentation is active.
func (t *Tokenizer) Segmenting() bool {
	return t.segmenting
}

// Tokenize splits text into lowercase tokens. Empty and
// whitespace-only tokens are discarded.
func (t *Tokenizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var tokens []string
	var run strings.Builder

	flushRun := func() {
		if run.Len() > 0 {
			tokens = append(tokens, strings.ToLower(run.String()))
			run.Reset()
		}
	}

	var cjkRun strings.Builder
	flushCJK := func() {
		if cjkRun.Len() == 0 {
			return
		}
		s := cjkRun.String()
		cjkRun.Reset()
		if t.segmenting {
			for _, w := range t.seg.Cut(s, true) {
				w = strings.TrimSpace(w)
				if w != "" {
					tokens = append(tokens, strings.ToLower(w))
				}
			}
			return
		}
		// No segmenter: one token per character.
		for _, r := range s {
			tokens = append(tokens, string(r))
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flushRun()
			cjkRun.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			run.WriteRune(r)
		default:
			flushRun()
			flushCJK()
		}
	}
	flushRun()
	flushCJK()

	return tokens
}

// isCJK reports whether r is a CJK ideograph or kana/hangul character.
func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
