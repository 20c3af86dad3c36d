package chunker

import (
	"unicode"

	"github.com/pkoukk/tiktoken-go"

	"github.com/counselstack/corpus/internal/logger"
)

// TokenCounter counts tokens in text. Two implementations exist: an
// exact subword counter backed by the embedding model's vocabulary,
// and a weighted estimator used when the exact tokenizer cannot load.
type TokenCounter interface {
	// Count returns the token count of text.
	Count(text string) int

	// Name identifies the counter for logging.
	Name() string
}

// Estimator approximates token counts by script: CJK characters weigh
// ~1.5 tokens each, Latin words ~1 token, everything else ~0.5.
type Estimator struct{}

// Count returns the weighted token estimate for text.
func (Estimator) Count(text string) int {
	var cjk, words, other int
	inWord := false

	for _, r := range text {
		switch {
		case isCJK(r):
			cjk++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				words++
				inWord = true
			}
		case unicode.IsSpace(r):
			inWord = false
		default:
			other++
			inWord = false
		}
	}

	return int(float64(cjk)*1.5 + float64(words) + float64(other)*0.5)
}

// Name identifies the estimator.
func (Estimator) Name() string { return "estimator" }

// exactCounter counts tokens with a tiktoken BPE encoding.
type exactCounter struct {
	enc *tiktoken.Tiktoken
}

// NewExactCounter returns a TokenCounter backed by the cl100k_base
// encoding, matching the embedding model vocabulary.
func NewExactCounter() (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &exactCounter{enc: enc}, nil
}

func (c *exactCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

func (c *exactCounter) Name() string { return "tiktoken/cl100k_base" }

// NewCounter resolves the token counting capability once at startup:
// the exact subword counter when its encoding loads, the weighted
// estimator otherwise.
func NewCounter() TokenCounter {
	c, err := NewExactCounter()
	if err != nil {
		logger.Warn("exact tokenizer unavailable, using weighted estimator: %v", err)
		return Estimator{}
	}
	return c
}

// isCJK reports whether r is a CJK ideograph or kana/hangul character.
func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
