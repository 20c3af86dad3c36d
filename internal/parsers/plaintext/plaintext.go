// Package plaintext extracts text from plain-text files. The hard
// part is encoding: files arrive as UTF-8, UTF-16 with a BOM, or one
// of the regional legacy encodings, and the format itself carries no
// declaration. Decoding runs as a cascade from the cheapest certain
// check to the most speculative fallback.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/counselstack/corpus/internal/core/domain"
	"github.com/counselstack/corpus/internal/logger"
)

// readabilityThreshold is the minimum fraction of readable runes a
// decoded sample must contain before the decode is trusted.
const readabilityThreshold = 0.4

// nulRejectCount is the NUL-byte count at which content is treated as
// binary rather than text with stray control bytes.
const nulRejectCount = 2

// Parser extracts text from plain-text content.
type Parser struct {
	detector *chardet.Detector
}

// New creates a plain-text parser.
func New() *Parser {
	return &Parser{detector: chardet.NewTextDetector()}
}

// Parse decodes data to UTF-8 text. Binary content and undecodable
// bytes are recorded as report errors, not returned as Go errors.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format: domain.FormatText,
		Engine: "native/plaintext",
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	if len(bytes.TrimSpace(data)) == 0 {
		report.Fail("file is empty")
		return "", report, nil
	}

	if bytes.Count(data, []byte{0}) >= nulRejectCount {
		report.Fail("binary content detected (NUL bytes)")
		report.Fail("no text could be extracted")
		report.Suggest("upload a plain-text export of the document")
		return "", report, nil
	}

	text, enc := p.decode(data, report)
	report.Encoding = enc

	if !readable(text) {
		report.Fail(fmt.Sprintf("decoded content is not readable text (encoding %s)", enc))
		report.Suggest("check the file encoding or upload a UTF-8 version")
		return "", report, nil
	}

	text = normalizeNewlines(text)
	report.Characters = len([]rune(text))
	return text, report, nil
}

// decode runs the encoding cascade: BOM, valid UTF-8, detected
// charset, regional fallbacks, and finally Latin-1 which never fails.
func (p *Parser) decode(data []byte, report *domain.QualityReport) (string, string) {
	if text, name, ok := decodeBOM(data); ok {
		return text, name
	}

	if utf8.Valid(data) {
		return string(data), "utf-8"
	}

	if name, ok := p.detectCharset(data); ok {
		if enc, err := htmlindex.Get(name); err == nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
				return string(decoded), name
			}
		}
		report.Warn(fmt.Sprintf("detected charset %s could not decode the content", name))
	}

	for _, candidate := range fallbackEncodings() {
		decoded, err := candidate.enc.NewDecoder().Bytes(data)
		if err != nil || !utf8.Valid(decoded) {
			continue
		}
		if readable(string(decoded)) {
			report.Warn(fmt.Sprintf("encoding guessed as %s", candidate.name))
			return string(decoded), candidate.name
		}
	}

	// Latin-1 maps every byte to a rune, so this branch always decodes.
	decoded, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	report.Warn("encoding unknown, decoded as iso-8859-1")
	return string(decoded), "iso-8859-1"
}

func (p *Parser) detectCharset(data []byte) (string, bool) {
	result, err := p.detector.DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return "", false
	}
	logger.Debug("charset detector: %s (confidence %d)", result.Charset, result.Confidence)
	return strings.ToLower(result.Charset), true
}

func decodeBOM(data []byte) (string, string, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), "utf-8", true
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return decodeWith(xunicode.UTF16(xunicode.LittleEndian, xunicode.ExpectBOM), data, "utf-16le")
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return decodeWith(xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM), data, "utf-16be")
	}
	return "", "", false
}

func decodeWith(enc encoding.Encoding, data []byte, name string) (string, string, bool) {
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", false
	}
	return string(decoded), name, true
}

type namedEncoding struct {
	name string
	enc  encoding.Encoding
}

func fallbackEncodings() []namedEncoding {
	return []namedEncoding{
		{"windows-1252", charmap.Windows1252},
		{"gbk", simplifiedchinese.GBK},
		{"big5", traditionalchinese.Big5},
		{"shift_jis", japanese.ShiftJIS},
		{"euc-kr", korean.EUCKR},
	}
}

// readable samples the first part of the text and checks that enough
// of it is letters, digits, whitespace, or common punctuation. A low
// ratio means a wrong decode or a binary payload without NUL bytes.
func readable(text string) bool {
	const sampleRunes = 1000
	if text == "" {
		return false
	}
	total, good := 0, 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
			unicode.IsPunct(r) || unicode.IsSymbol(r) {
			good++
		}
		if total >= sampleRunes {
			break
		}
	}
	return float64(good)/float64(total) >= readabilityThreshold
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
