// Package rtf extracts plain text from RTF documents with a small
// control-word stripper. Full RTF is a deep format, but the text runs
// in typical documents sit between control words and groups, and a
// single pass recovers them.
package rtf

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/counselstack/corpus/internal/core/domain"
)

// Parser extracts text from RTF content.
type Parser struct{}

// New creates an RTF parser.
func New() *Parser {
	return &Parser{}
}

// Parse strips RTF control words and groups, keeping text runs.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format: domain.FormatRTF,
		Engine: "native/rtf",
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	content := string(data)
	if !strings.HasPrefix(content, `{\rtf`) {
		report.Fail("missing RTF header")
		report.Suggest("check that the file is a valid RTF document")
		return "", report, nil
	}

	text := stripControls(content)
	if text == "" {
		report.Fail("no text runs found in RTF content")
		return "", report, nil
	}

	report.Characters = len([]rune(text))
	report.Warn("RTF formatting and embedded objects are not preserved")
	return text, report, nil
}

// skipGroups are destinations whose contents are metadata or binary
// payloads, never document text.
var skipGroups = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"info":       true,
	"pict":       true,
	"object":     true,
	"header":     true,
	"footer":     true,
	"themedata":  true,
}

func stripControls(content string) string {
	var out strings.Builder
	skipDepth := 0
	depth := 0
	i := 0

	for i < len(content) {
		c := content[i]
		switch c {
		case '{':
			depth++
			i++
			// Peek only. The control word itself is consumed by the
			// backslash case on the next iterations.
			if dest := peekDestination(content[i:]); dest != "" && skipGroups[dest] && skipDepth == 0 {
				skipDepth = depth
			}
		case '}':
			if skipDepth != 0 && depth == skipDepth {
				skipDepth = 0
			}
			depth--
			i++
		case '\\':
			word, param, consumed := readControl(content[i:])
			i += consumed
			if skipDepth != 0 {
				continue
			}
			switch word {
			case "par", "line", "sect", "page":
				out.WriteByte('\n')
			case "tab", "cell":
				out.WriteByte('\t')
			case "'":
				// \'hh hex escape in the document codepage. Most
				// documents use Windows-1252.
				if b, err := strconv.ParseUint(param, 16, 8); err == nil {
					out.WriteRune(charmap.Windows1252.DecodeByte(byte(b)))
				}
			case "u":
				// \uN Unicode escape, parameter is a signed decimal.
				if n, err := strconv.Atoi(param); err == nil {
					if n < 0 {
						n += 65536
					}
					out.WriteRune(rune(n))
					// \uN is followed by a fallback character for
					// non-Unicode readers. Drop it.
					if i < len(content) && content[i] != '\\' && content[i] != '{' && content[i] != '}' {
						i++
					}
				}
			case "{", "}", "\\":
				out.WriteString(word)
			}
		case '\r', '\n':
			i++
		default:
			if skipDepth == 0 {
				out.WriteByte(c)
			}
			i++
		}
	}

	text := out.String()
	text = strings.ReplaceAll(text, "\x00", "")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// peekDestination reports the destination control word at the start of
// a group, if any.
func peekDestination(s string) string {
	i := 0
	if i >= len(s) || s[i] != '\\' {
		return ""
	}
	i++
	if i < len(s) && s[i] == '*' {
		i++
		if i < len(s) && s[i] == '\\' {
			i++
		}
	}
	start := i
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	return s[start:i]
}

// readControl consumes a control word or symbol starting at the
// backslash and returns the word, its parameter text, and the number
// of bytes consumed.
func readControl(s string) (string, string, int) {
	i := 1
	if i >= len(s) {
		return "", "", 1
	}

	// Control symbol: single non-letter character.
	if !isLetter(s[i]) {
		sym := string(s[i])
		i++
		if sym == "'" {
			start := i
			for i < len(s) && i < start+2 && isHex(s[i]) {
				i++
			}
			return sym, s[start:i], i
		}
		return sym, "", i
	}

	start := i
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	word := s[start:i]

	paramStart := i
	if i < len(s) && (s[i] == '-' || isDigit(s[i])) {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	param := s[paramStart:i]

	// A single trailing space is part of the control word.
	if i < len(s) && s[i] == ' ' {
		i++
	}
	return word, param, i
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
