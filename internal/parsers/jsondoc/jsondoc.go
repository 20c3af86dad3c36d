// Package jsondoc extracts text from JSON documents. The structure is
// flattened to dotted "path: value" lines so field names stay attached
// to their values and remain searchable after chunking.
package jsondoc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/counselstack/corpus/internal/core/domain"
)

// Parser extracts text from JSON content.
type Parser struct{}

// New creates a JSON parser.
func New() *Parser {
	return &Parser{}
}

// Parse flattens the JSON tree into path-value lines.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format:   domain.FormatJSON,
		Engine:   "native/json",
		Encoding: "utf-8",
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		report.Fail(fmt.Sprintf("invalid JSON: %v", err))
		return "", report, nil
	}

	var lines []string
	flatten("", root, &lines)
	if len(lines) == 0 {
		report.Fail("JSON document contains no values")
		return "", report, nil
	}

	text := strings.Join(lines, "\n")
	report.Characters = len([]rune(text))
	return text, report, nil
}

// flatten walks the decoded tree depth-first, emitting one line per
// scalar value. Object keys are visited in sorted order so output is
// deterministic across runs.
func flatten(path string, node any, lines *[]string) {
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(joinPath(path, k), v[k], lines)
		}
	case []any:
		for i, item := range v {
			flatten(fmt.Sprintf("%s[%d]", path, i), item, lines)
		}
	case string:
		if strings.TrimSpace(v) != "" {
			emit(lines, path, v)
		}
	case json.Number:
		emit(lines, path, v.String())
	case float64:
		emit(lines, path, fmt.Sprintf("%v", v))
	case bool:
		emit(lines, path, fmt.Sprintf("%t", v))
	case nil:
		// Null values carry no searchable content.
	}
}

func emit(lines *[]string, path, value string) {
	if path == "" {
		*lines = append(*lines, value)
		return
	}
	*lines = append(*lines, path+": "+value)
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
