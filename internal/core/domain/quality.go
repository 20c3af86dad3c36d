package domain

import (
	"math"
	"time"
)

// QualityLevel is the discrete classification derived from the
// continuous extraction quality score. It gates whether ingestion
// proceeds: a failed report aborts ingestion before chunking.
type QualityLevel string

// Quality levels, best to worst.
const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityFair      QualityLevel = "fair"
	QualityPoor      QualityLevel = "poor"
	QualityFailed    QualityLevel = "failed"
)

// QualityReport captures extraction signals collected while parsing a
// document. Parsers accumulate warnings and errors in the report
// rather than raising per-issue; only a failed aggregate score aborts
// ingestion. The report is serialized and attached to the Document.
type QualityReport struct {
	// Format is the detected document format.
	Format Format `json:"format"`

	// Pages is the total page (or sheet/slide) count, when meaningful.
	Pages int `json:"pages"`

	// Characters is the total extracted character count.
	Characters int `json:"characters"`

	// Warnings are non-fatal extraction issues.
	Warnings []string `json:"warnings,omitempty"`

	// Errors are extraction failures. Each costs heavily in the score.
	Errors []string `json:"errors,omitempty"`

	// Suggestions are user-facing remediation hints.
	Suggestions []string `json:"suggestions,omitempty"`

	// Tables is the number of tables detected.
	Tables int `json:"tables"`

	// Images is the number of images detected.
	Images int `json:"images"`

	// OCRUsed reports whether OCR was used during extraction.
	OCRUsed bool `json:"ocr_used"`

	// OCRConfidence is the average OCR confidence when OCRUsed is set.
	OCRConfidence float64 `json:"ocr_confidence"`

	// Encoding is the detected character encoding, when relevant.
	Encoding string `json:"encoding,omitempty"`

	// ParseDuration is how long extraction took.
	ParseDuration time.Duration `json:"parse_duration"`

	// Engine identifies the parser that produced the text.
	Engine string `json:"engine"`

	// Score is the computed quality score in [0, 1].
	Score float64 `json:"score"`

	// Level is the tier derived from Score by fixed thresholds.
	Level QualityLevel `json:"level"`
}

// Warn appends a warning to the report.
func (r *QualityReport) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Fail appends an error to the report.
func (r *QualityReport) Fail(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Suggest appends a remediation suggestion to the report.
func (r *QualityReport) Suggest(msg string) {
	r.Suggestions = append(r.Suggestions, msg)
}

// Finalize computes Score and Level from the accumulated signals.
// The function is pure over the report fields: no I/O, no randomness,
// and calling it twice with unchanged inputs yields identical output.
func (r *QualityReport) Finalize() {
	r.Score = computeQualityScore(r.Characters, len(r.Warnings), len(r.Errors), r.OCRUsed, r.OCRConfidence)
	r.Level = LevelForScore(r.Score)
}

// computeQualityScore applies the fixed scoring model: start at 1.0,
// penalize short extractions, warnings, errors, and low-confidence OCR,
// clamp to [0, 1], round to 2 decimals.
func computeQualityScore(characters, warnings, errs int, ocrUsed bool, ocrConfidence float64) float64 {
	score := 1.0

	switch {
	case characters < 50:
		score -= 0.5
	case characters < 200:
		score -= 0.2
	}

	score -= 0.08 * float64(warnings)
	score -= 0.3 * float64(errs)

	if ocrUsed && ocrConfidence < 0.7 {
		score -= 0.2
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return math.Round(score*100) / 100
}

// LevelForScore maps a quality score to its tier using fixed
// thresholds. The mapping is monotonic in the score.
func LevelForScore(score float64) QualityLevel {
	switch {
	case score >= 0.9:
		return QualityExcellent
	case score >= 0.7:
		return QualityGood
	case score >= 0.5:
		return QualityFair
	case score >= 0.2:
		return QualityPoor
	default:
		return QualityFailed
	}
}
