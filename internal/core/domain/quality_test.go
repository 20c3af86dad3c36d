package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalizeCleanExtraction(t *testing.T) {
	r := &QualityReport{Format: FormatText, Characters: 5000}
	r.Finalize()

	assert.Equal(t, 1.0, r.Score)
	assert.Equal(t, QualityExcellent, r.Level)
}

func TestFinalizeShortExtraction(t *testing.T) {
	r := &QualityReport{Characters: 30}
	r.Finalize()
	assert.Equal(t, 0.5, r.Score)
	assert.Equal(t, QualityFair, r.Level)

	r = &QualityReport{Characters: 150}
	r.Finalize()
	assert.Equal(t, 0.8, r.Score)
	assert.Equal(t, QualityGood, r.Level)
}

func TestFinalizeWarningAndErrorPenalties(t *testing.T) {
	r := &QualityReport{Characters: 1000}
	r.Warn("one sheet empty")
	r.Warn("encoding guessed")
	r.Finalize()
	assert.Equal(t, 0.84, r.Score)

	r.Fail("table extraction failed")
	r.Finalize()
	assert.Equal(t, 0.54, r.Score)
	assert.Equal(t, QualityFair, r.Level)
}

func TestFinalizeLowConfidenceOCR(t *testing.T) {
	r := &QualityReport{Characters: 1000, OCRUsed: true, OCRConfidence: 0.55}
	r.Finalize()
	assert.Equal(t, 0.8, r.Score)

	// Confident OCR costs nothing.
	r = &QualityReport{Characters: 1000, OCRUsed: true, OCRConfidence: 0.92}
	r.Finalize()
	assert.Equal(t, 1.0, r.Score)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	r := &QualityReport{Characters: 120, OCRUsed: true, OCRConfidence: 0.6}
	r.Warn("w")
	r.Fail("e")

	r.Finalize()
	first, firstLevel := r.Score, r.Level

	r.Finalize()
	assert.Equal(t, first, r.Score)
	assert.Equal(t, firstLevel, r.Level)
}

func TestScoreMonotonicAndClamped(t *testing.T) {
	base := &QualityReport{Characters: 1000}
	base.Finalize()

	prev := base.Score
	for i := 0; i < 20; i++ {
		base.Fail("err")
		base.Finalize()
		assert.LessOrEqual(t, base.Score, prev)
		assert.GreaterOrEqual(t, base.Score, 0.0)
		assert.LessOrEqual(t, base.Score, 1.0)
		prev = base.Score
	}
	assert.Equal(t, 0.0, base.Score)
	assert.Equal(t, QualityFailed, base.Level)
}

func TestLevelThresholds(t *testing.T) {
	assert.Equal(t, QualityExcellent, LevelForScore(0.9))
	assert.Equal(t, QualityGood, LevelForScore(0.89))
	assert.Equal(t, QualityGood, LevelForScore(0.7))
	assert.Equal(t, QualityFair, LevelForScore(0.69))
	assert.Equal(t, QualityFair, LevelForScore(0.5))
	assert.Equal(t, QualityPoor, LevelForScore(0.49))
	assert.Equal(t, QualityPoor, LevelForScore(0.2))
	assert.Equal(t, QualityFailed, LevelForScore(0.19))
}
