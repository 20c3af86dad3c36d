package spreadsheet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/counselstack/corpus/internal/core/domain"
)

func TestParseCSV(t *testing.T) {
	p := New(domain.FormatCSV)
	data := []byte("name,rate\nreview,400\ndrafting,350\n")

	text, report, err := p.Parse(context.Background(), data)
	require.NoError(t, err)

	assert.Contains(t, text, "| name | rate |")
	assert.Contains(t, text, "| --- | --- |")
	assert.Contains(t, text, "| review | 400 |")
	assert.Contains(t, text, "| drafting | 350 |")
	assert.Equal(t, 1, report.Tables)
	assert.Empty(t, report.Errors)
}

func TestParseCSVRaggedRows(t *testing.T) {
	p := New(domain.FormatCSV)
	data := []byte("a,b,c\n1,2\n")

	text, _, err := p.Parse(context.Background(), data)
	require.NoError(t, err)

	assert.Contains(t, text, "| a | b | c |")
	assert.Contains(t, text, "| 1 | 2 |  |")
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "matter"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "hours"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "discovery"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 12))
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	p := New(domain.FormatXLSX)
	text, report, perr := p.Parse(context.Background(), buf.Bytes())
	require.NoError(t, perr)

	assert.Contains(t, text, "## Sheet1")
	assert.Contains(t, text, "| matter | hours |")
	assert.Contains(t, text, "| discovery | 12 |")
	assert.NotContains(t, text, "## Empty")
	assert.Equal(t, 1, report.Tables)
	assert.NotEmpty(t, report.Warnings)
}

func TestParseCorruptWorkbook(t *testing.T) {
	p := New(domain.FormatXLSX)

	text, report, err := p.Parse(context.Background(), []byte("not a workbook"))
	require.NoError(t, err)

	assert.Empty(t, text)
	assert.NotEmpty(t, report.Errors)
}

func TestSanitizeCell(t *testing.T) {
	assert.Equal(t, "a b", sanitizeCell("a\nb"))
	assert.Equal(t, `x \| y`, sanitizeCell("x | y"))
}
