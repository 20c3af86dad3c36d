// Package spreadsheet extracts text from tabular formats. Each sheet
// is rendered as a Markdown pipe table under a sheet heading so rows
// stay intact through chunking. Modern .xlsx workbooks are read with
// excelize, legacy .xls with xlsReader, and .csv with the standard
// CSV reader.
package spreadsheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
	"github.com/xuri/excelize/v2"

	"github.com/counselstack/corpus/internal/core/domain"
)

// Parser extracts text from spreadsheet content.
type Parser struct {
	format domain.Format
}

// New creates a spreadsheet parser for domain.FormatXLSX,
// domain.FormatXLS, or domain.FormatCSV.
func New(format domain.Format) *Parser {
	return &Parser{format: format}
}

// Parse renders the workbook as pipe tables. Empty sheets are skipped
// with a warning; each surviving sheet counts as one table.
func (p *Parser) Parse(ctx context.Context, data []byte) (string, *domain.QualityReport, error) {
	start := time.Now()
	report := &domain.QualityReport{
		Format: p.format,
	}
	defer func() {
		report.ParseDuration = time.Since(start)
		report.Finalize()
	}()

	var (
		sheets []sheetData
		err    error
	)
	switch p.format {
	case domain.FormatXLSX:
		report.Engine = "native/xlsx"
		sheets, err = readXLSX(data)
	case domain.FormatXLS:
		report.Engine = "native/xls"
		sheets, err = readXLS(data)
	case domain.FormatCSV:
		report.Engine = "native/csv"
		sheets, err = readCSV(data)
	default:
		return "", nil, domain.ErrUnsupportedFormat
	}
	if err != nil {
		report.Fail(fmt.Sprintf("unable to read workbook: %v", err))
		return "", report, nil
	}

	var out strings.Builder
	for _, s := range sheets {
		if s.empty() {
			report.Warn(fmt.Sprintf("sheet %q is empty and was skipped", s.name))
			continue
		}
		report.Tables++
		if s.name != "" {
			out.WriteString("## " + s.name + "\n\n")
		}
		writeTable(&out, s.rows)
		out.WriteByte('\n')
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		report.Fail("workbook contains no data")
		return "", report, nil
	}

	report.Characters = len([]rune(text))
	return text, report, nil
}

type sheetData struct {
	name string
	rows [][]string
}

func (s sheetData) empty() bool {
	for _, row := range s.rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
	}
	return true
}

func readXLSX(data []byte) ([]sheetData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sheets []sheetData
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheetData{name: name, rows: rows})
	}
	return sheets, nil
}

func readXLS(data []byte) ([]sheetData, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var sheets []sheetData
	for i := 0; i < wb.GetNumberSheets(); i++ {
		sheet, err := wb.GetSheet(i)
		if err != nil || sheet == nil {
			continue
		}
		var rows [][]string
		for _, row := range sheet.GetRows() {
			rows = append(rows, cellValues(row.GetCols()))
		}
		sheets = append(sheets, sheetData{name: sheet.GetName(), rows: rows})
	}
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no readable sheets")
	}
	return sheets, nil
}

func cellValues(cols []structure.CellData) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		val := col.GetString()
		if val == "" {
			if num := col.GetFloat64(); num != 0 {
				val = strconv.FormatFloat(num, 'f', -1, 64)
			} else if in := col.GetInt64(); in != 0 {
				val = strconv.FormatInt(in, 10)
			}
		}
		out = append(out, val)
	}
	return out
}

func readCSV(data []byte) ([]sheetData, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return []sheetData{{rows: rows}}, nil
}

// writeTable renders rows as a Markdown pipe table. The first row is
// treated as the header.
func writeTable(out *strings.Builder, rows [][]string) {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return
	}

	for i, row := range rows {
		out.WriteString("|")
		for c := 0; c < width; c++ {
			val := ""
			if c < len(row) {
				val = sanitizeCell(row[c])
			}
			out.WriteString(" " + val + " |")
		}
		out.WriteByte('\n')
		if i == 0 {
			out.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
		}
	}
}

// sanitizeCell keeps cell content from breaking the pipe-table layout.
func sanitizeCell(val string) string {
	val = strings.ReplaceAll(val, "\n", " ")
	val = strings.ReplaceAll(val, "|", "\\|")
	return strings.TrimSpace(val)
}
