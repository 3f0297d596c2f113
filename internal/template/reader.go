// Package template reads the optional spreadsheet template whose first row
// defines the output column order. The spreadsheet capability is modeled as
// an injected Reader so hosts without a spreadsheet library fail with a
// clear input error only when a template is actually supplied.
package template

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"fapiao/internal/domain"
)

// SpreadsheetReader implements port.TemplateReader for xlsx/xls templates
// via excelize and CSV templates via encoding/csv. Headers come from the
// first row of the first sheet; CSV files are a single implicit sheet.
type SpreadsheetReader struct{}

// NewReader returns the default spreadsheet-backed reader.
func NewReader() *SpreadsheetReader {
	return &SpreadsheetReader{}
}

func (r *SpreadsheetReader) Headers(filename string, data []byte) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".csv" || ext == ".txt" {
		return csvHeaders(filename, data)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewInputError(filename, fmt.Errorf("opening workbook: %w", err))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewInputError(filename, fmt.Errorf("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, domain.NewInputError(filename, fmt.Errorf("reading sheet %q: %w", sheets[0], err))
	}
	if len(rows) == 0 {
		return nil, domain.NewInputError(filename, fmt.Errorf("template has no header row"))
	}
	return rows[0], nil
}

func csvHeaders(filename string, data []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	headers, err := reader.Read()
	if err == io.EOF {
		return nil, domain.NewInputError(filename, fmt.Errorf("template has no header row"))
	}
	if err != nil {
		return nil, domain.NewInputError(filename, fmt.Errorf("reading CSV: %w", err))
	}
	return headers, nil
}

// NotConfigured is the reader used when no spreadsheet capability is wired
// in. It fails fast, but only when a template is actually provided.
type NotConfigured struct{}

func (NotConfigured) Headers(filename string, _ []byte) ([]string, error) {
	return nil, domain.NewInputError(filename, domain.ErrTemplateUnavailable)
}
