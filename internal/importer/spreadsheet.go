package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidSpreadsheet is returned when the spreadsheet cannot be parsed
// or has an unsupported extension.
var ErrInvalidSpreadsheet = errors.New("spreadsheet could not be read")

// ExpectedColumns is the required spreadsheet width:
// identifier, description, shape, culture, comma-separated tags.
const ExpectedColumns = 5

// Sheet is raw tabular input: a header row plus data rows. Rows keep their
// original cell text; empty cells are empty strings.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// ReadSheet parses a spreadsheet by extension: .xlsx via excelize, .csv via
// the standard csv reader. The first row is the header.
func ReadSheet(filename string, r io.Reader) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readXLSX(r)
	case ".csv":
		return readCSV(r)
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q (want .xlsx or .csv)",
			ErrInvalidSpreadsheet, filepath.Ext(filename))
	}
}

func readXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidSpreadsheet)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	return fromRecords(rows)
}

func readCSV(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpreadsheet, err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) (*Sheet, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalidSpreadsheet)
	}

	s := &Sheet{Header: trimRow(records[0])}
	for _, row := range records[1:] {
		s.Rows = append(s.Rows, padRow(trimRow(row), len(s.Header)))
	}
	// Only trailing blank rows are dropped. An interior blank row keeps its
	// position so every later row is reported under its spreadsheet number;
	// validation flags it as a row with empty values.
	for len(s.Rows) > 0 && isEmptyRow(s.Rows[len(s.Rows)-1]) {
		s.Rows = s.Rows[:len(s.Rows)-1]
	}
	return s, nil
}

func trimRow(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	// Excel readers often report trailing empty cells; drop them so the
	// header width reflects the authored columns.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
