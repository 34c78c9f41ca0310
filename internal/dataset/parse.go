package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/essai1415/discount-analysis-dashboard/internal/errors"
)

// Format identifies the on-the-wire layout of a dataset file.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var zipMagic = []byte("PK\x03\x04")

// DetectFormat picks a parser from the file name, falling back to sniffing
// the zip signature that every xlsx workbook starts with.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// Parse decodes a workbook or CSV file into a Table. sheet selects the
// worksheet for xlsx input; empty means the first sheet.
func Parse(data []byte, name, sheet string) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch DetectFormat(name, data) {
	case FormatXLSX:
		rows, err = readWorkbook(data, sheet)
	default:
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to parse %s", name), err)
	}

	rows = dropBlankRows(rows)
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s has no header row", name), nil)
	}
	return NewTable(rows[0], rows[1:]), nil
}

func readWorkbook(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	// Raw values keep numbers unformatted and dates as serials, which the
	// typed accessors understand.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
