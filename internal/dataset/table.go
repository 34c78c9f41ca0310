package dataset

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Table is a read-only columnar view of the transaction sheet.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable normalises the header and pads short rows to the header width.
// Duplicate header names keep their first occurrence.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{
		columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
		rows:    make([][]string, 0, len(rows)),
	}
	for i, h := range header {
		name := NormalizeHeader(h)
		t.columns[i] = name
		if _, dup := t.index[name]; !dup && name != "" {
			t.index[name] = i
		}
	}
	for _, row := range rows {
		cells := make([]string, len(header))
		for i := 0; i < len(header) && i < len(row); i++ {
			cells[i] = strings.TrimSpace(row[i])
		}
		t.rows = append(t.rows, cells)
	}
	return t
}

// NormalizeHeader lower-cases and trims a column header.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Columns returns the normalised header in source order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Has reports whether the column exists.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Missing returns the subset of cols that the table does not have.
func (t *Table) Missing(cols ...string) []string {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Raw returns the trimmed cell text. ok is false for an absent column or
// out-of-range row.
func (t *Table) Raw(row int, col string) (string, bool) {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return "", false
	}
	return t.rows[row][i], true
}

// Text returns the cell text, treating blank cells as missing.
func (t *Table) Text(row int, col string) (string, bool) {
	s, ok := t.Raw(row, col)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Distinct returns the sorted set of trimmed, non-blank values of col. An
// absent column yields nil.
func (t *Table) Distinct(col string) []string {
	if !t.Has(col) {
		return nil
	}
	seen := make(map[string]struct{})
	for row := range t.rows {
		s, ok := t.Text(row, col)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Float parses the cell as a finite number. Thousands separators are
// tolerated.
func (t *Table) Float(row int, col string) (float64, bool) {
	s, ok := t.Text(row, col)
	if !ok {
		return 0, false
	}
	return ParseFloat(s)
}

// ParseFloat parses a spreadsheet number.
func ParseFloat(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02-01-2006",
	"02/01/2006",
	"01-02-06",
	"1/2/06",
	"2-Jan-2006",
	"02-Jan-06",
}

// Date parses the cell as a calendar date. Plain numbers are read as Excel
// serial dates.
func (t *Table) Date(row int, col string) (time.Time, bool) {
	s, ok := t.Text(row, col)
	if !ok {
		return time.Time{}, false
	}
	return ParseDate(s)
}

// ParseDate accepts ISO layouts, dd-mm-yyyy, mm-dd-yy and Excel serials.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, false
		}
		tm, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return truncateDay(tm), true
	}
	for _, layout := range dateLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return truncateDay(tm), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
