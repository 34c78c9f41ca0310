package plots

import (
	"strconv"
	"strings"

	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// keySep joins the parts of composite group keys.
const keySep = "\x1f"

func splitKey(key string) (string, string) {
	a, b, _ := strings.Cut(key, keySep)
	return a, b
}

// rawKey groups by the trimmed cell value without normalisation.
func rawKey(col string) analysis.KeyFunc {
	return func(t *dataset.Table, row int) (string, bool) {
		return t.Text(row, col)
	}
}

func constKey(key string) analysis.KeyFunc {
	return func(*dataset.Table, int) (string, bool) { return key, true }
}

func dayOfMonthKey(t *dataset.Table, row int) (string, bool) {
	d, ok := t.Date(row, dataset.ColDocumentDate)
	if !ok {
		return "", false
	}
	return strconv.Itoa(d.Day()), true
}

func weekdayKey(t *dataset.Table, row int) (string, bool) {
	d, ok := t.Date(row, dataset.ColDocumentDate)
	if !ok {
		return "", false
	}
	return d.Weekday().String(), true
}

func dateLocationKey(t *dataset.Table, row int) (string, bool) {
	d, ok := t.Date(row, dataset.ColDocumentDate)
	if !ok {
		return "", false
	}
	loc, ok := t.Text(row, dataset.ColLocationCode)
	if !ok {
		return "", false
	}
	return d.Format("2006-01-02") + " | " + loc, true
}

// pairKey groups by two upper-cased, placeholder-cleaned columns.
func pairKey(a, b string) analysis.KeyFunc {
	placeholders := analysis.DefaultPlaceholderSet()
	return func(t *dataset.Table, row int) (string, bool) {
		va, _ := t.Raw(row, a)
		vb, _ := t.Raw(row, b)
		if placeholders.Contains(va) || placeholders.Contains(vb) {
			return "", false
		}
		return analysis.NormalizeUpper.Apply(va) + keySep + analysis.NormalizeUpper.Apply(vb), true
	}
}

// dayGroupKey groups by day of month and the trimmed value of col.
func dayGroupKey(col string) analysis.KeyFunc {
	placeholders := analysis.DefaultPlaceholderSet()
	return func(t *dataset.Table, row int) (string, bool) {
		day, ok := dayOfMonthKey(t, row)
		if !ok {
			return "", false
		}
		v, _ := t.Raw(row, col)
		if placeholders.Contains(v) {
			return "", false
		}
		return day + keySep + strings.TrimSpace(v), true
	}
}

// isReturn reports whether a row is a returned item: negative quantity or
// negative value.
func isReturn(t *dataset.Table, row int) bool {
	if q, ok := t.Float(row, dataset.ColQuantity); ok && q < 0 {
		return true
	}
	if v, ok := t.Float(row, dataset.ColValue); ok && v < 0 {
		return true
	}
	return false
}

func returnedDayKey(t *dataset.Table, row int) (string, bool) {
	if !isReturn(t, row) {
		return "", false
	}
	return dayOfMonthKey(t, row)
}
