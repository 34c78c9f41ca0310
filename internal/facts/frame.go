package facts

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// frame is the read-only row selection every section works on.
type frame struct {
	t    *dataset.Table
	rows []int
	opts Options
	// categorical columns hold at least one non-numeric value.
	categorical []string
}

func newFrame(t *dataset.Table, opts Options) *frame {
	f := &frame{t: t, opts: opts}
	for row := 0; row < t.Len(); row++ {
		if opts.ExcludeNegatives && !isSale(t, row) {
			continue
		}
		f.rows = append(f.rows, row)
	}
	f.categorical = f.categoricalColumns()
	return f
}

var saleConstraints = []analysis.Constraint{
	analysis.Gt0(dataset.ColQuantity),
	analysis.Gt0(dataset.ColValue),
	analysis.Gt0(dataset.ColWeight),
	analysis.Gte0(dataset.ColDiscount),
}

// isSale reports whether a row is a regular sale. Absent columns do not
// take part in the check.
func isSale(t *dataset.Table, row int) bool {
	for _, c := range saleConstraints {
		if !t.Has(c.Column) {
			continue
		}
		v, ok := t.Float(row, c.Column)
		if !ok || !c.Holds(v) {
			return false
		}
	}
	return true
}

func (f *frame) categoricalColumns() []string {
	var out []string
	for _, col := range f.t.Columns() {
		if col == "" || col == dataset.ColDocumentDate {
			continue
		}
		for _, row := range f.rows {
			s, ok := f.t.Text(row, col)
			if !ok {
				continue
			}
			if _, numeric := dataset.ParseFloat(s); !numeric {
				out = append(out, col)
				break
			}
		}
	}
	return out
}

// values returns the non-blank cells of col, skipping placeholders when
// clean is non-nil.
func (f *frame) values(col string, clean analysis.PlaceholderSet) []string {
	var out []string
	for _, row := range f.rows {
		s, ok := f.t.Text(row, col)
		if !ok || (clean != nil && clean.Contains(s)) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func distinct(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// valueCounts counts each value, most frequent first. Ties keep first
// appearance.
func valueCounts(values []string) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, v := range values {
		i, ok := index[v]
		if !ok {
			i = len(counts)
			index[v] = i
			counts = append(counts, Count{Key: v})
		}
		counts[i].Count++
	}
	slices.SortStableFunc(counts, func(a, b Count) int { return cmp.Compare(b.Count, a.Count) })
	return counts
}

// customerColumn finds the first column whose name mentions a customer.
func customerColumn(t *dataset.Table) (string, bool) {
	for _, col := range t.Columns() {
		if strings.Contains(col, "cust") {
			return col, true
		}
	}
	return "", false
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func unixDate(u int64) string {
	return time.Unix(u, 0).UTC().Format(dateLayout)
}
