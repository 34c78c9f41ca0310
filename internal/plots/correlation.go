package plots

import (
	"cmp"
	"slices"

	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// correlationExcluded are numeric-looking columns that are identifiers or
// calendar parts rather than measures.
var correlationExcluded = map[string]bool{
	dataset.ColYear:       true,
	dataset.ColYearMonth:  true,
	dataset.ColCustomerID: true,
	dataset.ColBrand:      true,
	dataset.ColCategory:   true,
}

// numericColumns returns the columns whose every non-blank cell is a number
// and that have at least one value.
func numericColumns(t *dataset.Table) []string {
	var out []string
	for _, col := range t.Columns() {
		values := 0
		numeric := true
		for row := 0; row < t.Len(); row++ {
			raw, ok := t.Text(row, col)
			if !ok {
				continue
			}
			if _, ok := dataset.ParseFloat(raw); !ok {
				numeric = false
				break
			}
			values++
		}
		if numeric && values > 0 {
			out = append(out, col)
		}
	}
	return out
}

type correlation struct {
	column string
	r      float64
}

// buildCorrelation correlates each discount measure with every other numeric
// column, using the rows where both are present.
func buildCorrelation(t *dataset.Table, def Definition, include map[string][]string) built {
	numeric := numericColumns(t)
	isDiscount := make(map[string]bool, len(dataset.DiscountColumns))
	for _, c := range dataset.DiscountColumns {
		isDiscount[c] = true
	}

	var series []Series
	var rows [][]any
	total := 0
	for _, target := range dataset.DiscountColumns {
		if !slices.Contains(numeric, target) {
			continue
		}
		view := analysis.Filter(t, analysis.FilterSpec{
			Dimension: target,
			Key:       constKey(target),
			Metric:    target,
			Include:   include,
		})
		total = max(total, view.Len())

		var corrs []correlation
		for _, col := range numeric {
			if col == target || isDiscount[col] || correlationExcluded[col] {
				continue
			}
			var xs, ys []float64
			for i, row := range view.Rows {
				if v, ok := t.Float(row, col); ok {
					xs = append(xs, v)
					ys = append(ys, view.Values[i])
				}
			}
			if r, ok := analysis.Pearson(xs, ys); ok {
				corrs = append(corrs, correlation{column: col, r: r})
			}
		}
		slices.SortStableFunc(corrs, func(a, b correlation) int { return cmp.Compare(b.r, a.r) })

		s := Series{Name: target, Points: make([]Point, len(corrs))}
		for i, c := range corrs {
			s.Points[i] = Point{X: c.column, Y: c.r, Label: printer.Sprintf("%.2f", c.r)}
			rows = append(rows, []any{target, c.column, round2(c.r)})
		}
		if len(corrs) > 0 {
			series = append(series, s)
		}
	}
	if len(series) == 0 {
		return built{}
	}

	return built{
		chart: &Chart{
			Type:   ChartHeatmap,
			Title:  def.Title,
			Series: series,
		},
		table: &Table{
			Columns: []string{"Discount_Column", "Variable", "Correlation"},
			Rows:    rows,
		},
		rows: total,
	}
}
