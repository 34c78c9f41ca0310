package plots

import (
	"slices"

	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// maxScatterPoints caps the points sent to the browser. Statistics always
// use every row.
const maxScatterPoints = 5000

func buildScatter(t *dataset.Table, def Definition, include map[string][]string) built {
	spec := def.Pipeline.Filter
	spec.Include = include
	view := analysis.Filter(t, spec)
	if view.Len() == 0 {
		return built{}
	}

	xs := make([]float64, view.Len())
	for i, row := range view.Rows {
		xs[i], _ = t.Float(row, spec.Dimension)
	}
	ys := view.Values

	step := 1
	if n := len(xs); n > maxScatterPoints {
		step = (n + maxScatterPoints - 1) / maxScatterPoints
	}
	points := make([]Point, 0, len(xs)/step+1)
	for i := 0; i < len(xs); i += step {
		points = append(points, Point{X: xs[i], Y: ys[i]})
	}

	chart := &Chart{
		Type:   ChartScatter,
		Title:  def.Title,
		XLabel: def.XLabel,
		YLabel: def.YLabel,
		Series: []Series{{Name: "Transactions", Points: points}},
	}

	r, hasR := analysis.Pearson(xs, ys)
	if hasR {
		chart.Annotations = append(chart.Annotations, Annotation{
			Text:     "r = " + printer.Sprintf("%.2f", r),
			Position: "bottom-right",
		})
	}
	if slope, intercept, ok := analysis.LinearFit(xs, ys); ok {
		lo, hi := slices.Min(xs), slices.Max(xs)
		chart.Series = append(chart.Series, Series{
			Name: "Trend",
			Type: ChartLine,
			Points: []Point{
				{X: lo, Y: slope*lo + intercept},
				{X: hi, Y: slope*hi + intercept},
			},
		})
	}

	var table *Table
	if def.Deciles > 0 {
		table = decileTable(view, xs, def)
	}
	if table == nil {
		table = scatterSummary(def, xs, ys, r, hasR)
	}
	return built{chart: chart, table: table, rows: view.Len()}
}

func scatterSummary(def Definition, xs, ys []float64, r float64, hasR bool) *Table {
	dx := analysis.Describe(xs)
	dy := analysis.Describe(ys)
	corr := "n/a"
	if hasR {
		corr = correlationStrength(r)
	}
	return &Table{
		Columns: []string{"Metric", "Value"},
		Rows: [][]any{
			{"Valid Records", len(xs)},
			{"Correlation Coefficient", corr},
			{"Avg " + def.XLabel, round2(dx.Mean)},
			{"Avg Discount", round2(dy.Mean)},
			{"Max Discount Given", round2(dy.Max)},
			{"Min Discount Given", round2(dy.Min)},
		},
	}
}

// decileTable bins the x values into equal-frequency bands and totals the
// discount per band, with an ALL row first.
func decileTable(view analysis.View, xs []float64, def Definition) *Table {
	bands, err := analysis.Deciles(xs, def.Deciles)
	if err != nil {
		return nil
	}

	banded := analysis.View{Table: view.Table, Metric: view.Metric}
	for i, row := range view.Rows {
		label, ok := bands.Assign(xs[i])
		if !ok {
			continue
		}
		banded.Rows = append(banded.Rows, row)
		banded.Keys = append(banded.Keys, label)
		banded.Values = append(banded.Values, view.Values[i])
	}
	summary := analysis.Aggregate(banded, analysis.AggregateSpec{})

	var total float64
	for _, v := range banded.Values {
		total += v
	}
	rows := [][]any{{"ALL", "ALL", banded.Len(), round2(total), round2(total / float64(max(banded.Len(), 1)))}}
	for i, label := range bands.Order() {
		g := summary.Lookup(label)
		rows = append(rows, []any{label, bands.Range(i), g.Count, round2(g.Sum), round2(g.Mean)})
	}
	return &Table{
		Title:   def.XLabel + " bands",
		Columns: []string{"Band", def.XLabel + " Range", "Number_of_Transactions", "Total_Discount", "Avg_Discount_Per_Transaction"},
		Rows:    rows,
	}
}
