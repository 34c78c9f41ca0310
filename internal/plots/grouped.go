package plots

import (
	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

func runPipeline(t *dataset.Table, def Definition, include map[string][]string) analysis.Result {
	p := def.Pipeline
	p.Filter.Include = include
	return p.Run(t)
}

// buildCategory charts the mean discount per category.
func buildCategory(t *dataset.Table, def Definition, include map[string][]string) built {
	res := runPipeline(t, def, include)
	if len(res.Groups) == 0 {
		return built{}
	}

	categories := make([]string, len(res.Groups))
	points := make([]Point, len(res.Groups))
	rows := make([][]any, len(res.Groups))
	for i, g := range res.Groups {
		categories[i] = g.Key
		points[i] = Point{X: g.Key, Y: g.Mean, Label: formatAmount(g.Mean)}
		rows[i] = []any{g.Key, round2(g.Sum), g.Count, round2(g.Mean)}
	}

	return built{
		chart: &Chart{
			Type:       def.Chart,
			Title:      def.Title,
			XLabel:     def.XLabel,
			YLabel:     def.YLabel,
			Categories: categories,
			Series:     []Series{{Name: def.YLabel, Points: points}},
		},
		table: &Table{
			Columns: []string{def.XLabel, "Total_Discount", "Number_of_Transactions", "Avg_Discount_Per_Transaction"},
			Rows:    rows,
		},
		rows: res.Total,
	}
}

// buildBox summarises the discount distribution of each category.
func buildBox(t *dataset.Table, def Definition, include map[string][]string) built {
	spec := def.Pipeline.Filter
	spec.Include = include
	view := analysis.Filter(t, spec)
	if view.Len() == 0 {
		return built{}
	}

	values := make(map[string][]float64)
	for i, key := range view.Keys {
		values[key] = append(values[key], view.Values[i])
	}
	groups := analysis.Order(analysis.Aggregate(view, def.Pipeline.Aggregate), def.Pipeline.Order)

	stats := []string{"min", "q1", "median", "q3", "max", "mean"}
	series := make([]Series, len(stats))
	for i, name := range stats {
		series[i] = Series{Name: name, Points: make([]Point, 0, len(groups))}
	}
	categories := make([]string, len(groups))
	rows := make([][]any, len(groups))
	for i, g := range groups {
		d := analysis.Describe(values[g.Key])
		categories[i] = g.Key
		for j, v := range []float64{d.Min, d.Q1, d.Q2, d.Q3, d.Max, d.Mean} {
			series[j].Points = append(series[j].Points, Point{X: g.Key, Y: v})
		}
		rows[i] = []any{g.Key, d.Count, round2(d.Min), round2(d.Q1), round2(d.Q2), round2(d.Q3), round2(d.Max), round2(d.Mean)}
	}

	return built{
		chart: &Chart{
			Type:       ChartBox,
			Title:      def.Title,
			XLabel:     def.XLabel,
			YLabel:     def.YLabel,
			Categories: categories,
			Series:     series,
		},
		table: &Table{
			Columns: []string{def.XLabel, "Count", "Min", "Q1", "Median", "Q3", "Max", "Mean"},
			Rows:    rows,
		},
		rows: view.Len(),
	}
}

// buildComponents totals each discount component and its share of the
// overall discount over the same rows.
func buildComponents(t *dataset.Table, def Definition, include map[string][]string) built {
	spec := def.Pipeline.Filter
	spec.Include = include

	totalSpec := spec
	totalSpec.Metric = dataset.ColDiscount
	totalSpec.Key = constKey("Total Discount")
	totalView := analysis.Filter(t, totalSpec)
	if totalView.Len() == 0 {
		return built{}
	}
	total := analysis.Aggregate(totalView, analysis.AggregateSpec{}).Lookup("Total Discount")

	categories := make([]string, 0, len(def.Metrics))
	points := make([]Point, 0, len(def.Metrics))
	rows := [][]any{{"Total Discount", round2(total.Sum), 100.0}}
	// Every component is summed over the rows of the total; a missing cell
	// counts as zero so the shares stay comparable.
	for _, m := range def.Metrics {
		var sum float64
		for _, row := range totalView.Rows {
			if v, ok := t.Float(row, m.Column); ok {
				sum += v
			}
		}
		var share float64
		if total.Sum != 0 {
			share = sum / total.Sum * 100
		}

		categories = append(categories, m.Name)
		points = append(points, Point{X: m.Name, Y: sum, Label: formatPercent(share)})
		rows = append(rows, []any{m.Name, round2(sum), round2(share)})
	}

	return built{
		chart: &Chart{
			Type:       ChartBarH,
			Title:      "Discount Share",
			XLabel:     def.XLabel,
			Categories: categories,
			Series:     []Series{{Name: "Amount", Points: points}},
		},
		table: &Table{
			Columns: []string{"Component", "Amount (₹)", "Share (%)"},
			Rows:    rows,
		},
		rows: totalView.Len(),
	}
}

// buildCross charts the mean discount per region with one series per brand.
func buildCross(t *dataset.Table, def Definition, include map[string][]string) built {
	res := runPipeline(t, def, include)
	if len(res.Groups) == 0 {
		return built{}
	}

	var categories []string
	seenCategory := make(map[string]bool)
	var series []Series
	seriesIndex := make(map[string]int)
	rows := make([][]any, 0, len(res.Groups))

	for _, g := range res.Groups {
		region, brand := splitKey(g.Key)
		if !seenCategory[region] {
			seenCategory[region] = true
			categories = append(categories, region)
		}
		i, ok := seriesIndex[brand]
		if !ok {
			i = len(series)
			seriesIndex[brand] = i
			series = append(series, Series{Name: brand})
		}
		series[i].Points = append(series[i].Points, Point{X: region, Y: g.Mean})
		rows = append(rows, []any{region, brand, round2(g.Mean), g.Count})
	}

	return built{
		chart: &Chart{
			Type:       ChartGroupedBar,
			Title:      def.Title,
			XLabel:     def.XLabel,
			YLabel:     def.YLabel,
			Categories: categories,
			Series:     series,
		},
		table: &Table{
			Columns: []string{"Region", "Brand", "Avg_Discount", "Number_of_Transactions"},
			Rows:    rows,
		},
		rows: res.Total,
	}
}

// buildWeekday charts the mean per-row discount percentage of each weekday.
func buildWeekday(t *dataset.Table, def Definition, include map[string][]string) built {
	res := runPipeline(t, def, include)
	if len(res.Groups) == 0 {
		return built{}
	}

	categories := make([]string, len(res.Groups))
	points := make([]Point, len(res.Groups))
	rows := make([][]any, len(res.Groups))
	for i, g := range res.Groups {
		categories[i] = g.Key
		points[i] = Point{X: g.Key, Y: g.Ratio, Label: formatPercent(g.Ratio)}
		rows[i] = []any{g.Key, round2(g.Ratio), g.RatioCount}
	}

	return built{
		chart: &Chart{
			Type:       ChartBar,
			Title:      def.Title,
			YLabel:     def.YLabel,
			Categories: categories,
			Series:     []Series{{Name: def.YLabel, Points: points}},
		},
		table: &Table{
			Columns: []string{"Day", "Avg_Discount_Pct", "Number_of_Transactions"},
			Rows:    rows,
		},
		rows: res.Total,
	}
}
