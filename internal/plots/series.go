package plots

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// maxTrendSeries caps the per-brand lines of the brand trend chart.
const maxTrendSeries = 10

// axisValue turns a group key into an X value: day numbers stay numeric.
func axisValue(key string) any {
	if n, err := strconv.Atoi(key); err == nil {
		return n
	}
	return key
}

// buildMetricSeries runs the pipeline once per metric over the same
// dimension, one series each, and joins them into a table keyed by the
// dimension.
func buildMetricSeries(t *dataset.Table, def Definition, include map[string][]string) built {
	type cell struct {
		value float64
		ok    bool
	}

	var keys []string
	seen := make(map[string]bool)
	values := make(map[string][]cell)
	series := make([]Series, len(def.Metrics))
	rows := 0

	for mi, m := range def.Metrics {
		p := def.Pipeline
		p.Filter.Metric = m.Column
		p.Filter.Include = include
		p.Filter.Constraints = append(slices.Clone(p.Filter.Constraints), m.Constraints...)
		res := p.Run(t)
		rows = max(rows, res.Total)

		series[mi] = Series{Name: m.Name, Points: make([]Point, 0, len(res.Groups))}
		for _, g := range res.Groups {
			v := statValue(g, m.Stat)
			series[mi].Points = append(series[mi].Points, Point{X: axisValue(g.Key), Y: v})
			if !seen[g.Key] {
				seen[g.Key] = true
				keys = append(keys, g.Key)
				values[g.Key] = make([]cell, len(def.Metrics))
			}
			values[g.Key][mi] = cell{value: round2(v), ok: true}
		}
	}
	if len(keys) == 0 {
		return built{}
	}

	sortKeys(keys, def.Pipeline.Order)

	columns := []string{def.XLabel}
	for _, m := range def.Metrics {
		columns = append(columns, m.Name)
	}
	tableRows := make([][]any, len(keys))
	for i, key := range keys {
		row := []any{axisValue(key)}
		for _, c := range values[key] {
			if c.ok {
				row = append(row, c.value)
			} else {
				row = append(row, nil)
			}
		}
		tableRows[i] = row
	}

	chart := &Chart{
		Type:   def.Chart,
		Title:  def.Title,
		XLabel: def.XLabel,
		YLabel: def.YLabel,
		Series: series,
	}
	if def.Shape == ShapeBucket {
		chart.Categories = keys
	}
	return built{
		chart: chart,
		table: &Table{Columns: columns, Rows: tableRows},
		rows:  rows,
	}
}

// sortKeys orders the union of keys from several series the way a single
// pipeline would: explicit order first, otherwise by key.
func sortKeys(keys []string, spec analysis.OrderSpec) {
	if len(spec.Explicit) > 0 {
		pos := make(map[string]int, len(spec.Explicit))
		for i, k := range spec.Explicit {
			pos[k] = i
		}
		slices.SortStableFunc(keys, func(a, b string) int {
			pa, aok := pos[a]
			pb, bok := pos[b]
			switch {
			case aok && bok:
				return cmp.Compare(pa, pb)
			case aok:
				return -1
			case bok:
				return 1
			}
			return 0
		})
		return
	}
	slices.SortStableFunc(keys, func(a, b string) int {
		an, aerr := strconv.Atoi(a)
		bn, berr := strconv.Atoi(b)
		if aerr == nil && berr == nil {
			return cmp.Compare(an, bn)
		}
		return cmp.Compare(a, b)
	})
}

// buildDailyByGroup draws one daily mean-discount line per brand, keeping
// the brands with the most transactions.
func buildDailyByGroup(t *dataset.Table, def Definition, include map[string][]string) built {
	p := def.Pipeline
	p.Filter.Include = include
	view := analysis.Filter(t, p.Filter)
	summary := analysis.Aggregate(view, p.Aggregate)
	if summary.Len() == 0 {
		return built{}
	}

	type brandTotal struct {
		name  string
		count int
		first int
	}
	totals := make(map[string]*brandTotal)
	var brands []*brandTotal
	for _, g := range summary.Groups() {
		_, brand := splitKey(g.Key)
		bt, ok := totals[brand]
		if !ok {
			bt = &brandTotal{name: brand, first: g.FirstSeen}
			totals[brand] = bt
			brands = append(brands, bt)
		}
		bt.count += g.Count
	}
	slices.SortStableFunc(brands, func(a, b *brandTotal) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.first, b.first)
	})
	if len(brands) > maxTrendSeries {
		brands = brands[:maxTrendSeries]
	}

	keep := make(map[string]int, len(brands))
	series := make([]Series, len(brands))
	for i, b := range brands {
		keep[b.name] = i
		series[i] = Series{Name: b.name}
	}

	groups := analysis.Order(summary, analysis.OrderSpec{By: analysis.StatKey, Direction: analysis.Ascending})
	slices.SortStableFunc(groups, func(a, b analysis.Group) int {
		da, _ := splitKey(a.Key)
		db, _ := splitKey(b.Key)
		na, _ := strconv.Atoi(da)
		nb, _ := strconv.Atoi(db)
		return cmp.Compare(na, nb)
	})

	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		day, brand := splitKey(g.Key)
		i, ok := keep[brand]
		if !ok {
			continue
		}
		series[i].Points = append(series[i].Points, Point{X: axisValue(day), Y: g.Mean})
		rows = append(rows, []any{axisValue(day), brand, round2(g.Mean), g.Count})
	}

	return built{
		chart: &Chart{
			Type:   ChartLine,
			Title:  def.Title,
			XLabel: def.XLabel,
			YLabel: def.YLabel,
			Series: series,
		},
		table: &Table{
			Columns: []string{"Day", "Brand", "Avg_Discount", "Number_of_Transactions"},
			Rows:    rows,
		},
		rows: view.Len(),
	}
}

// buildDailyReturns counts returned items per day of month.
func buildDailyReturns(t *dataset.Table, def Definition, include map[string][]string) built {
	res := runPipeline(t, def, include)
	if len(res.Groups) == 0 {
		return built{}
	}

	points := make([]Point, len(res.Groups))
	rows := make([][]any, len(res.Groups))
	for i, g := range res.Groups {
		points[i] = Point{X: axisValue(g.Key), Y: float64(g.Count)}
		rows[i] = []any{axisValue(g.Key), g.Count, round2(g.Sum)}
	}

	return built{
		chart: &Chart{
			Type:   ChartLine,
			Title:  def.Title,
			XLabel: def.XLabel,
			YLabel: def.YLabel,
			Series: []Series{{Name: "Returned Items", Points: points}},
		},
		table: &Table{
			Columns: []string{"Day", "Returned_Items", "Returned_Value"},
			Rows:    rows,
		},
		rows: res.Total,
	}
}
