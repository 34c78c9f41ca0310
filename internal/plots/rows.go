package plots

import (
	"cmp"
	"slices"

	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

const (
	groupWithDiscount    = "With Discount"
	groupWithoutDiscount = "Without Discount"
	customerNew          = "New Customers"
	customerExisting     = "Existing Customers"
)

// buildTopRows charts the largest single-row discounts, labelled by date and
// location, smallest first so the largest sits at the top.
func buildTopRows(t *dataset.Table, def Definition, include map[string][]string) built {
	spec := def.Pipeline.Filter
	spec.Include = include
	view := analysis.Filter(t, spec)
	if view.Len() == 0 {
		return built{}
	}

	idx := make([]int, view.Len())
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(view.Values[b], view.Values[a])
	})
	if n := def.Pipeline.Order.TopN; n > 0 && len(idx) > n {
		idx = idx[:n]
	}
	slices.Reverse(idx)

	categories := make([]string, len(idx))
	points := make([]Point, len(idx))
	rows := make([][]any, len(idx))
	for i, j := range idx {
		label := view.Keys[j]
		value, _ := t.Float(view.Rows[j], dataset.ColValue)
		categories[i] = label
		points[i] = Point{X: label, Y: view.Values[j], Label: formatAmount(view.Values[j])}
		rows[i] = []any{label, round2(view.Values[j]), round2(value)}
	}

	return built{
		chart: &Chart{
			Type:       ChartLollipop,
			Title:      def.Title,
			XLabel:     def.XLabel,
			Categories: categories,
			Series:     []Series{{Name: "Discount", Points: points}},
		},
		table: &Table{
			Columns: []string{"Date | Location", "Discount", "Value"},
			Rows:    rows,
		},
		rows: view.Len(),
	}
}

// buildReturnRate splits customers by whether they ever received a discount
// and reports the share of each group with at least one return.
func buildReturnRate(t *dataset.Table, def Definition, include map[string][]string) built {
	spec := def.Pipeline.Filter
	spec.Include = include
	view := analysis.Filter(t, spec)
	if view.Len() == 0 {
		return built{}
	}

	type flags struct {
		first      int
		discounted bool
		returned   bool
	}
	customers := make(map[string]*flags)
	var order []string
	for i, row := range view.Rows {
		id := view.Keys[i]
		f, ok := customers[id]
		if !ok {
			f = &flags{first: row}
			customers[id] = f
			order = append(order, id)
		}
		if d, ok := t.Float(row, dataset.ColDiscount); ok && d > 0 {
			f.discounted = true
		}
		if isReturn(t, row) {
			f.returned = true
		}
	}

	perCustomer := analysis.View{Table: t}
	for _, id := range order {
		f := customers[id]
		group := groupWithoutDiscount
		if f.discounted {
			group = groupWithDiscount
		}
		returned := 0.0
		if f.returned {
			returned = 1
		}
		perCustomer.Rows = append(perCustomer.Rows, f.first)
		perCustomer.Keys = append(perCustomer.Keys, group)
		perCustomer.Values = append(perCustomer.Values, returned)
	}
	groups := analysis.Order(analysis.Aggregate(perCustomer, analysis.AggregateSpec{}), def.Pipeline.Order)

	categories := make([]string, len(groups))
	points := make([]Point, len(groups))
	rows := make([][]any, len(groups))
	for i, g := range groups {
		rate := g.Mean * 100
		categories[i] = g.Key
		points[i] = Point{X: g.Key, Y: rate, Label: formatPercent(rate)}
		rows[i] = []any{g.Key, g.Count, int(g.Sum), round2(rate)}
	}

	return built{
		chart: &Chart{
			Type:       ChartBar,
			Title:      def.Title,
			XLabel:     def.XLabel,
			YLabel:     def.YLabel,
			Categories: categories,
			Series:     []Series{{Name: def.YLabel, Points: points}},
		},
		table: &Table{
			Columns: []string{"Customer Group", "Customers", "Customers_With_Returns", "Return_Rate_Pct"},
			Rows:    rows,
		},
		rows: view.Len(),
	}
}

// buildCustomerType labels each customer's earliest transaction New and the
// rest Existing, then averages discounts between 0 and 100 per label. Undated
// transactions sort after dated ones and ties keep source order.
func buildCustomerType(t *dataset.Table, def Definition, include map[string][]string) built {
	spec := def.Pipeline.Filter
	spec.Include = include
	view := analysis.Filter(t, spec)

	type first struct {
		row   int
		date  int64
		dated bool
	}
	earlier := func(a, b first) bool {
		if a.dated != b.dated {
			return a.dated
		}
		if a.dated && a.date != b.date {
			return a.date < b.date
		}
		return a.row < b.row
	}
	firsts := make(map[string]first)
	for i, row := range view.Rows {
		c := first{row: row}
		if d, ok := t.Date(row, dataset.ColDocumentDate); ok {
			c.date, c.dated = d.Unix(), true
		}
		id := view.Keys[i]
		if f, seen := firsts[id]; !seen || earlier(c, f) {
			firsts[id] = c
		}
	}

	typed := analysis.View{Table: t}
	within := analysis.Constraint{Column: dataset.ColDiscount, Sign: analysis.Within, Min: 0, Max: 100}
	for i, row := range view.Rows {
		// Rows without a discount still decide who is new but are not averaged.
		if _, ok := t.Float(row, dataset.ColDiscount); !ok || !within.Holds(view.Values[i]) {
			continue
		}
		label := customerExisting
		if firsts[view.Keys[i]].row == row {
			label = customerNew
		}
		typed.Rows = append(typed.Rows, row)
		typed.Keys = append(typed.Keys, label)
		typed.Values = append(typed.Values, view.Values[i])
	}
	groups := analysis.Order(analysis.Aggregate(typed, analysis.AggregateSpec{}), def.Pipeline.Order)
	if len(groups) == 0 {
		return built{}
	}

	categories := make([]string, len(groups))
	points := make([]Point, len(groups))
	rows := make([][]any, len(groups))
	for i, g := range groups {
		mean := round2(g.Mean)
		categories[i] = g.Key
		points[i] = Point{X: g.Key, Y: mean, Label: printer.Sprintf("%.2f", mean)}
		rows[i] = []any{g.Key, mean, g.Count}
	}

	return built{
		chart: &Chart{
			Type:       ChartBar,
			Title:      def.Title,
			XLabel:     def.XLabel,
			YLabel:     def.YLabel,
			Categories: categories,
			Series:     []Series{{Name: def.YLabel, Points: points}},
		},
		table: &Table{
			Columns: []string{"Customer Type", "Avg_Discount", "Number_of_Transactions"},
			Rows:    rows,
		},
		rows: typed.Len(),
	}
}
