package facts

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

const dateLayout = "2006-01-02"

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func missingColumn(col string) string {
	return fmt.Sprintf("Column %q missing.", col)
}

func customerMix(f *frame, notice func(string)) func(*Facts) {
	cust, ok := customerColumn(f.t)
	if !ok || !f.t.Has(dataset.ColDocumentDate) {
		notice("Customer or Date column missing.")
		return nil
	}

	first := make(map[string]int64)
	type tx struct {
		customer string
		day      int64
	}
	var txs []tx
	for _, row := range f.rows {
		id, ok := f.t.Text(row, cust)
		if !ok {
			continue
		}
		d, ok := f.t.Date(row, dataset.ColDocumentDate)
		if !ok {
			continue
		}
		day := d.Unix()
		if seen, ok := first[id]; !ok || day < seen {
			first[id] = day
		}
		txs = append(txs, tx{customer: id, day: day})
	}
	if len(txs) == 0 {
		notice("No dated customer transactions.")
		return nil
	}

	mix := CustomerMix{Total: len(txs)}
	for _, t := range txs {
		if t.day == first[t.customer] {
			mix.New++
		} else {
			mix.Repeat++
		}
	}
	mix.NewPct = round2(float64(mix.New) / float64(mix.Total) * 100)
	mix.RepeatPct = round2(float64(mix.Repeat) / float64(mix.Total) * 100)
	return func(out *Facts) { out.CustomerMix = &mix }
}

type factKind int

const (
	factUnique factKind = iota
	factCleaned
	factDateRange
	factBillTypes
)

var highLevelFacts = []struct {
	label string
	col   string
	kind  factKind
}{
	{"Unique Brands", dataset.ColBrand, factUnique},
	{"Regions Covered", dataset.ColRegion, factCleaned},
	{"Retail Levels", dataset.ColChannelLevel, factUnique},
	{"Years Available", dataset.ColYear, factUnique},
	{"YearMonth Patterns", dataset.ColYearMonth, factUnique},
	{"Months in Data", dataset.ColMonth, factUnique},
	{"Date Range", dataset.ColDocumentDate, factDateRange},
	{"Unique Locations", dataset.ColLocationCode, factUnique},
	{"Retail Clusters", dataset.ColRetailCluster, factCleaned},
	{"Bill Discount Types", dataset.ColBillDiscount, factBillTypes},
	{"Categories", dataset.ColCategory, factCleaned},
	{"EC Bands (Total)", dataset.ColTotalECBand, factCleaned},
	{"Cluster EC Bands", dataset.ColClusterECBand, factCleaned},
	{"Price Bands", dataset.ColPriceBand, factCleaned},
	{"AMCB Bands", dataset.ColMakingChargeBand, factUnique},
	{"Unique Customers", dataset.ColCustomerID, factCleaned},
}

func highLevel(f *frame, notice func(string)) func(*Facts) {
	placeholders := analysis.DefaultPlaceholderSet()
	facts := make([]Fact, 0, len(highLevelFacts))

	for _, h := range highLevelFacts {
		if !f.t.Has(h.col) {
			notice(fmt.Sprintf("%s skipped: %s", h.label, missingColumn(h.col)))
			continue
		}
		switch h.kind {
		case factUnique:
			facts = append(facts, Fact{Label: h.label, Value: distinct(f.values(h.col, nil))})
		case factCleaned:
			facts = append(facts, Fact{Label: h.label, Value: distinct(f.values(h.col, placeholders))})
		case factDateRange:
			lo, hi, ok := f.dateRange()
			if !ok {
				notice(h.label + " skipped: no valid dates.")
				continue
			}
			facts = append(facts, Fact{Label: h.label, Value: lo + " to " + hi})
		case factBillTypes:
			n := distinct(f.values(h.col, nil))
			if f.anyPositive(dataset.ColDiscount) {
				n++
			}
			facts = append(facts, Fact{Label: h.label, Value: n})
		}
	}
	return func(out *Facts) { out.HighLevel = facts }
}

func (f *frame) dateRange() (string, string, bool) {
	var lo, hi int64
	found := false
	for _, row := range f.rows {
		d, ok := f.t.Date(row, dataset.ColDocumentDate)
		if !ok {
			continue
		}
		u := d.Unix()
		if !found || u < lo {
			lo = u
		}
		if !found || u > hi {
			hi = u
		}
		found = true
	}
	if !found {
		return "", "", false
	}
	return unixDate(lo), unixDate(hi), true
}

func (f *frame) anyPositive(col string) bool {
	for _, row := range f.rows {
		if v, ok := f.t.Float(row, col); ok && v > 0 {
			return true
		}
	}
	return false
}

func coreInsights(f *frame, notice func(string)) func(*Facts) {
	var core CoreInsights
	found := false

	if f.t.Has(dataset.ColBrand) {
		core.TopBrands = head(valueCounts(f.values(dataset.ColBrand, nil)), 5)
		found = true
	} else {
		notice("Top brands skipped: " + missingColumn(dataset.ColBrand))
	}

	if f.t.Has(dataset.ColPriceBand) {
		core.TopPriceBands = head(valueCounts(f.values(dataset.ColPriceBand, nil)), 3)
		found = true
	} else {
		notice("Top price bands skipped: " + missingColumn(dataset.ColPriceBand))
	}

	if f.t.Has(dataset.ColMonth) {
		if months := valueCounts(f.values(dataset.ColMonth, nil)); len(months) > 0 {
			core.BusiestMonth = months[0].Key
			found = true
		}
	} else {
		notice("Busiest month skipped: " + missingColumn(dataset.ColMonth))
	}

	if missing := f.t.Missing(dataset.ColRegion, dataset.ColValue); len(missing) == 0 {
		core.TopRegions = head(f.regionTotals(), 3)
		found = true
	} else {
		notice("Top regions skipped: " + missingColumn(missing[0]))
	}

	if !found {
		return nil
	}
	return func(out *Facts) { out.Core = &core }
}

// regionTotals sums value per region, largest first.
func (f *frame) regionTotals() []Amount {
	placeholders := analysis.DefaultPlaceholderSet()
	index := make(map[string]int)
	var totals []Amount
	for _, row := range f.rows {
		region, ok := f.t.Text(row, dataset.ColRegion)
		if !ok || placeholders.Contains(region) {
			continue
		}
		v, ok := f.t.Float(row, dataset.ColValue)
		if !ok {
			continue
		}
		i, seen := index[region]
		if !seen {
			i = len(totals)
			index[region] = i
			totals = append(totals, Amount{Key: region})
		}
		totals[i].Total += v
	}
	slices.SortStableFunc(totals, func(a, b Amount) int { return cmp.Compare(b.Total, a.Total) })
	return totals
}

func missingCounts(f *frame, _ func(string)) func(*Facts) {
	placeholders := analysis.DefaultPlaceholderSet()
	counts := []MissingCount{}
	for _, col := range f.categorical {
		n := 0
		for _, row := range f.rows {
			raw, _ := f.t.Raw(row, col)
			if placeholders.Contains(raw) {
				n++
			}
		}
		if n > 0 {
			counts = append(counts, MissingCount{Column: col, Count: n})
		}
	}
	return func(out *Facts) { out.Missing = counts }
}

// numericSummary describes the measures over rows where every available
// measure is present and non-negative.
func numericSummary(f *frame, notice func(string)) func(*Facts) {
	var cols []string
	for _, col := range dataset.NumericColumns {
		if f.t.Has(col) {
			cols = append(cols, col)
		} else {
			notice(missingColumn(col))
		}
	}
	if len(cols) == 0 {
		return nil
	}

	values := make([][]float64, len(cols))
rows:
	for _, row := range f.rows {
		vs := make([]float64, len(cols))
		for i, col := range cols {
			v, ok := f.t.Float(row, col)
			if !ok || v < 0 {
				continue rows
			}
			vs[i] = v
		}
		for i, v := range vs {
			values[i] = append(values[i], v)
		}
	}
	if len(values[0]) == 0 {
		notice("No rows with non-negative measures.")
		return nil
	}

	summaries := make([]NumericSummary, len(cols))
	for i, col := range cols {
		d := analysis.Describe(values[i])
		summaries[i] = NumericSummary{
			Column: col,
			Count:  d.Count,
			Min:    d.Min,
			Mean:   round2(d.Mean),
			Max:    d.Max,
			Std:    round2(d.Std),
			Q1:     d.Q1,
			Median: d.Q2,
			Q3:     d.Q3,
		}
	}
	return func(out *Facts) { out.Numeric = summaries }
}

// categoricalPlaceholders extends the default tokens with the spellings
// spreadsheets produce for empty text cells.
var categoricalPlaceholders = analysis.DefaultPlaceholderSet().With("[NA]", "NAN", "NONE")

// discountComponents are folded into a single "discount" row.
var discountComponents = []string{
	dataset.ColBillDiscount, dataset.ColItemDiscount, dataset.ColSchemeDiscount, dataset.ColOtherBillDiscount,
}

func categoricalSummary(f *frame, _ func(string)) func(*Facts) {
	summaries := []CategoricalSummary{}
	for _, col := range f.categorical {
		if col == dataset.ColDiscount {
			continue
		}
		values := f.values(col, categoricalPlaceholders)
		if len(values) == 0 {
			continue
		}
		top, freq := analysis.Mode(values)
		summaries = append(summaries, CategoricalSummary{Column: col, Unique: distinct(values), Top: top, Freq: freq})
	}

	var available []string
	combined := CategoricalSummary{Column: dataset.ColDiscount}
	for _, col := range discountComponents {
		if !f.t.Has(col) {
			continue
		}
		available = append(available, col)
		values := f.values(col, nil)
		combined.Unique += distinct(values)
		combined.Freq += len(values)
	}
	if len(available) > 0 {
		combined.Top = strings.Join(available, ", ")
		summaries = append(summaries, combined)
	}
	return func(out *Facts) { out.Categorical = summaries }
}

func dailyTrend(f *frame, notice func(string)) func(*Facts) {
	metric := f.opts.TrendMetric
	if missing := f.t.Missing(dataset.ColDocumentDate, metric); len(missing) > 0 {
		notice(missingColumn(missing[0]))
		return nil
	}

	totals := make(map[string]float64)
	for _, row := range f.rows {
		d, ok := f.t.Date(row, dataset.ColDocumentDate)
		if !ok {
			continue
		}
		v, ok := f.t.Float(row, metric)
		if !ok {
			continue
		}
		totals[d.Format(dateLayout)] += v
	}
	if len(totals) == 0 {
		notice(fmt.Sprintf("No dated rows with %s.", metric))
		return nil
	}

	dates := make([]string, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	trend := &Trend{Metric: metric, Points: make([]TrendPoint, len(dates))}
	for i, d := range dates {
		trend.Points[i] = TrendPoint{Date: d, Value: round2(totals[d])}
	}
	return func(out *Facts) { out.Trend = trend }
}
