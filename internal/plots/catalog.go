package plots

import (
	"fmt"
	"slices"
	"strings"

	"github.com/essai1415/discount-analysis-dashboard/internal/analysis"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// Shape selects the builder that renders a definition.
type Shape int

const (
	ShapeScatter Shape = iota + 1
	ShapeComponents
	ShapeCategory
	ShapeBox
	ShapeDaily
	ShapeBucket
	ShapeTopRows
	ShapeReturnRate
	ShapeCustomerType
	ShapeCorrelation
	ShapeCross
	ShapeWeekday
	ShapeDailyByGroup
	ShapeDailyReturns
)

// Metric is one measured series of a multi-series plot.
type Metric struct {
	Column      string
	Name        string
	Stat        analysis.Stat
	Constraints []analysis.Constraint
}

// Definition describes one plot as data.
type Definition struct {
	ID      PlotID
	Kind    AnalysisKind
	Ordinal int
	Title   string
	XLabel  string
	YLabel  string
	Chart   ChartType
	Shape   Shape

	// Required columns. The plot is Unavailable when any is absent.
	Required []string
	Pipeline analysis.Pipeline
	Metrics  []Metric
	// Deciles adds an equal-frequency band table to scatter plots.
	Deciles int
}

// Label is the menu label, e.g. "3. Weight vs Discount".
func (d Definition) Label() string {
	return fmt.Sprintf("%d. %s", d.Ordinal, d.Title)
}

// ValidMakingChargeBands are the AMCB values that are charted, in order.
var ValidMakingChargeBands = []string{"A(1-10%)", "B(11-14%)", "C(14-18%)", "D(18-24%)", "E(24-30%)", "F(30%+)"}

// Weekdays in chart order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func scatter(id PlotID, ordinal int, label, col string) Definition {
	return Definition{
		ID:       id,
		Kind:     KindQuantitative,
		Ordinal:  ordinal,
		Title:    label + " vs Discount",
		XLabel:   label,
		YLabel:   "Discount",
		Chart:    ChartScatter,
		Shape:    ShapeScatter,
		Required: []string{col, dataset.ColDiscount},
		Pipeline: analysis.Pipeline{Filter: analysis.FilterSpec{
			Dimension:   col,
			Key:         rawKey(col),
			Metric:      dataset.ColDiscount,
			Constraints: []analysis.Constraint{analysis.Gt0(col), analysis.Gt0(dataset.ColDiscount)},
		}},
	}
}

func category(id PlotID, kind AnalysisKind, ordinal int, title, label, col string, norm analysis.Normalization, placeholders analysis.PlaceholderSet) Definition {
	return Definition{
		ID:       id,
		Kind:     kind,
		Ordinal:  ordinal,
		Title:    title,
		XLabel:   label,
		YLabel:   "Average Discount",
		Chart:    ChartBar,
		Shape:    ShapeCategory,
		Required: []string{col, dataset.ColDiscount},
		Pipeline: analysis.Pipeline{
			Filter: analysis.FilterSpec{
				Dimension:    col,
				Metric:       dataset.ColDiscount,
				Placeholders: placeholders,
				Normalize:    norm,
				Constraints:  []analysis.Constraint{analysis.Gt0(dataset.ColDiscount)},
			},
			Order: analysis.OrderSpec{By: analysis.StatMean, Direction: analysis.Descending},
		},
	}
}

func box(id PlotID, ordinal int, title, label, col string, norm analysis.Normalization, placeholders analysis.PlaceholderSet) Definition {
	d := category(id, KindQuantitative, ordinal, title, label, col, norm, placeholders)
	d.Chart = ChartBox
	d.Shape = ShapeBox
	d.YLabel = "Discount"
	d.Pipeline.Order = analysis.OrderSpec{By: analysis.StatKey, Direction: analysis.Ascending}
	return d
}

func daily(id PlotID, kind AnalysisKind, ordinal int, title, ylabel string, metrics ...Metric) Definition {
	required := []string{dataset.ColDocumentDate}
	for _, m := range metrics {
		required = append(required, m.Column)
	}
	return Definition{
		ID:       id,
		Kind:     kind,
		Ordinal:  ordinal,
		Title:    title,
		XLabel:   "Day of Month",
		YLabel:   ylabel,
		Chart:    ChartLine,
		Shape:    ShapeDaily,
		Required: required,
		Pipeline: analysis.Pipeline{
			Filter: analysis.FilterSpec{Dimension: dataset.ColDocumentDate, Key: dayOfMonthKey},
			Order:  analysis.OrderSpec{By: analysis.StatKey, Direction: analysis.Ascending},
		},
		Metrics: metrics,
	}
}

func buildCatalog() []Definition {
	defs := []Definition{
		scatter(PlotQuantity, 1, "Quantity", dataset.ColQuantity),
		scatter(PlotValue, 2, "Value", dataset.ColValue),
		scatter(PlotWeight, 3, "Weight", dataset.ColWeight),
		scatter(PlotMakingCharge, 4, "Making Charges", dataset.ColMakingCharge),
		goldPriceDefinition(),
		scatter(PlotStoneValue, 6, "Stone Value", dataset.ColStoneValue),
		{
			ID:      PlotDiscountComponents,
			Kind:    KindQuantitative,
			Ordinal: 7,
			Title:   "Idisc, Obdisc, Ghsdisc vs Discount",
			XLabel:  "₹ Value",
			Chart:   ChartBarH,
			Shape:   ShapeComponents,
			Required: []string{
				dataset.ColDiscount, dataset.ColItemDiscount, dataset.ColOtherBillDiscount, dataset.ColSchemeDiscount,
			},
			Pipeline: analysis.Pipeline{
				Filter: analysis.FilterSpec{
					Dimension:   dataset.ColDiscount,
					Constraints: []analysis.Constraint{analysis.Gt0(dataset.ColDiscount)},
					AnyPositive: []string{dataset.ColItemDiscount, dataset.ColOtherBillDiscount, dataset.ColSchemeDiscount},
				},
			},
			Metrics: []Metric{
				{Column: dataset.ColItemDiscount, Name: "IDISC (Item Level)", Stat: analysis.StatSum},
				{Column: dataset.ColOtherBillDiscount, Name: "OBDISC (Other Bill)", Stat: analysis.StatSum},
				{Column: dataset.ColSchemeDiscount, Name: "GHSDISC (Gold Harvest Scheme)", Stat: analysis.StatSum},
			},
		},
		category(PlotPriceBand, KindQuantitative, 8, "Price Band vs Discount", "Price Band",
			dataset.ColPriceBand, analysis.NormalizeUpper, nil),
		box(PlotTotalECBand, 9, "Total EC Band vs Average Discount", "Total EC Band",
			dataset.ColTotalECBand, analysis.NormalizeNone, analysis.NewPlaceholderSet("NIL", "")),
		box(PlotClusterECBand, 10, "Cluster EC Band vs Discount", "Cluster EC Band",
			dataset.ColClusterECBand, analysis.NormalizeUpper, analysis.DefaultPlaceholderSet().With("NONE")),

		category(PlotBrand, KindQualitative, 1, "Brand vs Discount", "Brand",
			dataset.ColBrand, analysis.NormalizeNone, nil),
		category(PlotRegion, KindQualitative, 2, "Region vs Discount", "Region",
			dataset.ColRegion, analysis.NormalizeUpper, nil),
		category(PlotLevel, KindQualitative, 3, "Level vs Discount", "Level",
			dataset.ColChannelLevel, analysis.NormalizeNone, nil),
		category(PlotRetailCluster, KindQualitative, 4, "Retail Cluster vs Discount", "Retail Cluster",
			dataset.ColRetailCluster, analysis.NormalizeUpper, nil),
		category(PlotCategory, KindQualitative, 5, "Product Category vs Discount", "Product Category",
			dataset.ColCategory, analysis.NormalizeTitle, nil),
		amcbDefinition(),
		daily(PlotDayOfMonth, KindQualitative, 7, "Daily Discount Trend", "Average Discount",
			Metric{Column: dataset.ColDiscount, Name: "Average Discount"}),
		{
			ID:       PlotDiscountBucket,
			Kind:     KindQualitative,
			Ordinal:  8,
			Title:    "Quantity Sold vs Avg. Making Charges by Discount Bucket",
			XLabel:   "Discount Bucket",
			YLabel:   "Value",
			Chart:    ChartGroupedBar,
			Shape:    ShapeBucket,
			Required: []string{dataset.ColDiscount, dataset.ColQuantity, dataset.ColMakingCharge},
			Pipeline: analysis.Pipeline{
				Filter: analysis.FilterSpec{
					Dimension: dataset.ColDiscount,
					Key:       analysis.BandKey(dataset.ColDiscount, analysis.DiscountBuckets),
				},
				Order: analysis.OrderSpec{Explicit: analysis.DiscountBuckets.Order()},
			},
			Metrics: []Metric{
				{Column: dataset.ColQuantity, Name: "Total Quantity Sold", Stat: analysis.StatSum},
				{Column: dataset.ColMakingCharge, Name: "Avg. Making Charges (₹)", Stat: analysis.StatMean},
			},
		},

		{
			ID:       PlotTopDiscountsByLocation,
			Kind:     KindMultivariate,
			Ordinal:  1,
			Title:    "Top 20 Discounts By Location",
			XLabel:   "Discount",
			Chart:    ChartLollipop,
			Shape:    ShapeTopRows,
			Required: []string{dataset.ColDiscount, dataset.ColValue, dataset.ColDocumentDate, dataset.ColLocationCode},
			Pipeline: analysis.Pipeline{
				Filter: analysis.FilterSpec{
					Dimension: dataset.ColLocationCode,
					Key:       dateLocationKey,
					Metric:    dataset.ColDiscount,
					Require:   []string{dataset.ColValue},
				},
				Order: analysis.OrderSpec{TopN: 20},
			},
		},
		{
			ID:       PlotReturnRate,
			Kind:     KindMultivariate,
			Ordinal:  2,
			Title:    "Return Rate: With vs Without Discount",
			XLabel:   "Customer Group",
			YLabel:   "Return Rate (%)",
			Chart:    ChartBar,
			Shape:    ShapeReturnRate,
			Required: []string{dataset.ColCustomerID, dataset.ColDiscount, dataset.ColQuantity, dataset.ColValue},
			Pipeline: analysis.Pipeline{
				Filter: analysis.FilterSpec{
					Dimension:      dataset.ColCustomerID,
					Key:            rawKey(dataset.ColCustomerID),
					Metric:         dataset.ColQuantity,
					OptionalMetric: true,
				},
				Order: analysis.OrderSpec{By: analysis.StatKey, Direction: analysis.Ascending},
			},
		},
		{
			ID:       PlotNewVsExisting,
			Kind:     KindMultivariate,
			Ordinal:  3,
			Title:    "Average Discount for New vs Existing Customers",
			XLabel:   "Customer Type",
			YLabel:   "Discount",
			Chart:    ChartBar,
			Shape:    ShapeCustomerType,
			Required: []string{dataset.ColCustomerID, dataset.ColDocumentDate, dataset.ColDiscount},
			Pipeline: analysis.Pipeline{
				Filter: analysis.FilterSpec{
					Dimension:      dataset.ColCustomerID,
					Key:            rawKey(dataset.ColCustomerID),
					Metric:         dataset.ColDiscount,
					OptionalMetric: true,
				},
				Order: analysis.OrderSpec{By: analysis.StatKey, Direction: analysis.Ascending},
			},
		},
		daily(PlotDiscountByDayGoldPrice, KindMultivariate, 4, "Discount vs Day and Gold Price", "Average",
			Metric{Column: dataset.ColDiscount, Name: "Avg Discount"},
			Metric{Column: dataset.ColGoldPrice, Name: "Gold Price"}),
		{
			ID:       PlotDiscountCorrelation,
			Kind:     KindMultivariate,
			Ordinal:  5,
			Title:    "Correlation of Discounts with Numeric Variables",
			Chart:    ChartHeatmap,
			Shape:    ShapeCorrelation,
			Required: []string{dataset.ColDiscount},
		},
		topCustomersDefinition(),
		{
			ID:       PlotRegionBrand,
			Kind:     KindMultivariate,
			Ordinal:  7,
			Title:    "Avg Discount by Region, Brand",
			XLabel:   "Region",
			YLabel:   "Average Discount",
			Chart:    ChartGroupedBar,
			Shape:    ShapeCross,
			Required: []string{dataset.ColRegion, dataset.ColBrand, dataset.ColCategory, dataset.ColDiscount},
			Pipeline: analysis.Pipeline{
				Filter: analysis.FilterSpec{
					Dimension:   dataset.ColRegion,
					Key:         pairKey(dataset.ColRegion, dataset.ColBrand),
					Metric:      dataset.ColDiscount,
					Constraints: []analysis.Constraint{analysis.Gt0(dataset.ColDiscount)},
					Require:     []string{dataset.ColBrand, dataset.ColCategory},
				},
				Order: analysis.OrderSpec{By: analysis.StatKey, Direction: analysis.Ascending},
			},
		},

		daily(PlotDailyItemDiscount, KindTimeSeries, 1, "Daily Average idisc (1-Month View)", "Average idisc",
			Metric{Column: dataset.ColItemDiscount, Name: "idisc", Constraints: []analysis.Constraint{analysis.Gt0(dataset.ColItemDiscount)}}),
		dailyBillScheme(),
		{
			ID:       PlotWeekdayDiscountPct,
			Kind:     KindTimeSeries,
			Ordinal:  3,
			Title:    "Average Discount % by Day of Week",
			YLabel:   "Average Discount %",
			Chart:    ChartBar,
			Shape:    ShapeWeekday,
			Required: []string{dataset.ColDocumentDate, dataset.ColDiscount, dataset.ColValue},
			Pipeline: analysis.Pipeline{
				Filter: analysis.FilterSpec{
					Dimension: dataset.ColDocumentDate,
					Key:       weekdayKey,
					Metric:    dataset.ColDiscount,
					Constraints: []analysis.Constraint{
						analysis.Gt0(dataset.ColValue), analysis.Gte0(dataset.ColDiscount),
					},
				},
				Aggregate: analysis.AggregateSpec{Ratio: &analysis.Ratio{
					Denominator: dataset.ColValue,
					Convention:  analysis.RatioMeanOfRows,
					Scale:       100,
				}},
				Order: analysis.OrderSpec{Explicit: Weekdays},
			},
		},
		{
			ID:       PlotDailyBrandTrend,
			Kind:     KindTimeSeries,
			Ordinal:  4,
			Title:    "Daily Trend Of Brand",
			XLabel:   "Day of Month",
			YLabel:   "Average Discount",
			Chart:    ChartLine,
			Shape:    ShapeDailyByGroup,
			Required: []string{dataset.ColDocumentDate, dataset.ColBrand, dataset.ColDiscount},
			Pipeline: analysis.Pipeline{
				Filter: analysis.FilterSpec{
					Dimension: dataset.ColDocumentDate,
					Key:       dayGroupKey(dataset.ColBrand),
					Metric:    dataset.ColDiscount,
				},
			},
		},
		{
			ID:       PlotReturnedItemsTrend,
			Kind:     KindTimeSeries,
			Ordinal:  5,
			Title:    "Returned Items Trend",
			XLabel:   "Day of Month",
			YLabel:   "Returned Items",
			Chart:    ChartLine,
			Shape:    ShapeDailyReturns,
			Required: []string{dataset.ColDocumentDate, dataset.ColQuantity, dataset.ColValue},
			Pipeline: analysis.Pipeline{
				Filter: analysis.FilterSpec{
					Dimension: dataset.ColDocumentDate,
					Key:       returnedDayKey,
					Metric:    dataset.ColValue,
				},
				Order: analysis.OrderSpec{By: analysis.StatKey, Direction: analysis.Ascending},
			},
		},
	}
	return defs
}

func goldPriceDefinition() Definition {
	d := scatter(PlotGoldPrice, 5, "Gold Price", dataset.ColGoldPrice)
	d.Deciles = 10
	return d
}

func amcbDefinition() Definition {
	d := category(PlotAMCB, KindQualitative, 6, "AMCB vs Discount", "AMCB Band",
		dataset.ColMakingChargeBand, analysis.NormalizeUpper, nil)
	d.Pipeline.Filter.Include = map[string][]string{dataset.ColMakingChargeBand: ValidMakingChargeBands}
	d.Pipeline.Order = analysis.OrderSpec{Explicit: ValidMakingChargeBands}
	return d
}

func topCustomersDefinition() Definition {
	d := category(PlotTopCustomers, KindMultivariate, 6, "Top 50 Customers by Avg Discount", "Customer",
		dataset.ColCustomerID, analysis.NormalizeNone, nil)
	d.Pipeline.Order.TopN = 50
	return d
}

func dailyBillScheme() Definition {
	d := daily(PlotDailyBillSchemeDiscount, KindTimeSeries, 2, "Daily Trend of OBDISC and GHSDISC", "Average Discount",
		Metric{Column: dataset.ColOtherBillDiscount, Name: "obdisc"},
		Metric{Column: dataset.ColSchemeDiscount, Name: "ghsdisc"})
	d.Pipeline.Filter.Require = []string{dataset.ColOtherBillDiscount, dataset.ColSchemeDiscount}
	return d
}

var (
	catalog      = buildCatalog()
	catalogIndex = indexCatalog(catalog)
)

func indexCatalog(defs []Definition) map[PlotID]int {
	idx := make(map[PlotID]int, len(defs))
	for i, d := range defs {
		if _, dup := idx[d.ID]; dup {
			panic(fmt.Sprintf("duplicate plot id %q", d.ID))
		}
		idx[d.ID] = i
	}
	return idx
}

// All returns every definition in menu order.
func All() []Definition {
	return slices.Clone(catalog)
}

// Lookup returns the definition of id.
func Lookup(id PlotID) (Definition, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return Definition{}, false
	}
	return catalog[i], true
}

// ParsePlotID resolves a plot identifier case-insensitively.
func ParsePlotID(s string) (PlotID, bool) {
	id := PlotID(strings.ToLower(strings.TrimSpace(s)))
	_, ok := catalogIndex[id]
	return id, ok
}

// ForKind returns the plots of kind ordered by ordinal. Facts has none.
func ForKind(kind AnalysisKind) []Definition {
	var out []Definition
	for _, d := range catalog {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b Definition) int { return a.Ordinal - b.Ordinal })
	return out
}
