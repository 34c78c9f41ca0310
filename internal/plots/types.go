package plots

import (
	"fmt"
	"strings"

	"github.com/essai1415/discount-analysis-dashboard/internal/insights"
)

// AnalysisKind groups plots in the UI.
type AnalysisKind string

const (
	KindQuantitative AnalysisKind = "quantitative"
	KindQualitative  AnalysisKind = "qualitative"
	KindMultivariate AnalysisKind = "multivariate"
	KindTimeSeries   AnalysisKind = "timeseries"
	KindFacts        AnalysisKind = "facts"
)

// AnalysisKinds lists the kinds in menu order.
var AnalysisKinds = []AnalysisKind{
	KindQuantitative, KindQualitative, KindMultivariate, KindTimeSeries, KindFacts,
}

// Label is the menu label of the kind.
func (k AnalysisKind) Label() string {
	switch k {
	case KindQuantitative:
		return "Quantitative Analysis"
	case KindQualitative:
		return "Qualitative Analysis"
	case KindMultivariate:
		return "Multivariate Analysis"
	case KindTimeSeries:
		return "Time Series Analysis"
	case KindFacts:
		return "Facts and Figures"
	}
	return string(k)
}

// ParseAnalysisKind resolves a kind identifier case-insensitively.
func ParseAnalysisKind(s string) (AnalysisKind, bool) {
	k := AnalysisKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AnalysisKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// PlotID identifies a chart.
type PlotID string

const (
	PlotQuantity           PlotID = "quantity"
	PlotValue              PlotID = "value"
	PlotWeight             PlotID = "weight"
	PlotMakingCharge       PlotID = "making_charge"
	PlotGoldPrice          PlotID = "gold_price"
	PlotStoneValue         PlotID = "stone_value"
	PlotDiscountComponents PlotID = "discount_components"
	PlotPriceBand          PlotID = "price_band"
	PlotTotalECBand        PlotID = "total_ec_band"
	PlotClusterECBand      PlotID = "cluster_ec_band"

	PlotBrand          PlotID = "brand"
	PlotRegion         PlotID = "region"
	PlotLevel          PlotID = "level"
	PlotRetailCluster  PlotID = "retail_cluster"
	PlotCategory       PlotID = "category"
	PlotAMCB           PlotID = "amcb"
	PlotDayOfMonth     PlotID = "day_of_month"
	PlotDiscountBucket PlotID = "discount_bucket"

	PlotTopDiscountsByLocation PlotID = "top_discounts_by_location"
	PlotReturnRate             PlotID = "return_rate"
	PlotNewVsExisting          PlotID = "new_vs_existing"
	PlotDiscountByDayGoldPrice PlotID = "discount_by_day_gold_price"
	PlotDiscountCorrelation    PlotID = "discount_correlation"
	PlotTopCustomers           PlotID = "top_customers"
	PlotRegionBrand            PlotID = "region_brand"

	PlotDailyItemDiscount       PlotID = "daily_item_discount"
	PlotDailyBillSchemeDiscount PlotID = "daily_bill_scheme_discount"
	PlotWeekdayDiscountPct      PlotID = "weekday_discount_pct"
	PlotDailyBrandTrend         PlotID = "daily_brand_trend"
	PlotReturnedItemsTrend      PlotID = "returned_items_trend"
)

// ChartType tells the UI how to draw a chart.
type ChartType string

const (
	ChartScatter    ChartType = "scatter"
	ChartBar        ChartType = "bar"
	ChartBarH       ChartType = "barh"
	ChartGroupedBar ChartType = "grouped_bar"
	ChartLine       ChartType = "line"
	ChartBox        ChartType = "box"
	ChartHeatmap    ChartType = "heatmap"
	ChartLollipop   ChartType = "lollipop"
)

// Point is one datum. X is a number for numeric axes and a string for
// categorical ones.
type Point struct {
	X     any     `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// Series is a named sequence of points.
type Series struct {
	Name   string    `json:"name"`
	Type   ChartType `json:"type,omitempty"`
	Points []Point   `json:"points"`
}

// Annotation is a text overlay, e.g. a correlation coefficient.
type Annotation struct {
	Text     string `json:"text"`
	Position string `json:"position,omitempty"`
}

// Chart is a renderer-agnostic chart description.
type Chart struct {
	Type        ChartType    `json:"type"`
	Title       string       `json:"title"`
	XLabel      string       `json:"x_label,omitempty"`
	YLabel      string       `json:"y_label,omitempty"`
	Categories  []string     `json:"categories,omitempty"`
	Series      []Series     `json:"series"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Table is a computed table. Cells are strings or numbers.
type Table struct {
	Title   string   `json:"title,omitempty"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Unavailable explains why a plot could not be computed.
type Unavailable struct {
	Reason  string   `json:"reason"`
	Missing []string `json:"missing,omitempty"`
}

func missingColumns(cols []string) *Unavailable {
	return &Unavailable{
		Reason:  fmt.Sprintf("Required column(s) missing: %s", strings.Join(cols, ", ")),
		Missing: cols,
	}
}

var noData = &Unavailable{Reason: "No data available for the selected filters."}

// RenderResult is everything the dashboard shows for one plot.
type RenderResult struct {
	Plot        PlotID                 `json:"plot"`
	Kind        AnalysisKind           `json:"kind"`
	Title       string                 `json:"title"`
	Chart       *Chart                 `json:"chart,omitempty"`
	Table       *Table                 `json:"table,omitempty"`
	Unavailable *Unavailable           `json:"unavailable,omitempty"`
	Rows        int                    `json:"rows"`
	Insights    []string               `json:"insights"`
	Summary     *insights.SummaryTable `json:"summary,omitempty"`
}

// Filters are the user's multi-select restrictions, applied to every plot.
type Filters struct {
	Brands     []string `json:"brands,omitempty"`
	Regions    []string `json:"regions,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Empty reports whether no restriction is set.
func (f Filters) Empty() bool {
	return len(f.Brands) == 0 && len(f.Regions) == 0 && len(f.Categories) == 0
}
