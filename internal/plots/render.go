package plots

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
	"github.com/essai1415/discount-analysis-dashboard/internal/insights"
)

// ErrUnknownPlot is returned for identifiers outside the catalogue.
var ErrUnknownPlot = errors.New("unknown plot")

// built is what a builder produces. A builder sets either unavailable or
// chart.
type built struct {
	chart       *Chart
	table       *Table
	rows        int
	unavailable *Unavailable
}

type builder func(t *dataset.Table, def Definition, include map[string][]string) built

var builders = map[Shape]builder{
	ShapeScatter:      buildScatter,
	ShapeComponents:   buildComponents,
	ShapeCategory:     buildCategory,
	ShapeBox:          buildBox,
	ShapeDaily:        buildMetricSeries,
	ShapeBucket:       buildMetricSeries,
	ShapeTopRows:      buildTopRows,
	ShapeReturnRate:   buildReturnRate,
	ShapeCustomerType: buildCustomerType,
	ShapeCorrelation:  buildCorrelation,
	ShapeCross:        buildCross,
	ShapeWeekday:      buildWeekday,
	ShapeDailyByGroup: buildDailyByGroup,
	ShapeDailyReturns: buildDailyReturns,
}

// Compute renders def against t without insights. It never fails: missing
// columns and empty selections come back as Unavailable.
func Compute(t *dataset.Table, def Definition, f Filters) RenderResult {
	res := RenderResult{Plot: def.ID, Kind: def.Kind, Title: def.Title}

	if missing := t.Missing(def.Required...); len(missing) > 0 {
		res.Unavailable = missingColumns(missing)
		return res
	}

	build, ok := builders[def.Shape]
	if !ok {
		res.Unavailable = &Unavailable{Reason: "Plot is not implemented."}
		return res
	}

	out := build(t, def, mergeInclude(def.Pipeline.Filter.Include, f.include()))
	if out.unavailable == nil && out.chart == nil {
		out.unavailable = noData
	}
	res.Chart = out.chart
	res.Table = out.table
	res.Rows = out.rows
	res.Unavailable = out.unavailable
	return res
}

func (f Filters) include() map[string][]string {
	inc := make(map[string][]string, 3)
	if len(f.Brands) > 0 {
		inc[dataset.ColBrand] = f.Brands
	}
	if len(f.Regions) > 0 {
		inc[dataset.ColRegion] = f.Regions
	}
	if len(f.Categories) > 0 {
		inc[dataset.ColCategory] = f.Categories
	}
	return inc
}

// mergeInclude combines a plot's own restrictions with the user's. When
// both restrict a column only values allowed by both survive.
func mergeInclude(base, extra map[string][]string) map[string][]string {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string][]string, len(extra))
	}
	for col, values := range extra {
		own, ok := out[col]
		if !ok {
			out[col] = values
			continue
		}
		allowed := make(map[string]struct{}, len(values))
		for _, v := range values {
			allowed[upper(v)] = struct{}{}
		}
		var both []string
		for _, v := range own {
			if _, ok := allowed[upper(v)]; ok {
				both = append(both, v)
			}
		}
		if len(both) == 0 {
			// An empty list would be ignored, so keep an impossible value.
			both = []string{keySep}
		}
		out[col] = both
	}
	return out
}

// Renderer renders plots and attaches their static insights.
type Renderer struct {
	catalog *insights.Catalog
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewRenderer creates a renderer. catalog may be nil.
func NewRenderer(catalog *insights.Catalog, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		catalog: catalog,
		logger:  logger.With(slog.String("component", "plot_renderer")),
		metrics: metrics,
	}
}

// Render computes plot id against t.
func (r *Renderer) Render(ctx context.Context, t *dataset.Table, id PlotID, f Filters) (RenderResult, error) {
	def, ok := Lookup(id)
	if !ok {
		return RenderResult{}, ErrUnknownPlot
	}

	start := time.Now()
	res := Compute(t, def, f)
	duration := time.Since(start)

	res.Insights, res.Summary = r.Insights(id)
	infrastructure.RecordPlotRender(ctx, r.metrics, string(def.Kind), string(id), duration, res.Unavailable != nil)

	attrs := []any{
		slog.String("plot", string(id)),
		slog.Int("rows", res.Rows),
		slog.Duration("duration", duration),
	}
	if res.Unavailable != nil {
		attrs = append(attrs, slog.String("unavailable", res.Unavailable.Reason))
	}
	r.logger.DebugContext(ctx, "plot rendered", attrs...)
	return res, nil
}

// Insights returns the static insights and summary table of a plot.
func (r *Renderer) Insights(id PlotID) ([]string, *insights.SummaryTable) {
	if r.catalog == nil {
		return []string{insights.DefaultInsight(string(id))}, nil
	}
	e := r.catalog.Lookup(string(id))
	return e.Insights, e.Summary
}
