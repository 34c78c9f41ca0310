// Package facts computes the "Facts and Figures" overview of the loaded
// dataset: counts, customer mix, high-level facts, column summaries and a
// daily trend of one measure.
package facts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

// DefaultTrendMetric is charted when no metric is requested.
const DefaultTrendMetric = dataset.ColQuantity

// ErrUnknownMetric is returned when the trend metric is not a numeric
// measure.
var ErrUnknownMetric = errors.New("unknown trend metric")

// Options selects the rows and the trend metric.
type Options struct {
	// ExcludeNegatives keeps only rows with qty, value and wt above zero
	// and a non-negative discount.
	ExcludeNegatives bool   `json:"exclude_negatives"`
	TrendMetric      string `json:"metric"`
}

// Notice marks a section, or part of one, that could not be computed.
type Notice struct {
	Section string `json:"section"`
	Message string `json:"message"`
}

// Overview is the size of the selected rows.
type Overview struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// CustomerMix splits transactions into first-purchase and repeat ones.
type CustomerMix struct {
	Total     int     `json:"total"`
	New       int     `json:"new"`
	Repeat    int     `json:"repeat"`
	NewPct    float64 `json:"new_pct"`
	RepeatPct float64 `json:"repeat_pct"`
}

// Fact is one labelled figure. Value is a count or a preformatted string.
type Fact struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Count is a value and how often it occurs.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Amount is a value and a summed measure.
type Amount struct {
	Key   string  `json:"key"`
	Total float64 `json:"total"`
}

// CoreInsights are the headline rankings.
type CoreInsights struct {
	TopBrands     []Count  `json:"top_brands,omitempty"`
	TopPriceBands []Count  `json:"top_price_bands,omitempty"`
	BusiestMonth  string   `json:"busiest_month,omitempty"`
	TopRegions    []Amount `json:"top_regions,omitempty"`
}

// MissingCount is the number of placeholder cells in a categorical column.
type MissingCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// NumericSummary describes one measure.
type NumericSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
}

// CategoricalSummary describes one text column.
type CategoricalSummary struct {
	Column string `json:"column"`
	Unique int    `json:"unique"`
	Top    string `json:"top"`
	Freq   int    `json:"freq"`
}

// TrendPoint is the metric total of one document date.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Trend is the daily total of Metric.
type Trend struct {
	Metric string       `json:"metric"`
	Points []TrendPoint `json:"points"`
}

// Facts is the complete overview. Sections that could not be computed are
// nil or empty and explained in Notices.
type Facts struct {
	Options       Options              `json:"options"`
	Overview      Overview             `json:"overview"`
	CustomerMix   *CustomerMix         `json:"customer_mix,omitempty"`
	HighLevel     []Fact               `json:"high_level"`
	Core          *CoreInsights        `json:"core,omitempty"`
	Missing       []MissingCount       `json:"missing"`
	Numeric       []NumericSummary     `json:"numeric"`
	Categorical   []CategoricalSummary `json:"categorical"`
	Trend         *Trend               `json:"trend,omitempty"`
	BusinessNotes []string             `json:"business_notes"`
	Notices       []Notice             `json:"notices,omitempty"`
}

// BusinessNotes are shown under every overview.
var BusinessNotes = []string{
	"Offers a 360° view of how discounts are distributed across products, customers, and sales metrics.",
	"Enables data-driven decision-making in discount policies by uncovering what drives discount value.",
	"Filter on product segments (brand/category/priceband) to identify patterns.",
	"Equips management with fact-based evidence to justify or revise discount structures.",
	"Enhances transparency and accountability across branches by surfacing outliers and inconsistencies.",
}

// ValidMetric reports whether m can be used as the trend metric.
func ValidMetric(m string) bool {
	return slices.Contains(dataset.NumericColumns, m)
}

// section is one independently computed part of Facts. run reports partial
// gaps through notice and returns a function that stores its result.
type section struct {
	name string
	run  func(f *frame, notice func(string)) func(out *Facts)
}

var sections = []section{
	{name: "customer_mix", run: customerMix},
	{name: "high_level", run: highLevel},
	{name: "core", run: coreInsights},
	{name: "missing", run: missingCounts},
	{name: "numeric", run: numericSummary},
	{name: "categorical", run: categoricalSummary},
	{name: "trend", run: dailyTrend},
}

// Compute builds the overview of t. Sections run concurrently and a failed
// section becomes a notice; only an unknown metric or a cancelled context
// fails the whole computation.
func Compute(ctx context.Context, t *dataset.Table, opts Options) (*Facts, error) {
	if opts.TrendMetric == "" {
		opts.TrendMetric = DefaultTrendMetric
	}
	if !ValidMetric(opts.TrendMetric) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, opts.TrendMetric)
	}

	f := newFrame(t, opts)
	out := &Facts{
		Options:       opts,
		Overview:      Overview{Rows: len(f.rows), Columns: len(t.Columns())},
		BusinessNotes: slices.Clone(BusinessNotes),
	}

	var mu sync.Mutex
	notices := make([][]Notice, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range sections {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var local []Notice
			notice := func(msg string) { local = append(local, Notice{Section: s.name, Message: msg}) }
			apply := func() (apply func(*Facts)) {
				defer func() {
					if r := recover(); r != nil {
						apply = nil
						notice(fmt.Sprintf("section failed: %v", r))
						slog.ErrorContext(gctx, "facts section panicked",
							slog.String("section", s.name), slog.Any("panic", r))
					}
				}()
				return s.run(f, notice)
			}()

			mu.Lock()
			defer mu.Unlock()
			if apply != nil {
				apply(out)
			}
			notices[i] = local
			// A section failure is reported, not propagated.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, n := range notices {
		out.Notices = append(out.Notices, n...)
	}
	return out, nil
}
