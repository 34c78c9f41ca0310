// Command analyze renders one dashboard plot, or the facts overview, from a
// local workbook and prints the result as indented JSON.
//
//	analyze -file DiscAnSamp.xlsx -plot brand -region NORTH,SOUTH
//	analyze -file export.csv -facts -exclude-negatives -metric discount
//	analyze -file DiscAnSamp.xlsx -plot amcb -csv > amcb.csv
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/essai1415/discount-analysis-dashboard/internal/config"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
	"github.com/essai1415/discount-analysis-dashboard/internal/exporter"
	"github.com/essai1415/discount-analysis-dashboard/internal/facts"
	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
	"github.com/essai1415/discount-analysis-dashboard/internal/insights"
	"github.com/essai1415/discount-analysis-dashboard/internal/plots"
)

type options struct {
	file             string
	sheet            string
	plot             string
	brands           string
	regions          string
	categories       string
	facts            bool
	excludeNegatives bool
	metric           string
	csv              bool
	timeout          time.Duration
	maxBytes         int64
}

var errUsage = errors.New("usage")

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.file, "file", "", "workbook (.xlsx) or CSV export to analyse")
	fs.StringVar(&o.sheet, "sheet", "", "worksheet name (default: first sheet)")
	fs.StringVar(&o.plot, "plot", "", "plot identifier, e.g. brand or discount_bucket")
	fs.StringVar(&o.brands, "brand", "", "comma-separated brand filter")
	fs.StringVar(&o.regions, "region", "", "comma-separated region filter")
	fs.StringVar(&o.categories, "category", "", "comma-separated category filter")
	fs.BoolVar(&o.facts, "facts", false, "print the facts and figures overview instead of a plot")
	fs.BoolVar(&o.excludeNegatives, "exclude-negatives", false, "drop returns and negative rows from the facts overview")
	fs.StringVar(&o.metric, "metric", "", "trend metric for the facts overview (default qty)")
	fs.BoolVar(&o.csv, "csv", false, "print the plot table as CSV instead of JSON")
	fs.DurationVar(&o.timeout, "timeout", time.Minute, "load timeout")
	fs.Int64Var(&o.maxBytes, "max-bytes", 100<<20, "largest file accepted")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.file == "" {
		fs.Usage()
		return o, fmt.Errorf("%w: -file is required", errUsage)
	}
	if o.facts == (o.plot != "") {
		fs.Usage()
		return o, fmt.Errorf("%w: pass exactly one of -plot or -facts", errUsage)
	}
	if o.csv && o.facts {
		fs.Usage()
		return o, fmt.Errorf("%w: -csv only applies to -plot", errUsage)
	}
	return o, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func run(ctx context.Context, o options, stdout io.Writer, logger *slog.Logger) error {
	loader := dataset.NewLoaderWithSource(&dataset.FileSource{Path: o.file, MaxBytes: o.maxBytes}, o.sheet, o.timeout, logger)
	table, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", o.file, err)
	}
	logger.InfoContext(ctx, "dataset loaded",
		slog.String("file", o.file),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns())))

	var result any
	if o.facts {
		result, err = facts.Compute(ctx, table, facts.Options{
			ExcludeNegatives: o.excludeNegatives,
			TrendMetric:      dataset.NormalizeHeader(o.metric),
		})
		if err != nil {
			return err
		}
	} else {
		id, ok := plots.ParsePlotID(o.plot)
		if !ok {
			return fmt.Errorf("unknown plot %q", o.plot)
		}
		catalog, err := insights.Load()
		if err != nil {
			return fmt.Errorf("load insight catalog: %w", err)
		}
		res, err := plots.NewRenderer(catalog, logger, nil).Render(ctx, table, id, plots.Filters{
			Brands:     splitList(o.brands),
			Regions:    splitList(o.regions),
			Categories: splitList(o.categories),
		})
		if err != nil {
			return err
		}
		if o.csv {
			if res.Table == nil {
				return fmt.Errorf("plot %s has no table for this selection", id)
			}
			return exporter.WriteCSV(stdout, exporter.WriteOptions{
				Headers: res.Table.Columns,
				Records: res.Table.Rows,
			})
		}
		result = res
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Logs go to stderr so stdout stays valid JSON.
	logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: "warn", Output: "stderr"})
	if err != nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	if err := run(context.Background(), o, os.Stdout, logger); err != nil {
		logger.Error("analysis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
