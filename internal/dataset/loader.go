package dataset

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/essai1415/discount-analysis-dashboard/internal/config"
	apperrors "github.com/essai1415/discount-analysis-dashboard/internal/errors"
)

// Loader fetches and parses the dataset under a bounded deadline.
type Loader struct {
	source  Source
	sheet   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewLoader builds a loader for the configured source. A URL wins over a
// local path.
func NewLoader(cfg config.DatasetConfig, logger *slog.Logger) *Loader {
	var src Source
	if cfg.URL != "" {
		src = &HTTPSource{
			URL:      cfg.URL,
			Client:   &http.Client{Timeout: cfg.LoadTimeout},
			MaxBytes: cfg.MaxBytes,
		}
	} else {
		src = &FileSource{Path: cfg.Path, MaxBytes: cfg.MaxBytes}
	}
	return NewLoaderWithSource(src, cfg.Sheet, cfg.LoadTimeout, logger)
}

// NewLoaderWithSource wires an explicit source.
func NewLoaderWithSource(src Source, sheet string, timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		source:  src,
		sheet:   sheet,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "dataset_loader")),
	}
}

// Source names the kind of source, for logs and metrics.
func (l *Loader) Source() string { return l.source.String() }

// Load fetches and parses the dataset. Fetch failures are DATA_LOAD errors,
// decode failures are PARSING errors.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	data, name, err := l.source.Fetch(ctx)
	if err != nil {
		return nil, apperrors.NewDataLoadError("failed to fetch dataset", err).
			WithContext("source", l.source.String())
	}

	table, err := Parse(data, name, l.sheet)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", l.source.String()),
		slog.String("name", name),
		slog.Int("bytes", len(data)),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns())),
		slog.Duration("duration", time.Since(start)))

	return table, nil
}
