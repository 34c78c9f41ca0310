package dataset

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
)

var (
	// ErrNotLoaded is returned until the first successful load.
	ErrNotLoaded = errors.New("dataset not loaded")
	// ErrReloadInProgress rejects overlapping reloads.
	ErrReloadInProgress = errors.New("dataset reload already running")
)

// TableLoader produces a fresh table.
type TableLoader interface {
	Load(ctx context.Context) (*Table, error)
	Source() string
}

// Status describes the currently held dataset.
type Status struct {
	Loaded    bool      `json:"loaded"`
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	Columns   []string  `json:"columns"`
	LoadedAt  time.Time `json:"loaded_at,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Reloading bool      `json:"reloading"`
}

// Holder owns the current table. A failed reload keeps the previous table.
type Holder struct {
	loader  TableLoader
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	mu        sync.RWMutex
	table     *Table
	loadedAt  time.Time
	duration  time.Duration
	lastError error

	reloading atomic.Bool
}

// NewHolder creates an empty holder. metrics may be nil.
func NewHolder(loader TableLoader, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Holder {
	return &Holder{
		loader:  loader,
		logger:  logger.With(slog.String("component", "dataset_holder")),
		metrics: metrics,
	}
}

// Get returns the current table or ErrNotLoaded.
func (h *Holder) Get() (*Table, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.table == nil {
		return nil, ErrNotLoaded
	}
	return h.table, nil
}

// Set installs a table directly, bypassing the loader.
func (h *Holder) Set(t *Table) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.table = t
	h.loadedAt = time.Now()
	h.lastError = nil
}

// Reload runs the loader once. Concurrent calls fail fast with
// ErrReloadInProgress.
func (h *Holder) Reload(ctx context.Context) (Status, error) {
	if !h.reloading.CompareAndSwap(false, true) {
		return h.Status(), ErrReloadInProgress
	}
	defer h.reloading.Store(false)

	start := time.Now()
	table, err := h.loader.Load(ctx)
	elapsed := time.Since(start)

	h.mu.Lock()
	if err != nil {
		h.lastError = err
	} else {
		h.table = table
		h.loadedAt = time.Now()
		h.duration = elapsed
		h.lastError = nil
	}
	h.mu.Unlock()

	rows := 0
	if table != nil {
		rows = table.Len()
	}
	infrastructure.RecordDatasetLoad(ctx, h.metrics, h.loader.Source(), rows, err)

	if err != nil {
		h.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("source", h.loader.Source()),
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed))
		return h.Status(), err
	}
	return h.Status(), nil
}

// Status reports what is currently held.
func (h *Holder) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := Status{
		Loaded:    h.table != nil,
		Reloading: h.reloading.Load(),
	}
	if h.loader != nil {
		st.Source = h.loader.Source()
	}
	if h.table != nil {
		st.Rows = h.table.Len()
		st.Columns = h.table.Columns()
		st.LoadedAt = h.loadedAt
		st.Duration = h.duration.String()
	}
	if h.lastError != nil {
		st.LastError = h.lastError.Error()
	}
	return st
}

// Ready reports whether a table is available.
func (h *Holder) Ready() bool {
	_, err := h.Get()
	return err == nil
}
