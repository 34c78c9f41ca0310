package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
)

const (
	DefaultTTL           = 2 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

type entry struct {
	store      *MemoryStore
	lastAccess time.Time
}

// Manager owns the stores of all live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
}

// NewManager creates a manager. Non-positive durations fall back to defaults.
func NewManager(ttl, sweepInterval time.Duration, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		interval: sweepInterval,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_manager")),
		metrics:  metrics,
	}
}

// Acquire returns the store for id, creating it on first access, and
// refreshes its last access time.
func (m *Manager) Acquire(ctx context.Context, id string) Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.sessions[id]; ok {
		e.lastAccess = now
		return e.store
	}

	e := &entry{store: NewMemoryStore(), lastAccess: now}
	m.sessions[id] = e
	if m.metrics != nil && m.metrics.ActiveSessions != nil {
		m.metrics.ActiveSessions.Add(ctx, 1)
	}
	return e.store
}

// Lookup returns the store of a live session and refreshes its last access
// time. Unknown or expired ids report false; they are never created here.
func (m *Manager) Lookup(id string) (Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	now := m.now()
	if now.Sub(e.lastAccess) > m.ttl {
		return nil, false
	}
	e.lastAccess = now
	return e.store, true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastAccess) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		if m.metrics != nil && m.metrics.ActiveSessions != nil {
			m.metrics.ActiveSessions.Add(ctx, int64(-removed))
		}
		m.logger.DebugContext(ctx, "expired idle sessions",
			slog.Int("removed", removed),
			slog.Int("remaining", len(m.sessions)))
	}
	return removed
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx, m.now())
		}
	}
}
