package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestRuntimeMetricsSnapshot(t *testing.T) {
	rm, err := NewRuntimeMetrics(noop.NewMeterProvider().Meter("test"), 0)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, rm.interval)

	first := rm.Snapshot(context.Background())
	assert.Positive(t, first.Goroutines)
	assert.Positive(t, first.SystemBytes)
	assert.False(t, first.Timestamp.IsZero())

	// A second snapshot reuses the stored sample.
	assert.Equal(t, first, rm.Snapshot(context.Background()))

	m := first.Map()
	for _, key := range []string{"goroutines", "heap_mb", "system_mb", "gc_count", "uptime", "go_version"} {
		assert.Contains(t, m, key)
	}
}

func TestRuntimeMetricsRunStopsOnCancel(t *testing.T) {
	rm, err := NewRuntimeMetrics(noop.NewMeterProvider().Meter("test"), 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rm.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		rm.mu.Lock()
		defer rm.mu.Unlock()
		return !rm.last.Timestamp.IsZero()
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRuntimeMetricsExported(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	rm, err := NewRuntimeMetrics(providers.Meter, time.Minute)
	require.NoError(t, err)
	rm.Collect(context.Background())

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "runtime_goroutines")
	assert.Contains(t, string(body), "process_uptime_seconds")
}
