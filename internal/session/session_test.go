package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggle(t *testing.T) {
	s := NewMemoryStore()
	key := InsightsKey("brand")

	assert.False(t, Flag(s, key), "unset flag reads as false")
	assert.True(t, Toggle(s, key), "first toggle turns the flag on")
	assert.True(t, Flag(s, key))
	assert.False(t, Toggle(s, key))
	assert.False(t, Flag(s, key))
}

func TestToggleConcurrent(t *testing.T) {
	s := NewMemoryStore()
	key := RecommendationKey("brand")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Toggle(s, key)
		}()
	}
	wg.Wait()

	assert.False(t, Flag(s, key), "an even number of toggles leaves the flag off")
}

func TestCachedText(t *testing.T) {
	s := NewMemoryStore()
	key := RecommendationTextKey("value")

	_, ok := CachedText(s, key)
	assert.False(t, ok)

	SetCachedText(s, key, "Action: Cap discounts")
	text, ok := CachedText(s, key)
	require.True(t, ok)
	assert.Equal(t, "Action: Cap discounts", text)

	ClearCachedText(s, key)
	_, ok = CachedText(s, key)
	assert.False(t, ok, "nil means not cached")

	s.Set(key, 42)
	_, ok = CachedText(s, key)
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "insights:amcb", InsightsKey("amcb"))
	assert.Equal(t, "recommendation:amcb", RecommendationKey("amcb"))
	assert.Equal(t, "recommendation_text:amcb", RecommendationTextKey("amcb"))
}

func TestManagerAcquireAndSweep(t *testing.T) {
	ctx := context.Background()
	m := NewManager(time.Minute, time.Minute, nil, nil)
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	m.now = func() time.Time { return clock }

	a := m.Acquire(ctx, "a")
	a.Set("k", "v")
	assert.Same(t, a, m.Acquire(ctx, "a"), "same id returns the same store")

	m.Acquire(ctx, "b")
	assert.Equal(t, 2, m.Len())

	clock = base.Add(50 * time.Second)
	m.Acquire(ctx, "a")

	assert.Equal(t, 1, m.Sweep(ctx, base.Add(90*time.Second)))
	assert.Equal(t, 1, m.Len())

	v, ok := m.Acquire(ctx, "a").Get("k")
	require.True(t, ok, "refreshed session survives the sweep")
	assert.Equal(t, "v", v)
}

func TestManagerIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(0, 0, nil, nil)

	Toggle(m.Acquire(ctx, "a"), InsightsKey("brand"))
	assert.False(t, Flag(m.Acquire(ctx, "b"), InsightsKey("brand")))
}

func TestManagerRunStopsOnCancel(t *testing.T) {
	m := NewManager(time.Minute, time.Millisecond, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMiddleware(t *testing.T) {
	m := NewManager(time.Hour, time.Hour, nil, nil)

	var seen Store
	h := Middleware(m, "sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = s
		Toggle(s, InsightsKey("brand"))
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	first := seen

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies(), "existing session is reused")
	assert.Same(t, first, seen)
	assert.False(t, Flag(seen, InsightsKey("brand")), "second toggle turned the flag off")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "not-a-uuid"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Len(t, rec.Result().Cookies(), 1, "invalid id is replaced")
	assert.Equal(t, 2, m.Len())
}

func TestMiddlewareRejectsUnissuedIDs(t *testing.T) {
	m := NewManager(time.Minute, time.Hour, nil, nil)
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	m.now = func() time.Time { return clock }

	var seenID string
	h := Middleware(m, "sid")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = IDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	issued := m.Acquire(context.Background(), "8f14e45f-ceea-4e7a-9d3b-6c1f2b7a9e01")
	require.NotNil(t, issued)

	tests := []struct {
		name      string
		cookie    string
		advance   time.Duration
		wantFresh bool
	}{
		{name: "well formed but unknown id", cookie: "3b7c1d2e-9a4f-4c6b-8e1d-2f5a7b9c0d13", wantFresh: true},
		{name: "live issued id", cookie: "8f14e45f-ceea-4e7a-9d3b-6c1f2b7a9e01"},
		{name: "expired issued id", cookie: "8f14e45f-ceea-4e7a-9d3b-6c1f2b7a9e01", advance: 2 * time.Minute, wantFresh: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = clock.Add(tt.advance)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: "sid", Value: tt.cookie})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			cookies := rec.Result().Cookies()
			if !tt.wantFresh {
				assert.Empty(t, cookies)
				assert.Equal(t, tt.cookie, seenID)
				return
			}
			require.Len(t, cookies, 1)
			assert.NotEqual(t, tt.cookie, cookies[0].Value)
			assert.Equal(t, cookies[0].Value, seenID)
			_, known := m.Lookup(tt.cookie)
			assert.False(t, known, "presented id is never adopted")
		})
	}
}

func TestManagerLookup(t *testing.T) {
	m := NewManager(time.Minute, time.Hour, nil, nil)
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	m.now = func() time.Time { return clock }

	_, ok := m.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len(), "lookup never creates a session")

	want := m.Acquire(context.Background(), "a")
	clock = base.Add(45 * time.Second)
	got, ok := m.Lookup("a")
	require.True(t, ok)
	assert.Same(t, want, got)

	clock = base.Add(100 * time.Second)
	_, ok = m.Lookup("a")
	assert.True(t, ok, "previous lookup refreshed the last access time")
}

func TestFromContextEmpty(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.Empty(t, IDFromContext(context.Background()))
}
