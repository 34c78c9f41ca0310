package commentary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essai1415/discount-analysis-dashboard/internal/config"
	apperrors "github.com/essai1415/discount-analysis-dashboard/internal/errors"
	"github.com/essai1415/discount-analysis-dashboard/internal/insights"
	"github.com/essai1415/discount-analysis-dashboard/internal/session"
)

// stubGenerator returns canned responses and records every request.
type stubGenerator struct {
	mu       sync.Mutex
	requests []Request
	respond  func(ctx context.Context, req Request) (string, error)
}

func (s *stubGenerator) Generate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(ctx, req)
}

func (s *stubGenerator) Provider() string { return "stub" }

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func testSettings() Settings {
	return Settings{
		Model:               "test-model",
		Timeout:             time.Second,
		Temperature:         0.5,
		MaxTokens:           300,
		FollowUpTemperature: 0.6,
		FollowUpMaxTokens:   400,
		MaxQuestionLength:   50,
	}
}

var testSummary = &insights.SummaryTable{
	Columns: []string{"Metric", "Value"},
	Rows:    [][]string{{"Correlation", "0.81"}},
}

func TestParseRecommendation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Recommendation
	}{
		{
			name: "all fields",
			text: "Action: **Cap diamond discounts**\nReason: Margins erode\nUrgency: High",
			want: Recommendation{Action: "Cap diamond discounts", Reason: "Margins erode", Urgency: "High", Structured: true},
		},
		{
			name: "case insensitive with preamble",
			text: "Here you go.\nACTION: Review bands\nurgency: low",
			want: Recommendation{Action: "Review bands", Urgency: "low", Structured: true},
		},
		{
			name: "unstructured",
			text: "I cannot help with that.",
			want: Recommendation{Structured: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRecommendation(tt.text)
			tt.want.Raw = tt.text
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitBullets(t *testing.T) {
	got := SplitBullets("Short answer:\n• Limit discounts\n•  \n• Track returns ")
	assert.Equal(t, "Short answer:", got.Lead)
	assert.Equal(t, []string{"Limit discounts", "Track returns"}, got.Bullets)

	got = SplitBullets("- already a dash list")
	assert.Empty(t, got.Lead)
	assert.Empty(t, got.Bullets)

	got = SplitBullets("• one• two")
	assert.Empty(t, got.Lead)
	assert.Equal(t, []string{"one", "two"}, got.Bullets)
}

func TestPrompts(t *testing.T) {
	p := RecommendationPrompt([]string{"first", "second"}, insights.FormatSummary(testSummary))
	assert.Contains(t, p, "senior business analyst")
	assert.Contains(t, p, "\"\"\"first\nsecond\"\"\"")
	assert.Contains(t, p, "• Correlation — 0.81")
	assert.Contains(t, p, "Only include those 3 labeled fields.")

	p = FollowUpPrompt("Why?", []string{"first"}, "No summary data available.")
	assert.Contains(t, p, "senior business consultant")
	assert.Contains(t, p, `User asked: "Why?"`)
	assert.Contains(t, p, "bullet points")
}

func TestRecommendCachesOnSuccess(t *testing.T) {
	gen := &stubGenerator{respond: func(context.Context, Request) (string, error) {
		return "Action: Do it\nReason: Because\nUrgency: High", nil
	}}
	o := NewOrchestrator(gen, testSettings(), nil, nil)
	store := session.NewMemoryStore()
	ctx := context.Background()

	first := o.Recommend(ctx, store, "value", []string{"i1"}, testSummary)
	require.NotNil(t, first.Recommendation)
	assert.False(t, first.Cached)
	assert.Equal(t, "Do it", first.Recommendation.Action)

	second := o.Recommend(ctx, store, "value", []string{"i1"}, testSummary)
	require.NotNil(t, second.Recommendation)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, gen.calls())

	req := gen.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.InDelta(t, 0.5, req.Temperature, 1e-6)
	assert.Equal(t, 300, req.MaxTokens)
}

func TestRecommendTimeoutLeavesCacheEmpty(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	gen := &stubGenerator{respond: func(ctx context.Context, _ Request) (string, error) {
		if fail.Load() {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "Action: Retry worked", nil
	}}
	settings := testSettings()
	settings.Timeout = 20 * time.Millisecond
	o := NewOrchestrator(gen, settings, nil, nil)
	store := session.NewMemoryStore()
	ctx := context.Background()

	res := o.Recommend(ctx, store, "brand", nil, nil)
	assert.Nil(t, res.Recommendation)
	assert.Equal(t, "AI failed: context deadline exceeded", res.Warning)

	v, ok := store.Get(session.RecommendationTextKey("brand"))
	assert.True(t, ok)
	assert.Nil(t, v, "failure leaves the cached value nil")

	fail.Store(false)
	res = o.Recommend(ctx, store, "brand", nil, nil)
	require.NotNil(t, res.Recommendation, "next render retries")
	assert.Equal(t, "Retry worked", res.Recommendation.Action)
	assert.Equal(t, 2, gen.calls())
}

func TestRecommendEmptyResponseIsFailure(t *testing.T) {
	gen := &stubGenerator{respond: func(context.Context, Request) (string, error) { return "  ", nil }}
	o := NewOrchestrator(gen, testSettings(), nil, nil)

	res := o.Recommend(context.Background(), session.NewMemoryStore(), "brand", nil, nil)
	assert.Contains(t, res.Warning, "AI failed:")
}

func TestRecommendCollapsesConcurrentRequests(t *testing.T) {
	release := make(chan struct{})
	gen := &stubGenerator{respond: func(context.Context, Request) (string, error) {
		<-release
		return "Action: Shared", nil
	}}
	o := NewOrchestrator(gen, testSettings(), nil, nil)
	store := session.NewMemoryStore()
	ctx := session.NewContext(context.Background(), "sess-1", store)

	var wg sync.WaitGroup
	results := make([]RecommendationResult, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = o.Recommend(ctx, store, "amcb", nil, nil)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, gen.calls())
	for _, r := range results {
		require.NotNil(t, r.Recommendation)
		assert.Equal(t, "Shared", r.Recommendation.Action)
	}
}

func TestRecommendDisabled(t *testing.T) {
	o := NewOrchestrator(nil, testSettings(), nil, nil)
	assert.False(t, o.Enabled())

	res := o.Recommend(context.Background(), session.NewMemoryStore(), "brand", nil, nil)
	assert.Equal(t, "AI failed: "+ErrDisabled.Error(), res.Warning)
}

func TestFollowUp(t *testing.T) {
	gen := &stubGenerator{respond: func(context.Context, Request) (string, error) {
		return "Summary\n• Point one\n• Point two", nil
	}}
	o := NewOrchestrator(gen, testSettings(), nil, nil)
	ctx := context.Background()

	res, err := o.FollowUp(ctx, "brand", "  Which brand?  ", []string{"i"}, testSummary)
	require.NoError(t, err)
	assert.Equal(t, "Which brand?", res.Question)
	require.NotNil(t, res.Answer)
	assert.Equal(t, "Summary", res.Answer.Lead)
	assert.Equal(t, []string{"Point one", "Point two"}, res.Answer.Bullets)

	req := gen.requests[0]
	assert.InDelta(t, 0.6, req.Temperature, 1e-6)
	assert.Equal(t, 400, req.MaxTokens)

	_, err = o.FollowUp(ctx, "brand", "Which brand?", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls(), "follow-ups are never cached")
}

func TestFollowUpValidation(t *testing.T) {
	o := NewOrchestrator(&stubGenerator{}, testSettings(), nil, nil)

	_, err := o.FollowUp(context.Background(), "brand", "   ", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = o.FollowUp(context.Background(), "brand", string(make([]byte, 51)), nil, nil)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeValidation, appErr.Type)
}

func TestFollowUpFailure(t *testing.T) {
	gen := &stubGenerator{respond: func(context.Context, Request) (string, error) {
		return "", errors.New("rate limited")
	}}
	o := NewOrchestrator(gen, testSettings(), nil, nil)

	res, err := o.FollowUp(context.Background(), "brand", "Why?", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Answer)
	assert.Equal(t, "Failed to answer: rate limited", res.Warning)
}

func TestGenerationFailuresAreCommentaryErrors(t *testing.T) {
	cause := errors.New("quota exceeded")
	gen := &stubGenerator{respond: func(context.Context, Request) (string, error) { return "", cause }}
	o := NewOrchestrator(gen, testSettings(), nil, nil)

	_, err := o.generate(context.Background(), kindFollowUp, Request{Model: "test-model"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeCommentary, appErr.Type)
	assert.Equal(t, "stub", appErr.Context["provider"])
	assert.Equal(t, "test-model", appErr.Context["model"])
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "quota exceeded", failureReason(err))

	res := o.Recommend(context.Background(), session.NewMemoryStore(), "brand", nil, nil)
	assert.Equal(t, "AI failed: quota exceeded", res.Warning)
}

// closingGenerator records Close calls.
type closingGenerator struct {
	stubGenerator
	closed int
	err    error
}

func (c *closingGenerator) Close() error {
	c.closed++
	return c.err
}

func TestOrchestratorClose(t *testing.T) {
	tests := []struct {
		name    string
		gen     Generator
		wantErr error
	}{
		{name: "closer", gen: &closingGenerator{}},
		{name: "closer failure", gen: &closingGenerator{err: errors.New("already closed")}, wantErr: errors.New("already closed")},
		{name: "no resources", gen: &stubGenerator{}},
		{name: "disabled", gen: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(tt.gen, testSettings(), nil, nil)
			for i := 0; i < 2; i++ {
				err := o.Close()
				if tt.wantErr != nil {
					assert.EqualError(t, err, tt.wantErr.Error())
				} else {
					assert.NoError(t, err)
				}
			}
			if c, ok := tt.gen.(*closingGenerator); ok {
				assert.Equal(t, 1, c.closed)
			}
		})
	}
}

func TestChatCompletionClient(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Action: Go  "}}]}`))
	}))
	defer srv.Close()

	c := NewChatCompletionClient(srv.URL+"/", "key-1", srv.Client())
	text, err := c.Generate(context.Background(), Request{Prompt: "hi", Temperature: 0.5, MaxTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "Action: Go", text)
	assert.Equal(t, DefaultChatModel, got.Model)
	assert.Equal(t, []chatMessage{{Role: "user", Content: "hi"}}, got.Messages)
	assert.Equal(t, 300, got.MaxTokens)
}

func TestChatCompletionClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"invalid api key"}}`, wantErr: "status 401: invalid api key"},
		{name: "plain error", status: http.StatusBadGateway, body: "upstream down", wantErr: "status 502: upstream down"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: "no choices"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: "decode chat response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewChatCompletionClient(srv.URL, "k", srv.Client()).Generate(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()

	gen, err := NewGenerator(ctx, config.CommentaryConfig{Provider: config.ProviderGroq}, nil)
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, gen, "no key disables commentary")

	gen, err = NewGenerator(ctx, config.CommentaryConfig{Provider: config.ProviderGroq, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderGroq, gen.Provider())

	gen, err = NewGenerator(ctx, config.CommentaryConfig{Provider: config.ProviderNone, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, gen)

	_, err = NewGenerator(ctx, config.CommentaryConfig{Provider: "other", APIKey: "k"}, nil)
	assert.ErrorIs(t, err, &apperrors.AppError{Type: apperrors.ErrTypeConfig})
}

func TestSettingsFrom(t *testing.T) {
	s := SettingsFrom(config.CommentaryConfig{Provider: config.ProviderGroq, Timeout: time.Second, MaxTokens: 300})
	assert.Equal(t, DefaultChatModel, s.Model)
	assert.Equal(t, time.Second, s.Timeout)

	s = SettingsFrom(config.CommentaryConfig{Provider: config.ProviderGemini, Model: "custom"})
	assert.Equal(t, "custom", s.Model)
	assert.Equal(t, DefaultGeminiModel, DefaultModel(config.ProviderGemini))
}
