package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/essai1415/discount-analysis-dashboard/internal/commentary"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
	apierrors "github.com/essai1415/discount-analysis-dashboard/internal/errors"
	"github.com/essai1415/discount-analysis-dashboard/internal/facts"
	"github.com/essai1415/discount-analysis-dashboard/internal/plots"
	"github.com/essai1415/discount-analysis-dashboard/internal/services"
	"github.com/essai1415/discount-analysis-dashboard/internal/session"
)

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Analyses() []services.AnalysisInfo {
	return m.Called().Get(0).([]services.AnalysisInfo)
}

func (m *MockDashboardService) Plots(kind string) ([]services.PlotInfo, error) {
	args := m.Called(kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.PlotInfo), args.Error(1)
}

func (m *MockDashboardService) Render(ctx context.Context, plotID string, f plots.Filters) (*plots.RenderResult, error) {
	args := m.Called(ctx, plotID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plots.RenderResult), args.Error(1)
}

func (m *MockDashboardService) Panel(ctx context.Context, store session.Store, plotID string) (*services.Panel, error) {
	args := m.Called(ctx, store, plotID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Panel), args.Error(1)
}

func (m *MockDashboardService) ToggleInsights(ctx context.Context, store session.Store, plotID string) (services.ToggleResult, error) {
	args := m.Called(ctx, store, plotID)
	return args.Get(0).(services.ToggleResult), args.Error(1)
}

func (m *MockDashboardService) ToggleRecommendation(ctx context.Context, store session.Store, plotID string) (services.ToggleResult, error) {
	args := m.Called(ctx, store, plotID)
	return args.Get(0).(services.ToggleResult), args.Error(1)
}

func (m *MockDashboardService) FollowUp(ctx context.Context, store session.Store, plotID, question string) (*commentary.FollowUpResult, error) {
	args := m.Called(ctx, store, plotID, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commentary.FollowUpResult), args.Error(1)
}

func (m *MockDashboardService) Facts(ctx context.Context, opts facts.Options) (*facts.Facts, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*facts.Facts), args.Error(1)
}

func (m *MockDashboardService) FilterOptions(ctx context.Context) (services.FilterOptions, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.FilterOptions), args.Error(1)
}

func (m *MockDashboardService) DatasetStatus() dataset.Status {
	return m.Called().Get(0).(dataset.Status)
}

func (m *MockDashboardService) ReloadDataset(ctx context.Context) (dataset.Status, error) {
	args := m.Called(ctx)
	return args.Get(0).(dataset.Status), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter mounts the handler behind a fixed session store.
func newTestRouter(svc *MockDashboardService, store session.Store) http.Handler {
	h := NewDashboardHandler(svc, testLogger(), apierrors.NewErrorHandler(testLogger(), false))
	routes := h.Routes()
	if store == nil {
		return routes
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routes.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), "test-session", store)))
	})
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestListAnalyses(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Analyses").Return([]services.AnalysisInfo{
		{ID: plots.KindQuantitative, Label: "Quantitative Analysis"},
	})

	w, body := doRequest(t, newTestRouter(svc, nil), http.MethodGet, "/analyses", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "quantitative", data[0].(map[string]interface{})["id"])
	svc.AssertExpectations(t)
}

func TestListPlots(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		setup      func(*MockDashboardService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "known kind",
			kind: "qualitative",
			setup: func(m *MockDashboardService) {
				m.On("Plots", "qualitative").Return([]services.PlotInfo{{ID: "brand", Label: "Brand"}}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown kind is rejected before the service",
			kind:       "astrology",
			setup:      func(*MockDashboardService) {},
			wantStatus: http.StatusNotFound,
			wantCode:   "ANALYSIS_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setup(svc)

			w, body := doRequest(t, newTestRouter(svc, nil), http.MethodGet, "/analyses/"+tt.kind+"/plots", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRenderPlot(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(*MockDashboardService)
		wantStatus int
		wantCode   string
	}{
		{
			name:   "filters from repeated and comma separated values",
			target: "/plots/brand?brand=Mia&brand=Tanishq&region=North,%20South",
			setup: func(m *MockDashboardService) {
				want := plots.Filters{Brands: []string{"Mia", "Tanishq"}, Regions: []string{"North", "South"}}
				m.On("Render", mock.Anything, "brand", want).
					Return(&plots.RenderResult{Plot: plots.PlotBrand, Rows: 10}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown plot",
			target:     "/plots/horoscope",
			setup:      func(*MockDashboardService) {},
			wantStatus: http.StatusNotFound,
			wantCode:   "PLOT_NOT_FOUND",
		},
		{
			name:   "dataset not loaded",
			target: "/plots/quantity",
			setup: func(m *MockDashboardService) {
				m.On("Render", mock.Anything, "quantity", plots.Filters{}).
					Return(nil, fmt.Errorf("render: %w", services.ErrDatasetNotLoaded))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "DATASET_NOT_LOADED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setup(svc)

			w, body := doRequest(t, newTestRouter(svc, nil), http.MethodGet, tt.target, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			} else {
				assert.Equal(t, "success", body["status"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDownloadTable(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Render", mock.Anything, "brand", plots.Filters{Regions: []string{"North"}}).
		Return(&plots.RenderResult{
			Plot: plots.PlotBrand,
			Table: &plots.Table{
				Columns: []string{"Brand", "Total_Discount"},
				Rows:    [][]any{{"MIA", 50.0}, {"ZOYA", 12.5}},
			},
		}, nil)
	svc.On("Render", mock.Anything, "quantity", plots.Filters{}).
		Return(&plots.RenderResult{Plot: plots.PlotQuantity}, nil)
	router := newTestRouter(svc, nil)

	w := serve(router, newRequest(http.MethodGet, "/plots/brand/table.csv?region=North"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="brand.csv"`)
	assert.Equal(t, "\xEF\xBB\xBFBrand,Total_Discount\nMIA,50.00\nZOYA,12.50\n", w.Body.String())

	w, body := doRequest(t, router, http.MethodGet, "/plots/quantity/table.csv", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "TABLE_NOT_AVAILABLE", body["error_code"])

	w = serve(router, newRequest(http.MethodGet, "/plots/horoscope/table.csv"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertExpectations(t)
}

func TestPanelAndToggles(t *testing.T) {
	store := session.NewMemoryStore()
	svc := new(MockDashboardService)
	svc.On("Panel", mock.Anything, store, "brand").Return(&services.Panel{Plot: "brand", InsightsLabel: services.ShowInsightsLabel}, nil)
	svc.On("ToggleInsights", mock.Anything, store, "brand").
		Return(services.ToggleResult{Plot: "brand", Enabled: true, Label: services.HideInsightsLabel}, nil)
	svc.On("ToggleRecommendation", mock.Anything, store, "brand").
		Return(services.ToggleResult{Plot: "brand", Enabled: true, Label: services.HideRecommendationText}, nil)
	router := newTestRouter(svc, store)

	w, body := doRequest(t, router, http.MethodGet, "/plots/brand/panel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.ShowInsightsLabel, body["data"].(map[string]interface{})["insights_label"])

	w, body = doRequest(t, router, http.MethodPost, "/plots/brand/insights/toggle", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["data"].(map[string]interface{})["enabled"])

	w, _ = doRequest(t, router, http.MethodPost, "/plots/brand/recommendation/toggle", "")
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}

func TestPanelWithoutSession(t *testing.T) {
	svc := new(MockDashboardService)

	w, _ := doRequest(t, newTestRouter(svc, nil), http.MethodGet, "/plots/brand/panel", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	svc.AssertNotCalled(t, "Panel", mock.Anything, mock.Anything, mock.Anything)
}

func TestFollowUp(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockDashboardService, session.Store)
		wantStatus int
		wantCode   string
	}{
		{
			name: "answered",
			body: `{"question":"  Why is Mia discounted?  "}`,
			setup: func(m *MockDashboardService, s session.Store) {
				m.On("FollowUp", mock.Anything, s, "brand", "Why is Mia discounted?").
					Return(&commentary.FollowUpResult{
						Question: "Why is Mia discounted?",
						Answer:   &commentary.FollowUpAnswer{Bullets: []string{"Festive push"}, Raw: "• Festive push"},
					}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "blank question",
			body:       `{"question":"   "}`,
			setup:      func(*MockDashboardService, session.Store) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed body",
			body:       `{"question":`,
			setup:      func(*MockDashboardService, session.Store) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name: "recommendation hidden",
			body: `{"question":"and now?"}`,
			setup: func(m *MockDashboardService, s session.Store) {
				m.On("FollowUp", mock.Anything, s, "brand", "and now?").Return(nil, services.ErrRecommendationHidden)
			},
			wantStatus: http.StatusConflict,
			wantCode:   "RECOMMENDATION_HIDDEN",
		},
		{
			name: "commentary disabled",
			body: `{"question":"and now?"}`,
			setup: func(m *MockDashboardService, s session.Store) {
				m.On("FollowUp", mock.Anything, s, "brand", "and now?").Return(nil, services.ErrCommentaryDisabled)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "COMMENTARY_DISABLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := session.NewMemoryStore()
			svc := new(MockDashboardService)
			tt.setup(svc, store)

			w, body := doRequest(t, newTestRouter(svc, store), http.MethodPost, "/plots/brand/follow-up", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			} else {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, "Why is Mia discounted?", data["question"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestGetFacts(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(*MockDashboardService)
		wantStatus int
	}{
		{
			name:   "defaults",
			target: "/facts",
			setup: func(m *MockDashboardService) {
				m.On("Facts", mock.Anything, facts.Options{}).Return(&facts.Facts{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "exclude negatives with metric",
			target: "/facts?exclude_negatives=true&metric=Discount",
			setup: func(m *MockDashboardService) {
				m.On("Facts", mock.Anything, facts.Options{ExcludeNegatives: true, TrendMetric: dataset.NormalizeHeader("Discount")}).
					Return(&facts.Facts{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad boolean",
			target:     "/facts?exclude_negatives=maybe",
			setup:      func(*MockDashboardService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown metric",
			target:     "/facts?metric=Horsepower",
			setup:      func(*MockDashboardService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setup(svc)

			w, _ := doRequest(t, newTestRouter(svc, nil), http.MethodGet, tt.target, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestGetFilterOptions(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("FilterOptions", mock.Anything).Return(services.FilterOptions{
		Brands:     []string{"MIA", "ZOYA"},
		Regions:    []string{"North"},
		Categories: []string{},
	}, nil).Once()
	svc.On("FilterOptions", mock.Anything).Return(services.FilterOptions{}, services.ErrDatasetNotLoaded).Once()
	router := newTestRouter(svc, nil)

	w, body := doRequest(t, router, http.MethodGet, "/filters", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"MIA", "ZOYA"}, data["brands"])

	w, body = doRequest(t, router, http.MethodGet, "/filters", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DATASET_NOT_LOADED", body["error_code"])
	svc.AssertExpectations(t)
}

func TestDatasetEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		reloadErr  error
		wantStatus int
		wantCode   string
	}{
		{name: "reloaded", wantStatus: http.StatusOK},
		{name: "already running", reloadErr: services.ErrReloadRunning, wantStatus: http.StatusConflict, wantCode: "RELOAD_IN_PROGRESS"},
		{
			name:       "load failure",
			reloadErr:  fmt.Errorf("%w: %v", services.ErrDatasetLoad, "sheet Sheet1 missing"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "DATASET_LOAD_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			st := dataset.Status{Loaded: tt.reloadErr == nil, Rows: 3}
			svc.On("ReloadDataset", mock.Anything).Return(st, tt.reloadErr)
			svc.On("DatasetStatus").Return(st)
			router := newTestRouter(svc, nil)

			w, body := doRequest(t, router, http.MethodPost, "/dataset/reload", "")
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}

			w, body = doRequest(t, router, http.MethodGet, "/dataset", "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, float64(3), body["data"].(map[string]interface{})["rows"])
		})
	}
}

func newRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}
