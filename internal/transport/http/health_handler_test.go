package http

import (
	"context"
	"net/http"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apierrors "github.com/essai1415/discount-analysis-dashboard/internal/errors"
	"github.com/essai1415/discount-analysis-dashboard/internal/services"
)

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func healthRouter(svc HealthServiceInterface) http.Handler {
	h := NewHealthHandler(svc, testLogger())
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Get("/health/ready", h.ReadinessCheck)
	r.Get("/health/live", h.LivenessCheck)
	r.Get("/version", h.Version)
	return r
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(*MockHealthService)
		wantStatus int
		wantField  string
		wantValue  interface{}
	}{
		{
			name:   "health",
			target: "/health",
			setup: func(m *MockHealthService) {
				m.On("HealthCheck", mock.Anything).Return(services.HealthStatus{Status: "ok", Version: "1.0.0"})
			},
			wantStatus: http.StatusOK,
			wantField:  "status",
			wantValue:  "ok",
		},
		{
			name:   "ready",
			target: "/health/ready",
			setup: func(m *MockHealthService) {
				m.On("ReadinessCheck", mock.Anything).Return(services.HealthStatus{Status: "ready"})
			},
			wantStatus: http.StatusOK,
			wantField:  "status",
			wantValue:  "ready",
		},
		{
			name:   "not ready until the dataset loads",
			target: "/health/ready",
			setup: func(m *MockHealthService) {
				m.On("ReadinessCheck", mock.Anything).Return(services.HealthStatus{
					Status:   "not_ready",
					Services: map[string]interface{}{"dataset": "not_loaded"},
				})
			},
			wantStatus: http.StatusServiceUnavailable,
			wantField:  "status",
			wantValue:  "not_ready",
		},
		{
			name:   "live",
			target: "/health/live",
			setup: func(m *MockHealthService) {
				m.On("LivenessCheck", mock.Anything).Return(services.HealthStatus{Status: "alive"})
			},
			wantStatus: http.StatusOK,
			wantField:  "status",
			wantValue:  "alive",
		},
		{
			name:   "version",
			target: "/version",
			setup: func(m *MockHealthService) {
				m.On("Version").Return(map[string]interface{}{"version": "1.2.3"})
			},
			wantStatus: http.StatusOK,
			wantField:  "version",
			wantValue:  "1.2.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockHealthService)
			tt.setup(svc)

			w, body := doRequest(t, healthRouter(svc), http.MethodGet, tt.target, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantValue, body[tt.wantField])
			svc.AssertExpectations(t)
		})
	}
}

func TestUIHandler(t *testing.T) {
	files := fstest.MapFS{
		"index.html": {Data: []byte("<html><body>Discount Analysis</body></html>")},
		"app.js":     {Data: []byte("console.log('ok')")},
	}
	h := NewUIHandler(files, testLogger())

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
	}{
		{name: "index", target: "/", wantStatus: http.StatusOK, wantBody: "Discount Analysis"},
		{name: "asset", target: "/app.js", wantStatus: http.StatusOK, wantBody: "console.log"},
		{name: "missing asset", target: "/nope.css", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(http.MethodGet, tt.target)
			w := serve(h, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}

	t.Run("no frontend", func(t *testing.T) {
		w := serve(NewUIHandler(nil, testLogger()), newRequest(http.MethodGet, "/"))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestClientLogHandler(t *testing.T) {
	h := NewClientLogHandler(testLogger(), apierrors.NewErrorHandler(testLogger(), false))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid entry", body: `{"level":"error","message":"websocket closed","source":"dashboard.js"}`, wantStatus: http.StatusNoContent},
		{name: "default level", body: `{"message":"plot rendered"}`, wantStatus: http.StatusNoContent},
		{name: "unknown level", body: `{"level":"fatal","message":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "missing message", body: `{"level":"info"}`, wantStatus: http.StatusBadRequest},
		{name: "invalid json", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doRequest(t, http.HandlerFunc(h.Handle), http.MethodPost, "/api/log", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
