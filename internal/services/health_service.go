package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
)

// StatusReporter reports the dataset currently held.
type StatusReporter interface {
	Status() dataset.Status
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// SessionCounter reports live dashboard sessions.
type SessionCounter interface {
	Len() int
}

// RuntimeSampler reports the latest Go runtime sample.
type RuntimeSampler interface {
	Snapshot(ctx context.Context) infrastructure.RuntimeStats
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	BuildTime string
	BuildID   string
}

// HealthService provides health check functionality
type HealthService struct {
	build             BuildInfo
	datasets          StatusReporter
	clients           ClientCounter
	sessions          SessionCounter
	sampler           RuntimeSampler
	commentaryEnabled bool
	startTime         time.Time
	logger            *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. clients and sessions may be nil.
func NewHealthService(build BuildInfo, datasets StatusReporter, clients ClientCounter, sessions SessionCounter, commentaryEnabled bool, logger *slog.Logger) *HealthService {
	logger = serviceLogger(logger, "health_service")
	logger.Info("HealthService initialized",
		slog.String("version", build.Version),
		slog.String("build_time", build.BuildTime),
		slog.String("build_id", build.BuildID))

	return &HealthService{
		build:             build,
		datasets:          datasets,
		clients:           clients,
		sessions:          sessions,
		commentaryEnabled: commentaryEnabled,
		startTime:         time.Now(),
		logger:            logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
	}
}

// ReadinessCheck reports ready only once a dataset is loaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Services: map[string]interface{}{
			"dataset":    hs.checkDatasetHealth(),
			"websocket":  hs.checkWebSocketHealth(),
			"commentary": hs.checkCommentaryHealth(),
		},
	}

	// Commentary is optional; the dashboard works without it.
	if sh := status.Services["dataset"].(ServiceHealth); sh.Status != "ready" {
		status.Status = "not_ready"
	}

	hs.logger.DebugContext(ctx, "ReadinessCheck: completed", slog.String("status", status.Status))
	return status
}

// WithRuntime attaches a runtime sampler whose latest sample is reported by
// LivenessCheck.
func (hs *HealthService) WithRuntime(sampler RuntimeSampler) *HealthService {
	hs.sampler = sampler
	return hs
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	var rt map[string]interface{}
	if hs.sampler != nil {
		rt = hs.sampler.Snapshot(ctx).Map()
	} else {
		rt = map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		}
	}
	rt["uptime"] = time.Since(hs.startTime).Seconds()
	if hs.sessions != nil {
		rt["sessions"] = hs.sessions.Len()
	}
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.build.Version,
		Runtime:   rt,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.build.Version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.build.BuildTime != "" {
		result["build_time"] = hs.build.BuildTime
	}
	if hs.build.BuildID != "" {
		result["build_id"] = hs.build.BuildID
	}
	return result
}

func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.datasets == nil {
		return ServiceHealth{Status: "not_ready", Message: "dataset holder not initialized"}
	}
	st := hs.datasets.Status()
	switch {
	case st.Loaded:
		return ServiceHealth{
			Status:  "ready",
			Message: fmt.Sprintf("%d rows from %s", st.Rows, st.Source),
			Uptime:  time.Since(st.LoadedAt).Round(time.Second).String(),
		}
	case st.Reloading:
		return ServiceHealth{Status: "not_ready", Message: "dataset is loading"}
	case st.LastError != "":
		return ServiceHealth{Status: "not_ready", Message: "Dataset load failed: " + st.LastError}
	default:
		return ServiceHealth{Status: "not_ready", Message: "dataset not loaded"}
	}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	msg := "WebSocket service is healthy"
	if hs.clients != nil {
		msg = fmt.Sprintf("%d clients connected", hs.clients.ClientCount())
	}
	return ServiceHealth{
		Status:  "ready",
		Message: msg,
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkCommentaryHealth() ServiceHealth {
	if !hs.commentaryEnabled {
		return ServiceHealth{Status: "disabled", Message: "no commentary provider configured"}
	}
	return ServiceHealth{Status: "ready"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"version":   hs.Version(),
	}
}
