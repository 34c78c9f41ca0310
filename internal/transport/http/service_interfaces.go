package http

import (
	"context"

	"github.com/essai1415/discount-analysis-dashboard/internal/commentary"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
	"github.com/essai1415/discount-analysis-dashboard/internal/facts"
	"github.com/essai1415/discount-analysis-dashboard/internal/plots"
	"github.com/essai1415/discount-analysis-dashboard/internal/services"
	"github.com/essai1415/discount-analysis-dashboard/internal/session"
)

// DashboardServiceInterface defines the dashboard operations the API exposes.
type DashboardServiceInterface interface {
	Analyses() []services.AnalysisInfo
	Plots(kind string) ([]services.PlotInfo, error)
	Render(ctx context.Context, plotID string, f plots.Filters) (*plots.RenderResult, error)
	Panel(ctx context.Context, store session.Store, plotID string) (*services.Panel, error)
	ToggleInsights(ctx context.Context, store session.Store, plotID string) (services.ToggleResult, error)
	ToggleRecommendation(ctx context.Context, store session.Store, plotID string) (services.ToggleResult, error)
	FollowUp(ctx context.Context, store session.Store, plotID, question string) (*commentary.FollowUpResult, error)
	Facts(ctx context.Context, opts facts.Options) (*facts.Facts, error)
	FilterOptions(ctx context.Context) (services.FilterOptions, error)
	DatasetStatus() dataset.Status
	ReloadDataset(ctx context.Context) (dataset.Status, error)
}

// HealthServiceInterface defines the health operations.
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}
