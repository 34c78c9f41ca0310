package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/essai1415/discount-analysis-dashboard/internal/commentary"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
	"github.com/essai1415/discount-analysis-dashboard/internal/facts"
	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
	"github.com/essai1415/discount-analysis-dashboard/internal/insights"
	"github.com/essai1415/discount-analysis-dashboard/internal/plots"
	"github.com/essai1415/discount-analysis-dashboard/internal/session"
	ws "github.com/essai1415/discount-analysis-dashboard/internal/websocket"
)

// Panel button labels.
const (
	ShowInsightsLabel        = "Show Detailed Business Insights"
	HideInsightsLabel        = "Hide Detailed Business Insights"
	RevealRecommendationText = "Reveal AI Powered Strategic Action"
	HideRecommendationText   = "Hide AI Powered Strategic Action"
)

// DatasetStore is the part of dataset.Holder the service needs.
type DatasetStore interface {
	Get() (*dataset.Table, error)
	Reload(ctx context.Context) (dataset.Status, error)
	Status() dataset.Status
}

// Broadcaster publishes events to connected websocket clients, either to
// everyone or to the connections of a single session.
type Broadcaster interface {
	Broadcast(eventType string, data interface{})
	SendToSession(sessionID, eventType string, data interface{})
}

// AnalysisInfo is one entry of the analysis selector.
type AnalysisInfo struct {
	ID        plots.AnalysisKind `json:"id"`
	Label     string             `json:"label"`
	PlotCount int                `json:"plot_count"`
}

// PlotInfo is one entry of the plot selector.
type PlotInfo struct {
	ID      plots.PlotID       `json:"id"`
	Kind    plots.AnalysisKind `json:"kind"`
	Ordinal int                `json:"ordinal"`
	Label   string             `json:"label"`
	Title   string             `json:"title"`
	Chart   plots.ChartType    `json:"chart"`
}

// ToggleResult is the state of a panel toggle after flipping it.
type ToggleResult struct {
	Plot    plots.PlotID `json:"plot"`
	Enabled bool         `json:"enabled"`
	Label   string       `json:"label"`
}

// Panel is the insight and recommendation panel of one plot.
type Panel struct {
	Plot               plots.PlotID                     `json:"plot"`
	ShowInsights       bool                             `json:"show_insights"`
	ShowRecommendation bool                             `json:"show_recommendation"`
	InsightsLabel      string                           `json:"insights_label"`
	RecommendationText string                           `json:"recommendation_label"`
	Insights           []string                         `json:"insights,omitempty"`
	Summary            *insights.SummaryTable           `json:"summary,omitempty"`
	SummaryText        string                           `json:"summary_text,omitempty"`
	Recommendation     *commentary.RecommendationResult `json:"recommendation,omitempty"`
	CommentaryEnabled  bool                             `json:"commentary_enabled"`
}

// DashboardService coordinates plots, panels, facts and dataset reloads.
type DashboardService struct {
	datasets   DatasetStore
	renderer   *plots.Renderer
	commentary *commentary.Orchestrator
	hub        Broadcaster
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics
}

// NewDashboardService creates the service. hub and metrics may be nil.
func NewDashboardService(
	datasets DatasetStore,
	renderer *plots.Renderer,
	orchestrator *commentary.Orchestrator,
	hub Broadcaster,
	logger *slog.Logger,
	metrics *infrastructure.BusinessMetrics,
) *DashboardService {
	return &DashboardService{
		datasets:   datasets,
		renderer:   renderer,
		commentary: orchestrator,
		hub:        hub,
		logger:     serviceLogger(logger, "dashboard_service"),
		metrics:    metrics,
	}
}

// Analyses lists the analysis kinds in menu order.
func (s *DashboardService) Analyses() []AnalysisInfo {
	out := make([]AnalysisInfo, 0, len(plots.AnalysisKinds))
	for _, kind := range plots.AnalysisKinds {
		out = append(out, AnalysisInfo{ID: kind, Label: kind.Label(), PlotCount: len(plots.ForKind(kind))})
	}
	return out
}

// Plots lists the plots of an analysis kind. Facts has none.
func (s *DashboardService) Plots(kind string) ([]PlotInfo, error) {
	k, ok := plots.ParseAnalysisKind(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysis, kind)
	}
	defs := plots.ForKind(k)
	out := make([]PlotInfo, len(defs))
	for i, d := range defs {
		out[i] = PlotInfo{ID: d.ID, Kind: d.Kind, Ordinal: d.Ordinal, Label: d.Label(), Title: d.Title, Chart: d.Chart}
	}
	return out, nil
}

func (s *DashboardService) plotID(raw string) (plots.PlotID, error) {
	id, ok := plots.ParsePlotID(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlot, raw)
	}
	return id, nil
}

func (s *DashboardService) table() (*dataset.Table, error) {
	t, err := s.datasets.Get()
	if err != nil {
		if errors.Is(err, dataset.ErrNotLoaded) {
			return nil, ErrDatasetNotLoaded
		}
		return nil, err
	}
	return t, nil
}

// Render computes a plot against the current dataset. Missing columns come
// back as an Unavailable result, not as an error.
func (s *DashboardService) Render(ctx context.Context, plotID string, f plots.Filters) (*plots.RenderResult, error) {
	id, err := s.plotID(plotID)
	if err != nil {
		return nil, err
	}
	t, err := s.table()
	if err != nil {
		return nil, err
	}

	res, err := s.renderer.Render(ctx, t, id, f)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", id, err)
	}
	return &res, nil
}

// ToggleInsights flips the detailed-insights flag of a plot.
func (s *DashboardService) ToggleInsights(ctx context.Context, store session.Store, plotID string) (ToggleResult, error) {
	id, err := s.plotID(plotID)
	if err != nil {
		return ToggleResult{}, err
	}
	on := session.Toggle(store, session.InsightsKey(string(id)))
	s.logger.DebugContext(ctx, "insights toggled", slog.String("plot", string(id)), slog.Bool("enabled", on))
	return ToggleResult{Plot: id, Enabled: on, Label: insightsLabel(on)}, nil
}

// ToggleRecommendation flips the recommendation flag of a plot. The cached
// recommendation is kept so showing it again does not call the provider.
func (s *DashboardService) ToggleRecommendation(ctx context.Context, store session.Store, plotID string) (ToggleResult, error) {
	id, err := s.plotID(plotID)
	if err != nil {
		return ToggleResult{}, err
	}
	on := session.Toggle(store, session.RecommendationKey(string(id)))
	s.logger.DebugContext(ctx, "recommendation toggled", slog.String("plot", string(id)), slog.Bool("enabled", on))
	return ToggleResult{Plot: id, Enabled: on, Label: recommendationLabel(on)}, nil
}

func insightsLabel(on bool) string {
	if on {
		return HideInsightsLabel
	}
	return ShowInsightsLabel
}

func recommendationLabel(on bool) string {
	if on {
		return HideRecommendationText
	}
	return RevealRecommendationText
}

// Panel returns the insight and recommendation panel of a plot for the
// session. The recommendation is generated on first show and cached.
func (s *DashboardService) Panel(ctx context.Context, store session.Store, plotID string) (*Panel, error) {
	id, err := s.plotID(plotID)
	if err != nil {
		return nil, err
	}

	p := &Panel{
		Plot:               id,
		ShowInsights:       session.Flag(store, session.InsightsKey(string(id))),
		ShowRecommendation: session.Flag(store, session.RecommendationKey(string(id))),
		CommentaryEnabled:  s.commentary.Enabled(),
	}
	p.InsightsLabel = insightsLabel(p.ShowInsights)
	p.RecommendationText = recommendationLabel(p.ShowRecommendation)

	items, summary := s.renderer.Insights(id)
	if p.ShowInsights {
		p.Insights = items
		p.Summary = summary
		p.SummaryText = insights.FormatSummary(summary)
	}
	if p.ShowRecommendation {
		rec := s.commentary.Recommend(ctx, store, string(id), items, summary)
		p.Recommendation = &rec
		// Failures are carried by the panel itself and never announced, so a
		// client re-rendering on events cannot retry the provider in a loop.
		if !rec.Cached && rec.Warning == "" {
			s.announceCommentary(ctx, id, "recommendation", "")
		}
	}
	return p, nil
}

// FollowUp answers a question about a plot's insights. It is only offered
// while the recommendation is shown. Answers are never cached. A provider
// failure is returned as a warning in the result.
func (s *DashboardService) FollowUp(ctx context.Context, store session.Store, plotID, question string) (*commentary.FollowUpResult, error) {
	id, err := s.plotID(plotID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if !s.commentary.Enabled() {
		return nil, ErrCommentaryDisabled
	}
	if !session.Flag(store, session.RecommendationKey(string(id))) {
		return nil, ErrRecommendationHidden
	}

	items, summary := s.renderer.Insights(id)
	res, err := s.commentary.FollowUp(ctx, string(id), question, items, summary)
	if err != nil {
		return nil, err
	}
	s.announceCommentary(ctx, id, "follow_up", res.Warning)
	return &res, nil
}

// announceCommentary tells the other connections of the requesting session
// that commentary for a plot changed. Commentary is private to a session and
// is never broadcast.
func (s *DashboardService) announceCommentary(ctx context.Context, id plots.PlotID, kind, warning string) {
	sid := session.IDFromContext(ctx)
	if s.hub == nil || sid == "" {
		return
	}
	event := ws.EventCommentaryReady
	data := map[string]interface{}{
		"plot": id,
		"kind": kind,
	}
	if warning != "" {
		event = ws.EventCommentaryFailed
		data["warning"] = warning
	}
	s.hub.SendToSession(sid, event, data)
}

// Facts computes the facts and figures overview.
func (s *DashboardService) Facts(ctx context.Context, opts facts.Options) (*facts.Facts, error) {
	t, err := s.table()
	if err != nil {
		return nil, err
	}

	if opts.TrendMetric == "" {
		opts.TrendMetric = facts.DefaultTrendMetric
	}

	start := time.Now()
	out, err := facts.Compute(ctx, t, opts)
	infrastructure.RecordFactsRender(ctx, s.metrics, opts.TrendMetric, opts.ExcludeNegatives)
	if err != nil {
		if errors.Is(err, facts.ErrUnknownMetric) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("compute facts: %w", err)
	}

	s.logger.DebugContext(ctx, "facts computed",
		slog.Int("rows", out.Overview.Rows),
		slog.Int("notices", len(out.Notices)),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

// FilterOptions lists the values offered by the multi-select filters.
type FilterOptions struct {
	Brands     []string `json:"brands"`
	Regions    []string `json:"regions"`
	Categories []string `json:"categories"`
}

// FilterOptions returns the distinct brand, region and category values of
// the loaded dataset. Absent columns give empty lists.
func (s *DashboardService) FilterOptions(ctx context.Context) (FilterOptions, error) {
	t, err := s.table()
	if err != nil {
		return FilterOptions{}, err
	}
	opts := FilterOptions{
		Brands:     nonNil(t.Distinct(dataset.ColBrand)),
		Regions:    nonNil(t.Distinct(dataset.ColRegion)),
		Categories: nonNil(t.Distinct(dataset.ColCategory)),
	}
	s.logger.DebugContext(ctx, "filter options listed",
		slog.Int("brands", len(opts.Brands)),
		slog.Int("regions", len(opts.Regions)),
		slog.Int("categories", len(opts.Categories)))
	return opts, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// DatasetStatus reports the currently loaded dataset.
func (s *DashboardService) DatasetStatus() dataset.Status {
	return s.datasets.Status()
}

// ReloadDataset loads the dataset again and announces the outcome. A failed
// reload keeps the previous table.
func (s *DashboardService) ReloadDataset(ctx context.Context) (dataset.Status, error) {
	s.logger.InfoContext(ctx, "dataset reload requested")

	st, err := s.datasets.Reload(ctx)
	if err != nil {
		if errors.Is(err, dataset.ErrReloadInProgress) {
			return st, ErrReloadRunning
		}
		s.broadcast(ws.EventDatasetFailed, map[string]interface{}{
			"source": st.Source,
			"error":  err.Error(),
		})
		return st, fmt.Errorf("%w: %v", ErrDatasetLoad, err)
	}

	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", st.Source),
		slog.Int("rows", st.Rows),
		slog.Int("columns", len(st.Columns)))
	s.broadcast(ws.EventDatasetLoaded, st)
	return st, nil
}

func (s *DashboardService) broadcast(event string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(event, data)
}
