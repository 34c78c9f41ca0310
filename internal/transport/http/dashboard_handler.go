package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/essai1415/discount-analysis-dashboard/internal/commentary"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
	apierrors "github.com/essai1415/discount-analysis-dashboard/internal/errors"
	"github.com/essai1415/discount-analysis-dashboard/internal/exporter"
	"github.com/essai1415/discount-analysis-dashboard/internal/facts"
	appmiddleware "github.com/essai1415/discount-analysis-dashboard/internal/middleware"
	"github.com/essai1415/discount-analysis-dashboard/internal/plots"
	"github.com/essai1415/discount-analysis-dashboard/internal/services"
	"github.com/essai1415/discount-analysis-dashboard/internal/session"
)

// FollowUpRequest is the body of POST /plots/{plotID}/follow-up.
type FollowUpRequest struct {
	PlotID   string `json:"-" validate:"required,plot_id"`
	Question string `json:"question" validate:"required"`
}

type factsQuery struct {
	Metric string `json:"metric" validate:"omitempty,metric_column"`
}

type kindParam struct {
	Kind string `json:"kind" validate:"required,analysis_kind"`
}

// DashboardHandler serves the dashboard JSON API.
type DashboardHandler struct {
	service      DashboardServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validate     *validator.Validate
	query        *appmiddleware.QueryParamValidator
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
		validate:     appmiddleware.NewValidator(),
		query:        appmiddleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the dashboard routes.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/analyses", h.ListAnalyses)
	r.Get("/analyses/{kind}/plots", h.ListPlots)

	r.Route("/plots/{plotID}", func(r chi.Router) {
		r.Use(h.PlotCtx)
		r.Get("/", h.RenderPlot)
		r.Get("/table.csv", h.DownloadTable)
		r.Get("/panel", h.GetPanel)
		r.Post("/insights/toggle", h.ToggleInsights)
		r.Post("/recommendation/toggle", h.ToggleRecommendation)
		r.Post("/follow-up", h.FollowUp)
	})

	r.Get("/facts", h.GetFacts)
	r.Get("/filters", h.GetFilterOptions)
	r.Get("/dataset", h.GetDataset)
	r.Post("/dataset/reload", h.ReloadDataset)

	return r
}

// PlotCtx rejects unknown plot identifiers before any handler runs.
func (h *DashboardHandler) PlotCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		plotID := chi.URLParam(r, "plotID")
		if _, ok := plots.ParsePlotID(plotID); !ok {
			h.errorHandler.HandleError(w, r, apierrors.PlotNotFoundError(plotID))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func success(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

// ListAnalyses handles GET /api/dashboard/analyses
func (h *DashboardHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	success(w, r, h.service.Analyses())
}

// ListPlots handles GET /api/dashboard/analyses/{kind}/plots
func (h *DashboardHandler) ListPlots(w http.ResponseWriter, r *http.Request) {
	p := kindParam{Kind: chi.URLParam(r, "kind")}
	if err := appmiddleware.ValidateStruct(h.validate, p); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound, "ANALYSIS_NOT_FOUND", "Analysis type not found", p.Kind))
		return
	}

	list, err := h.service.Plots(p.Kind)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	success(w, r, list)
}

func filtersFromQuery(r *http.Request) plots.Filters {
	return plots.Filters{
		Brands:     appmiddleware.MultiValue(r, "brand"),
		Regions:    appmiddleware.MultiValue(r, "region"),
		Categories: appmiddleware.MultiValue(r, "category"),
	}
}

// RenderPlot handles GET /api/dashboard/plots/{plotID}
func (h *DashboardHandler) RenderPlot(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Render(r.Context(), chi.URLParam(r, "plotID"), filtersFromQuery(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	success(w, r, res)
}

// DownloadTable handles GET /api/dashboard/plots/{plotID}/table.csv
func (h *DashboardHandler) DownloadTable(w http.ResponseWriter, r *http.Request) {
	plotID := chi.URLParam(r, "plotID")
	res, err := h.service.Render(r.Context(), plotID, filtersFromQuery(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if res.Table == nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound, "TABLE_NOT_AVAILABLE", "Plot has no table for the current selection", plotID))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+plotID+`.csv"`)
	err = exporter.WriteCSV(w, exporter.WriteOptions{
		Headers:   res.Table.Columns,
		Records:   res.Table.Rows,
		BOMPrefix: true,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write table csv",
			slog.String("plot", plotID),
			slog.String("error", err.Error()))
	}
}

// GetPanel handles GET /api/dashboard/plots/{plotID}/panel
func (h *DashboardHandler) GetPanel(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionStore(w, r)
	if !ok {
		return
	}
	panel, err := h.service.Panel(r.Context(), store, chi.URLParam(r, "plotID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	success(w, r, panel)
}

// ToggleInsights handles POST /api/dashboard/plots/{plotID}/insights/toggle
func (h *DashboardHandler) ToggleInsights(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionStore(w, r)
	if !ok {
		return
	}
	res, err := h.service.ToggleInsights(r.Context(), store, chi.URLParam(r, "plotID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	success(w, r, res)
}

// ToggleRecommendation handles POST /api/dashboard/plots/{plotID}/recommendation/toggle
func (h *DashboardHandler) ToggleRecommendation(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionStore(w, r)
	if !ok {
		return
	}
	res, err := h.service.ToggleRecommendation(r.Context(), store, chi.URLParam(r, "plotID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	success(w, r, res)
}

// FollowUp handles POST /api/dashboard/plots/{plotID}/follow-up
func (h *DashboardHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	store, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	var req FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	req.PlotID = chi.URLParam(r, "plotID")
	req.Question = strings.TrimSpace(req.Question)
	if err := appmiddleware.ValidateStruct(h.validate, req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := h.service.FollowUp(r.Context(), store, req.PlotID, req.Question)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	success(w, r, res)
}

// GetFacts handles GET /api/dashboard/facts
func (h *DashboardHandler) GetFacts(w http.ResponseWriter, r *http.Request) {
	excludeNegatives, ok := h.query.ValidateBool(w, r, "exclude_negatives", false)
	if !ok {
		return
	}
	q := factsQuery{Metric: dataset.NormalizeHeader(r.URL.Query().Get("metric"))}
	if err := appmiddleware.ValidateStruct(h.validate, q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	out, err := h.service.Facts(r.Context(), facts.Options{
		ExcludeNegatives: excludeNegatives,
		TrendMetric:      q.Metric,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	success(w, r, out)
}

// GetFilterOptions handles GET /api/dashboard/filters
func (h *DashboardHandler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.FilterOptions(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	success(w, r, opts)
}

// GetDataset handles GET /api/dashboard/dataset
func (h *DashboardHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	success(w, r, h.service.DatasetStatus())
}

// ReloadDataset handles POST /api/dashboard/dataset/reload
func (h *DashboardHandler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "dataset reload requested",
		slog.String("request_id", middleware.GetReqID(r.Context())))

	st, err := h.service.ReloadDataset(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	success(w, r, st)
}

func (h *DashboardHandler) sessionStore(w http.ResponseWriter, r *http.Request) (session.Store, bool) {
	store, ok := session.FromContext(r.Context())
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NewInternalError("session middleware is not installed"))
		return nil, false
	}
	return store, true
}

// handleServiceError maps service sentinel errors to API errors.
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierrors.APIError
	switch {
	case errors.Is(err, services.ErrUnknownPlot):
		apiErr = apierrors.PlotNotFoundError(chi.URLParam(r, "plotID"))
	case errors.Is(err, services.ErrUnknownAnalysis):
		apiErr = apierrors.ErrAnalysisNotFound
	case errors.Is(err, services.ErrDatasetNotLoaded):
		apiErr = apierrors.ErrDatasetNotLoaded
	case errors.Is(err, services.ErrDatasetLoad):
		apiErr = apierrors.DatasetLoadError(err)
	case errors.Is(err, services.ErrReloadRunning):
		apiErr = apierrors.ErrReloadRunning
	case errors.Is(err, services.ErrEmptyQuestion), errors.Is(err, commentary.ErrEmptyQuestion):
		apiErr = apierrors.ErrValidation("question", "question is required")
	case errors.Is(err, services.ErrCommentaryDisabled):
		apiErr = apierrors.ErrCommentaryDisabled
	case errors.Is(err, services.ErrRecommendationHidden):
		apiErr = apierrors.ErrRecommendationHidden
	case errors.Is(err, services.ErrInvalidInput):
		apiErr = apierrors.NewValidationError(err.Error())
	}
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}
	h.errorHandler.HandleError(w, r, err)
}
