package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/essai1415/discount-analysis-dashboard/internal/commentary"
	"github.com/essai1415/discount-analysis-dashboard/internal/config"
	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
	apierrors "github.com/essai1415/discount-analysis-dashboard/internal/errors"
	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
	"github.com/essai1415/discount-analysis-dashboard/internal/insights"
	appmiddleware "github.com/essai1415/discount-analysis-dashboard/internal/middleware"
	"github.com/essai1415/discount-analysis-dashboard/internal/plots"
	"github.com/essai1415/discount-analysis-dashboard/internal/services"
	"github.com/essai1415/discount-analysis-dashboard/internal/session"
	handlers "github.com/essai1415/discount-analysis-dashboard/internal/transport/http"
	ws "github.com/essai1415/discount-analysis-dashboard/internal/websocket"
)

const AppName = "Discount Analysis Dashboard"

// ShutdownGracePeriod bounds how long Stop waits for in-flight requests
// when the config leaves it unset.
const ShutdownGracePeriod = 30 * time.Second

var (
	// Version is set at link time with -ldflags "-X ...app.Version=v1.2.3".
	Version = "dev"
	// BuildTime is set at link time.
	BuildTime = ""
	// BuildID is derived from the version and build time.
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte(BuildTime))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Runtime       *infrastructure.RuntimeMetrics
	FrontendFS    fs.FS

	Datasets     *dataset.Holder
	Sessions     *session.Manager
	WebSocketHub *ws.Hub
	Orchestrator *commentary.Orchestrator

	DashboardService *services.DashboardService
	HealthService    *services.HealthService

	errorHandler *apierrors.ErrorHandler

	mu       sync.Mutex
	bgCancel context.CancelFunc
	bgDone   sync.WaitGroup
}

// NewApplication loads configuration from the environment and builds the
// application. frontendFS holds index.html and may be nil.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewApplicationWithConfig(cfg, frontendFS, logger)
}

// NewApplicationWithConfig builds the application from an explicit config.
func NewApplicationWithConfig(cfg *config.Config, frontendFS fs.FS, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	ctx := context.Background()

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.ServiceVersion = Version
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	runtimeMetrics, err := infrastructure.NewRuntimeMetrics(providers.Meter, cfg.Telemetry.RuntimeInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	catalog, err := insights.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load insight catalog: %w", err)
	}

	gen, err := commentary.NewGenerator(ctx, cfg.Commentary, &http.Client{Timeout: cfg.Commentary.Timeout})
	if err != nil {
		// The dashboard is still useful without commentary.
		logger.WarnContext(ctx, "commentary provider unavailable, recommendations disabled",
			slog.String("provider", cfg.Commentary.Provider),
			slog.String("error", err.Error()))
		gen = commentary.Disabled{}
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		Runtime:       runtimeMetrics,
		FrontendFS:    frontendFS,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
	}

	a.Datasets = dataset.NewHolder(dataset.NewLoader(cfg.Dataset, logger), logger, metrics)
	a.Sessions = session.NewManager(cfg.Session.TTL, cfg.Session.SweepInterval, logger, metrics)
	a.WebSocketHub = ws.NewHub(logger, metrics)
	a.Orchestrator = commentary.NewOrchestrator(gen, commentary.SettingsFrom(cfg.Commentary), logger, metrics)

	a.DashboardService = services.NewDashboardService(
		a.Datasets,
		plots.NewRenderer(catalog, logger, metrics),
		a.Orchestrator,
		a.WebSocketHub,
		logger,
		metrics,
	)
	a.HealthService = services.NewHealthService(
		services.BuildInfo{Version: Version, BuildTime: BuildTime, BuildID: BuildID},
		a.Datasets,
		a.WebSocketHub,
		a.Sessions,
		a.Orchestrator.Enabled(),
		logger,
	).WithRuntime(runtimeMetrics)

	a.setupRouter()
	a.createServer()

	logger.InfoContext(ctx, "Application initialized",
		slog.String("version", Version),
		slog.String("dataset_source", a.Datasets.Status().Source),
		slog.String("commentary_provider", gen.Provider()),
		slog.Bool("commentary_enabled", a.Orchestrator.Enabled()))
	return a, nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(appmiddleware.RequestID)
	r.Use(appmiddleware.RealIP)
	r.Use(appmiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(appmiddleware.StructuredLogger(a.Logger))
	r.Use(appmiddleware.Recoverer(a.errorHandler))
	r.Use(appmiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(appmiddleware.CORS(a.getCORSConfig()))
	}

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Route("/api", a.setupAPIRoutes)

	r.With(session.Middleware(a.Sessions, a.Config.Session.CookieName)).
		Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	ui := handlers.NewUIHandler(a.FrontendFS, a.Logger)
	r.Handle("/", ui)
	r.Handle("/*", ui)

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	if rl := a.Config.Security.RateLimit; rl.Enabled {
		r.Use(appmiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger, a.errorHandler).Handler)
	}

	health := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get("/health", health.HealthCheck)
	r.Get("/health/ready", health.ReadinessCheck)
	r.Get("/health/live", health.LivenessCheck)
	r.Get("/version", health.Version)

	validation := appmiddleware.NewValidationMiddleware(a.Logger, a.errorHandler)

	r.Group(func(r chi.Router) {
		r.Use(validation.ValidateRequest)
		r.Post("/log", handlers.NewClientLogHandler(a.Logger, a.errorHandler).Handle)
	})

	r.Group(func(r chi.Router) {
		r.Use(validation.ValidateRequest)
		r.Use(middleware.Timeout(a.Config.Server.RenderTimeout))
		r.Use(session.Middleware(a.Sessions, a.Config.Session.CookieName))
		r.Mount("/dashboard", handlers.NewDashboardHandler(a.DashboardService, a.Logger, a.errorHandler).Routes())
	})
}

func (a *Application) getCORSConfig() appmiddleware.CORSConfig {
	return appmiddleware.CORSConfig{
		AllowedOrigins:   a.Config.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// StartBackground starts the hub, the session sweeper, the runtime sampler
// and the initial dataset load. Until the load finishes the dashboard answers 503 and the
// readiness check reports not_ready.
func (a *Application) StartBackground(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bgCancel != nil {
		return
	}

	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancel = cancel

	a.WebSocketHub.Start()

	a.bgDone.Add(3)
	go func() {
		defer a.bgDone.Done()
		a.Sessions.Run(bgCtx)
	}()
	go func() {
		defer a.bgDone.Done()
		a.Runtime.Run(bgCtx)
	}()
	go func() {
		defer a.bgDone.Done()
		loadCtx := infrastructure.EnsureTraceID(bgCtx)
		if _, err := a.DashboardService.ReloadDataset(loadCtx); err != nil {
			a.Logger.ErrorContext(loadCtx, "initial dataset load failed, use POST /api/dashboard/dataset/reload to retry",
				slog.String("error", err.Error()))
		}
	}()
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.StartBackground(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	grace := a.Config.Server.ShutdownTimeout
	if grace <= 0 {
		grace = ShutdownGracePeriod
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	var shutdownErr error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown error: %w", err)
	}

	a.mu.Lock()
	bgCancel := a.bgCancel
	a.bgCancel = nil
	a.mu.Unlock()
	if bgCancel != nil {
		bgCancel()
		a.bgDone.Wait()
	}
	a.WebSocketHub.Stop()

	if err := a.Orchestrator.Close(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing commentary provider", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return shutdownErr
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	// The run context may already be cancelled; shutdown gets its own.
	return a.Stop(context.Background())
}
