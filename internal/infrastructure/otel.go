package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/essai1415/discount-analysis-dashboard/internal/config"
)

const (
	ServiceName    = "discount-analysis-dashboard"
	ServiceVersion = "1.0.0"
	MeterName      = "dashboard"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1.0,
	}
}

// OTelConfigFrom maps the telemetry section of the application config.
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	out := DefaultOTelConfig()
	if cfg.Environment != "" {
		out.Environment = cfg.Environment
	}
	if cfg.TraceExporter != "" {
		out.TraceExporter = cfg.TraceExporter
	}
	if cfg.MetricExporter != "" {
		out.MetricExporter = cfg.MetricExporter
	}
	if cfg.SampleRatio > 0 {
		out.SampleRatio = cfg.SampleRatio
	}
	return out
}

// InitializeOTel sets up tracing and metrics. Providers are always returned
// with a usable Tracer and Meter; disabled exporters fall back to no-op
// implementations from the global otel package.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(MeterName),
		Meter:  otel.Meter(MeterName),
	}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		// A private registry keeps repeated initialisation (tests, reloads)
		// from colliding in the default registerer.
		registry := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// BusinessMetrics holds all dashboard-specific instruments.
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Rendering
	PlotRendersTotal   metric.Int64Counter
	PlotRenderDuration metric.Float64Histogram
	PlotUnavailable    metric.Int64Counter
	FactsRendersTotal  metric.Int64Counter

	// Commentary
	CommentaryRequests  metric.Int64Counter
	CommentaryFailures  metric.Int64Counter
	CommentaryCacheHits metric.Int64Counter
	CommentaryLatency   metric.Float64Histogram

	// Dataset
	DatasetLoads     metric.Int64Counter
	DatasetLoadFails metric.Int64Counter
	DatasetRows      metric.Int64Gauge

	// Sessions
	ActiveSessions metric.Int64UpDownCounter

	// WebSocket
	WebSocketClients  metric.Int64UpDownCounter
	WebSocketMessages metric.Int64Counter
	WebSocketDropped  metric.Int64Counter

	SystemErrors metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests"},
		{&m.PlotRendersTotal, "plot_renders_total", "Total number of plot renders"},
		{&m.PlotUnavailable, "plot_unavailable_total", "Plot renders that lacked required columns"},
		{&m.FactsRendersTotal, "facts_renders_total", "Total number of facts and figures renders"},
		{&m.CommentaryRequests, "commentary_requests_total", "Total number of commentary generation calls"},
		{&m.CommentaryFailures, "commentary_failures_total", "Total number of failed commentary calls"},
		{&m.CommentaryCacheHits, "commentary_cache_hits_total", "Recommendations served from the session cache"},
		{&m.DatasetLoads, "dataset_loads_total", "Total number of dataset loads"},
		{&m.DatasetLoadFails, "dataset_load_failures_total", "Total number of failed dataset loads"},
		{&m.WebSocketMessages, "websocket_messages_total", "Total number of websocket messages delivered"},
		{&m.WebSocketDropped, "websocket_dropped_clients_total", "Clients disconnected because their send buffer was full"},
		{&m.SystemErrors, "system_errors_total", "Total number of system errors"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds"},
		{&m.PlotRenderDuration, "plot_render_duration_seconds", "Plot render duration in seconds"},
		{&m.CommentaryLatency, "commentary_latency_seconds", "Commentary provider round-trip in seconds"},
	}
	for _, h := range histograms {
		if *h.dst, err = meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s")); err != nil {
			return nil, err
		}
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"dashboard_active_sessions",
		metric.WithDescription("Number of live dashboard sessions"),
	); err != nil {
		return nil, err
	}

	if m.WebSocketClients, err = meter.Int64UpDownCounter(
		"websocket_clients",
		metric.WithDescription("Number of connected websocket clients"),
	); err != nil {
		return nil, err
	}

	if m.DatasetRows, err = meter.Int64Gauge(
		"dataset_rows",
		metric.WithDescription("Row count of the currently loaded dataset"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordPlotRender records one render of a plot.
func RecordPlotRender(ctx context.Context, metrics *BusinessMetrics, kind, plotID string, duration time.Duration, unavailable bool) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("analysis.kind", kind),
		attribute.String("plot.id", plotID),
	)
	metrics.PlotRendersTotal.Add(ctx, 1, attrs)
	metrics.PlotRenderDuration.Record(ctx, duration.Seconds(), attrs)
	if unavailable {
		metrics.PlotUnavailable.Add(ctx, 1, attrs)
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plot.rendered", trace.WithAttributes(
			attribute.String("plot.id", plotID),
			attribute.Bool("unavailable", unavailable),
			attribute.Float64("duration_seconds", duration.Seconds()),
		))
	}
}

// RecordCommentary records one call into the commentary provider.
// A cache hit is recorded without latency.
func RecordCommentary(ctx context.Context, metrics *BusinessMetrics, kind string, duration time.Duration, cached bool, err error) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("commentary.kind", kind))
	if cached {
		metrics.CommentaryCacheHits.Add(ctx, 1, attrs)
		return
	}
	metrics.CommentaryRequests.Add(ctx, 1, attrs)
	metrics.CommentaryLatency.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		metrics.CommentaryFailures.Add(ctx, 1, attrs)
	}
}

// RecordDatasetLoad records the outcome of a dataset (re)load.
func RecordDatasetLoad(ctx context.Context, metrics *BusinessMetrics, source string, rows int, err error) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("dataset.source", source))
	metrics.DatasetLoads.Add(ctx, 1, attrs)
	if err != nil {
		metrics.DatasetLoadFails.Add(ctx, 1, attrs)
		return
	}
	metrics.DatasetRows.Record(ctx, int64(rows), attrs)
}

// RecordFactsRender records one facts and figures computation.
func RecordFactsRender(ctx context.Context, metrics *BusinessMetrics, metricColumn string, excludeNegatives bool) {
	if metrics == nil {
		return
	}
	metrics.FactsRendersTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("facts.metric", metricColumn),
		attribute.Bool("facts.exclude_negatives", excludeNegatives),
	))
}

// RecordWebSocketClient records a websocket client joining (delta 1) or
// leaving (delta -1).
func RecordWebSocketClient(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.WebSocketClients.Add(ctx, delta)
}

// RecordWebSocketBroadcast records one broadcast fan-out.
func RecordWebSocketBroadcast(ctx context.Context, metrics *BusinessMetrics, eventType string, delivered, dropped int) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event.type", eventType))
	metrics.WebSocketMessages.Add(ctx, int64(delivered), attrs)
	if dropped > 0 {
		metrics.WebSocketDropped.Add(ctx, int64(dropped), attrs)
	}
}
