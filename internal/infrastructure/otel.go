package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName    = "companywise"
	ServiceVersion = "1.0.0"
	MeterName      = "companywise"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
	// TraceWriter receives stdout-exported spans. Defaults to os.Stdout.
	TraceWriter io.Writer
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *promclient.Registry
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
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics. Disabled signals fall back
// to no-op implementations so callers never need nil checks.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := createResource(cfg)

	providers := &OTelProviders{
		Logger: logger,
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  otel.GetMeterProvider().Meter(MeterName),
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)
}

// initializeTracing sets up stdout span export
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	writer := cfg.TraceWriter
	if writer == nil {
		writer = os.Stdout
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(writer))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics wires the OTel meter to a private Prometheus registry
// that also carries the Go runtime and process collectors.
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.Registry = registry
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(mp)

	providers.Logger.InfoContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Problem data metrics
	DataLoadsTotal    metric.Int64Counter
	DataLoadDuration  metric.Float64Histogram
	DataRowsParsed    metric.Int64Counter
	DataRowsDropped   metric.Int64Counter
	DataCacheRequests metric.Int64Counter

	// Progress metrics
	ProgressToggles         metric.Int64Counter
	ProgressStreakChanges   metric.Int64Counter
	ProgressPersistFailures metric.Int64Counter
	ProgressMigrations      metric.Int64Counter

	// Realtime metrics
	WebSocketConnections metric.Int64UpDownCounter
	WebSocketMessages    metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}
	var errs []error
	counter := func(name, desc string, opts ...metric.Int64CounterOption) metric.Int64Counter {
		c, err := meter.Int64Counter(name, append(opts, metric.WithDescription(desc))...)
		errs = append(errs, err)
		return c
	}
	updown := func(name, desc string) metric.Int64UpDownCounter {
		c, err := meter.Int64UpDownCounter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		errs = append(errs, err)
		return h
	}

	m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests")
	m.HTTPRequestDuration = histogram("http_request_duration_seconds", "HTTP request duration in seconds")
	m.HTTPActiveRequests = updown("http_active_requests", "Number of active HTTP requests")

	m.DataLoadsTotal = counter("data_loads_total", "Problem table loads by outcome")
	m.DataLoadDuration = histogram("data_load_duration_seconds", "Problem table load duration in seconds")
	m.DataRowsParsed = counter("data_rows_parsed_total", "Problem rows parsed")
	m.DataRowsDropped = counter("data_rows_dropped_total", "Problem rows dropped for having too few fields")
	m.DataCacheRequests = counter("data_cache_requests_total", "Data cache lookups by result")

	m.ProgressToggles = counter("progress_toggles_total", "Completion toggles by resulting state")
	m.ProgressStreakChanges = counter("progress_streak_changes_total", "Streak transitions by kind")
	m.ProgressPersistFailures = counter("progress_persist_failures_total", "Progress writes that failed")
	m.ProgressMigrations = counter("progress_migrations_total", "Anonymous progress merged into an identity")

	m.WebSocketConnections = updown("websocket_connections", "Open WebSocket connections")
	m.WebSocketMessages = counter("websocket_messages_total", "WebSocket messages sent")

	if err := errors.Join(errs...); err != nil {
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
		return fmt.Errorf("opentelemetry shutdown errors: %w", errors.Join(errs...))
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
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

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "failure")
	}
	return attribute.String("outcome", "success")
}

// RecordDataLoad records one problem table load.
func RecordDataLoad(ctx context.Context, m *BusinessMetrics, company, window string, duration time.Duration, rows, dropped int, err error) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("company", company),
		attribute.String("window", window),
		outcome(err),
	)
	m.DataLoadsTotal.Add(ctx, 1, attrs)
	m.DataLoadDuration.Record(ctx, duration.Seconds(), attrs)

	if err == nil {
		m.DataRowsParsed.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("window", window)))
		if dropped > 0 {
			m.DataRowsDropped.Add(ctx, int64(dropped), metric.WithAttributes(attribute.String("window", window)))
		}
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("data.loaded", trace.WithAttributes(
			attribute.String("company", company),
			attribute.String("window", window),
			attribute.Int("rows", rows),
			attribute.Int("dropped", dropped),
		))
	}
}

// RecordCacheLookup records a data cache hit or miss.
func RecordCacheLookup(ctx context.Context, m *BusinessMetrics, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DataCacheRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordToggle records a completion toggle.
func RecordToggle(ctx context.Context, m *BusinessMetrics, completed bool, anonymous bool) {
	if m == nil {
		return
	}
	state := "uncompleted"
	if completed {
		state = "completed"
	}
	m.ProgressToggles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", state),
		attribute.Bool("anonymous", anonymous),
	))
}

// RecordStreakChange records a streak transition such as "increment" or "reset".
func RecordStreakChange(ctx context.Context, m *BusinessMetrics, kind string) {
	if m == nil {
		return
	}
	m.ProgressStreakChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordPersistFailure records a failed progress write.
func RecordPersistFailure(ctx context.Context, m *BusinessMetrics, err error) {
	if m == nil {
		return
	}
	m.ProgressPersistFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.type", fmt.Sprintf("%T", err)),
	))
	RecordError(ctx, err)
}

// RecordMigration records a merge of anonymous progress into an identity.
func RecordMigration(ctx context.Context, m *BusinessMetrics, merged bool) {
	if m == nil {
		return
	}
	m.ProgressMigrations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("merged", merged)))
}

// RecordWebSocketConnection tracks connection count changes.
func RecordWebSocketConnection(ctx context.Context, m *BusinessMetrics, delta int64) {
	if m == nil {
		return
	}
	m.WebSocketConnections.Add(ctx, delta)
}

// RecordWebSocketMessage records an outbound message of the given type.
func RecordWebSocketMessage(ctx context.Context, m *BusinessMetrics, msgType string) {
	if m == nil {
		return
	}
	m.WebSocketMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("type", msgType)))
}
