package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"prepforge/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig holds the runtime settings the manager consumes.
// GetObservabilityConfig flattens the file configuration into this shape.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// Metrics holds every custom instrument the service records. All fields stay
// nil when observability is disabled; recording methods tolerate that.
type Metrics struct {
	// AI call instruments
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram
	FallbacksServed  metric.Int64Counter

	// Domain event counters
	JobsAnalyzed           metric.Int64Counter
	StudyPlansGenerated    metric.Int64Counter
	QuizzesGenerated       metric.Int64Counter
	ChallengeSetsGenerated metric.Int64Counter
	ExecutionsSimulated    metric.Int64Counter
	HintsGenerated         metric.Int64Counter

	// TLS certificate lifecycle
	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	// Request throttling
	RateLimitHits metric.Int64Counter
}

// ObservabilityManager owns the OpenTelemetry providers and the custom
// instruments built on them.
type ObservabilityManager struct {
	cfg            ObservabilityConfig
	appCfg         *config.Config // nested settings: OTLP endpoint, metric gates
	res            *resource.Resource
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdowns      []func(context.Context) error
}

// NewObservabilityManager sets up tracing and metrics. When observability is
// disabled the returned manager is inert: Tracer yields a no-op tracer,
// HTTPMiddleware passes handlers through, and GetMetrics returns empty
// instruments.
func NewObservabilityManager(cfg ObservabilityConfig, appCfg *config.Config) (*ObservabilityManager, error) {
	o := &ObservabilityManager{
		cfg:    cfg,
		appCfg: appCfg,
	}
	if !cfg.Enabled {
		return o, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("service.instance.id", o.serviceInstanceID()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	o.res = res

	if err := o.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := o.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return o, nil
}

func (o *ObservabilityManager) initTracing() error {
	exporter, err := o.spanExporter()
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(o.res),
		trace.WithSampler(trace.TraceIDRatioBased(o.cfg.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	o.tracerProvider = tp
	o.shutdowns = append(o.shutdowns, tp.Shutdown)
	return nil
}

// spanExporter picks the trace destination: stdout for development, OTLP when
// configured, otherwise a no-op exporter that keeps span processing alive.
func (o *ObservabilityManager) spanExporter() (trace.SpanExporter, error) {
	switch {
	case o.cfg.ConsoleOutput:
		var opts []stdouttrace.Option
		if o.cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		return stdouttrace.New(opts...)
	case o.otlpEnabled():
		return o.newOTLPTraceExporter()
	default:
		return noopSpanExporter{}, nil
	}
}

func (o *ObservabilityManager) initMetrics() error {
	readers, err := o.metricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(o.res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	o.meterProvider = mp
	o.shutdowns = append(o.shutdowns, mp.Shutdown)

	metrics, err := newMetrics(mp.Meter(o.cfg.ServiceName))
	if err != nil {
		return err
	}
	o.metrics = metrics
	return nil
}

// metricReaders assembles every configured exporter. Console and OTLP push on
// the collection interval; Prometheus is pull-based and serves its own scrape
// port. With nothing configured a manual reader keeps the provider valid.
func (o *ObservabilityManager) metricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if o.cfg.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(o.collectionInterval())))
	}

	if o.otlpEnabled() {
		reader, err := o.newOTLPMetricReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if o.cfg.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(o.cfg.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		if reader != nil {
			readers = append(readers, reader)
			if err := StartPrometheusServer(mux, o.cfg.Prometheus.Port); err != nil {
				return nil, fmt.Errorf("failed to start Prometheus server: %w", err)
			}
		}
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

// newMetrics registers every instrument on the meter. The counters share one
// registration loop; the histograms and the expiry gauge carry units so they
// are created individually.
func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.AIRequestCount, "prepforge_ai_requests_total", "Total number of AI requests"},
		{&m.AIErrorCount, "prepforge_ai_errors_total", "Total number of AI request errors"},
		{&m.FallbacksServed, "prepforge_ai_fallbacks_total", "Total number of operations served fallback content"},
		{&m.JobsAnalyzed, "prepforge_jobs_analyzed_total", "Total number of job postings analyzed"},
		{&m.StudyPlansGenerated, "prepforge_study_plans_generated_total", "Total number of study plans generated"},
		{&m.QuizzesGenerated, "prepforge_quizzes_generated_total", "Total number of quizzes generated"},
		{&m.ChallengeSetsGenerated, "prepforge_challenge_sets_generated_total", "Total number of challenge sets generated"},
		{&m.ExecutionsSimulated, "prepforge_executions_simulated_total", "Total number of code runs simulated"},
		{&m.HintsGenerated, "prepforge_hints_generated_total", "Total number of hints generated"},
		{&m.CertReloadCount, "prepforge_cert_reloads_total", "Total number of certificate reloads"},
		{&m.RateLimitHits, "prepforge_rate_limit_hits_total", "Total number of rate limit hits"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	m.AIProcessingTime, err = meter.Float64Histogram(
		"prepforge_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Histogram(
		"prepforge_ai_token_usage_total",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	// Recorded by the certificate manager on every reload and once a minute.
	m.CertExpiryTime, err = meter.Float64Gauge(
		"prepforge_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate expiry metric: %w", err)
	}

	return m, nil
}

// GetMetrics returns the instrument set. Before initialization it returns an
// empty set whose recording methods are no-ops.
func (o *ObservabilityManager) GetMetrics() *Metrics {
	if o.metrics == nil {
		return &Metrics{}
	}
	return o.metrics
}

// HTTPMiddleware wraps a handler with otelhttp instrumentation, or returns it
// unchanged when observability is disabled.
func (o *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !o.cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return otelhttp.NewMiddleware(
		o.cfg.ServiceName,
		otelhttp.WithTracerProvider(o.tracerProvider),
		otelhttp.WithMeterProvider(o.meterProvider),
	)
}

// Tracer returns a tracer for the service.
func (o *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !o.cfg.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes and stops the tracer and meter providers.
func (o *ObservabilityManager) Shutdown(ctx context.Context) error {
	for _, stop := range o.shutdowns {
		if err := stop(ctx); err != nil {
			return err
		}
	}
	return nil
}

// AIOperationResult holds the outcome of an AI operation including token usage.
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics,
// and token usage. The result's error marks the operation degraded for metrics
// and traces; callers that serve fallback content ignore the returned error.
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, mgr *ObservabilityManager) error {
	if m.AIProcessingTime == nil {
		// Instruments absent, just run the function.
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := otel.Tracer("prepforge.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	elapsed := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if mgr.aiOps().Enabled {
		m.recordAIOperation(ctx, operation, elapsed, result, err, mgr, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

func (m *Metrics) recordAIOperation(ctx context.Context, operation string, elapsed float64, result *AIOperationResult, err error, mgr *ObservabilityManager, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}

	if mgr.aiOps().TrackDuration {
		m.AIProcessingTime.Record(ctx, elapsed, metric.WithAttributes(attrs...))
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	if result != nil && result.TokenUsage != nil && m.AITokenUsage != nil {
		usage := result.TokenUsage
		if mgr.aiOps().TrackTokenUsage {
			for _, tt := range []struct {
				kind  string
				value int64
			}{
				{"input", usage.InputTokens},
				{"output", usage.OutputTokens},
				{"total", usage.TotalTokens},
			} {
				m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
					attribute.String("operation", operation),
					attribute.String("token_type", tt.kind),
				))
			}
		}
		// Tokens always land on the span even when the histogram is gated off.
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	span.SetAttributes(attrs...)
}

// RecordFallback counts an operation that served fallback content.
func (m *Metrics) RecordFallback(ctx context.Context, operation string, mgr *ObservabilityManager) {
	if m.FallbacksServed == nil || !mgr.aiOps().Enabled {
		return
	}
	m.FallbacksServed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordBusinessMetric counts a domain event. Unknown metric types are dropped
// so handler code never has to check.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, mgr *ObservabilityManager, attributes ...attribute.KeyValue) {
	if mgr != nil && mgr.appCfg != nil {
		custom := mgr.appCfg.Observability.CustomMetrics
		if !custom.BusinessMetrics.Enabled {
			return
		}
		if metricType == "rate_limit_hit" && !custom.Infrastructure.TrackRateLimits {
			return
		}
	}

	counter := m.businessCounter(metricType)
	if counter == nil {
		return
	}

	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) businessCounter(metricType string) metric.Int64Counter {
	switch metricType {
	case "job_analyzed":
		return m.JobsAnalyzed
	case "study_plan_generated":
		return m.StudyPlansGenerated
	case "quiz_generated":
		return m.QuizzesGenerated
	case "challenge_set_generated":
		return m.ChallengeSetsGenerated
	case "execution_simulated":
		return m.ExecutionsSimulated
	case "hint_generated":
		return m.HintsGenerated
	case "rate_limit_hit":
		return m.RateLimitHits
	default:
		return nil
	}
}

// aiOps returns the AI-operation metric gates, defaulting to fully enabled
// when no file configuration was provided.
func (o *ObservabilityManager) aiOps() config.AIOperationsMetricsConfig {
	if o == nil || o.appCfg == nil {
		return config.AIOperationsMetricsConfig{
			Enabled:         true,
			TrackDuration:   true,
			TrackTokenUsage: true,
		}
	}
	return o.appCfg.Observability.CustomMetrics.AIOperations
}

func (o *ObservabilityManager) otlpEnabled() bool {
	return o.appCfg != nil && o.appCfg.Observability.OTLP.Enabled
}

func (o *ObservabilityManager) serviceInstanceID() string {
	if o.appCfg != nil && o.appCfg.Observability.ServiceInstance != "" {
		return o.appCfg.Observability.ServiceInstance
	}
	return "prepforge-1"
}

func (o *ObservabilityManager) collectionInterval() time.Duration {
	if o.appCfg != nil {
		return o.appCfg.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

// noopSpanExporter keeps the tracer provider functional when neither console
// nor OTLP output is configured.
type noopSpanExporter struct{}

func (noopSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }
func (noopSpanExporter) Shutdown(context.Context) error                          { return nil }

func (o *ObservabilityManager) newOTLPTraceExporter() (trace.SpanExporter, error) {
	otlp := o.appCfg.Observability.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlp.Endpoint),
	}
	if otlp.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlp.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

func (o *ObservabilityManager) newOTLPMetricReader() (sdkmetric.Reader, error) {
	otlp := o.appCfg.Observability.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlp.Endpoint),
	}
	if otlp.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlp.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(o.collectionInterval())), nil
}
