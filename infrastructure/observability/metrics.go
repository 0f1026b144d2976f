package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger.
// Every recording method is safe on a nil or disabled provider.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	operationsCounter        metric.Int64Counter
	casRetriesCounter        metric.Int64Counter
	casConflictsCounter      metric.Int64Counter
	experienceGrantedCounter metric.Int64Counter
	teamsOpenGauge           metric.Int64Gauge
	eventsPublishedCounter   metric.Int64Counter
	storeOperationsCounter   metric.Int64Counter
	storeOperationDuration   metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	// Create resource with service information
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	// Create appropriate exporter based on config
	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	// Create meter provider with periodic reader
	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	// Set as global meter provider
	otel.SetMeterProvider(mp.meterProvider)

	mp.meter = mp.meterProvider.Meter("progression-ledger")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.operationsCounter, err = mp.meter.Int64Counter(
		OperationsTotal,
		metric.WithDescription("Total number of ledger operations by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create operations counter: %w", err)
	}

	mp.casRetriesCounter, err = mp.meter.Int64Counter(
		CASRetriesTotal,
		metric.WithDescription("Total number of operations rerun after a version mismatch"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create CAS retries counter: %w", err)
	}

	mp.casConflictsCounter, err = mp.meter.Int64Counter(
		CASConflictsTotal,
		metric.WithDescription("Total number of operations that spent every retry"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create CAS conflicts counter: %w", err)
	}

	mp.experienceGrantedCounter, err = mp.meter.Int64Counter(
		ExperienceGrantedTotal,
		metric.WithDescription("Total experience granted after multipliers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create experience counter: %w", err)
	}

	mp.teamsOpenGauge, err = mp.meter.Int64Gauge(
		TeamsOpen,
		metric.WithDescription("Number of open teams"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create open teams gauge: %w", err)
	}

	mp.eventsPublishedCounter, err = mp.meter.Int64Counter(
		EventsPublishedTotal,
		metric.WithDescription("Total number of events published to the audit sink"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create events published counter: %w", err)
	}

	mp.storeOperationsCounter, err = mp.meter.Int64Counter(
		StoreOperationsTotal,
		metric.WithDescription("Total number of keyed store operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create store operations counter: %w", err)
	}

	mp.storeOperationDuration, err = mp.meter.Float64Histogram(
		StoreOperationDuration,
		metric.WithDescription("Duration of keyed store operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create store operation duration histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordOperation records the outcome of a ledger operation
func (mp *MetricsProvider) RecordOperation(operation, outcome string) {
	if !mp.isEnabled() {
		return
	}

	mp.operationsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelOperation, operation),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordCASRetry records an operation rerun after a version mismatch
func (mp *MetricsProvider) RecordCASRetry(operation string) {
	if !mp.isEnabled() {
		return
	}

	mp.casRetriesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOperation, operation)),
	)
}

// RecordCASConflict records an operation that spent every retry
func (mp *MetricsProvider) RecordCASConflict(operation string) {
	if !mp.isEnabled() {
		return
	}

	mp.casConflictsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOperation, operation)),
	)
}

// RecordExperienceGranted records experience credited to an account
func (mp *MetricsProvider) RecordExperienceGranted(reason string, amount int64) {
	if !mp.isEnabled() {
		return
	}

	mp.experienceGrantedCounter.Add(context.Background(), amount,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
}

// RecordOpenTeams records the number of live teams read from the roster
func (mp *MetricsProvider) RecordOpenTeams(count int64) {
	if !mp.isEnabled() {
		return
	}

	mp.teamsOpenGauge.Record(context.Background(), count)
}

// RecordEventPublished records an event delivered to the audit sink
func (mp *MetricsProvider) RecordEventPublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.eventsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordStoreOperation records a keyed store operation with duration
func (mp *MetricsProvider) RecordStoreOperation(backend, method string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelBackend, backend),
		attribute.String(LabelMethod, method),
	)

	mp.storeOperationsCounter.Add(context.Background(), 1, attrs)
	mp.storeOperationDuration.Record(context.Background(), duration.Seconds(), attrs)
}

// MeasureStoreOperation returns a function to measure store operation duration
// Usage:
//
//	defer observability.GetMetrics().MeasureStoreOperation(observability.BackendPostgres, "commit")()
func (mp *MetricsProvider) MeasureStoreOperation(backend, method string) func() {
	start := time.Now()
	return func() {
		mp.RecordStoreOperation(backend, method, time.Since(start))
	}
}

// isEnabled checks if metrics are enabled and initialized with instruments
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider. It is nil until InitializeGlobalMetrics runs,
// which the recording methods tolerate.
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
