package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/dagflow/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments the engine and the API record into.
type Metrics struct {
	runsActive        metric.Int64UpDownCounter
	runsTotal         metric.Int64Counter
	runDuration       metric.Float64Histogram
	executionsTotal   metric.Int64Counter
	executionDuration metric.Float64Histogram
	decisionsTotal    metric.Int64Counter
	decisionWait      metric.Float64Histogram
	requestTotal      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	errorTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.runsActive, err = meter.Int64UpDownCounter("dag.runs.active",
		metric.WithDescription("Number of runs currently executing"),
	); err != nil {
		return nil, fmt.Errorf("creating dag.runs.active counter: %w", err)
	}
	if m.runsTotal, err = meter.Int64Counter("dag.runs.total",
		metric.WithDescription("Finished runs by graph and final status"),
	); err != nil {
		return nil, fmt.Errorf("creating dag.runs.total counter: %w", err)
	}
	if m.runDuration, err = meter.Float64Histogram("dag.run.duration",
		metric.WithDescription("Wall time of finished runs in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating dag.run.duration histogram: %w", err)
	}
	if m.executionsTotal, err = meter.Int64Counter("dag.executions.total",
		metric.WithDescription("Executor invocations by executor and status"),
	); err != nil {
		return nil, fmt.Errorf("creating dag.executions.total counter: %w", err)
	}
	if m.executionDuration, err = meter.Float64Histogram("dag.execution.duration",
		metric.WithDescription("Duration of executor invocations in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating dag.execution.duration histogram: %w", err)
	}
	if m.decisionsTotal, err = meter.Int64Counter("dag.decisions.total",
		metric.WithDescription("Resolved decisions by kind and verdict"),
	); err != nil {
		return nil, fmt.Errorf("creating dag.decisions.total counter: %w", err)
	}
	if m.decisionWait, err = meter.Float64Histogram("dag.decision.wait",
		metric.WithDescription("Time tasks spent waiting for a decision in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating dag.decision.wait histogram: %w", err)
	}
	if m.requestTotal, err = meter.Int64Counter("http.requests.total",
		metric.WithDescription("Total number of API requests"),
	); err != nil {
		return nil, fmt.Errorf("creating http.requests.total counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("http.request.duration",
		metric.WithDescription("Duration of API requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating http.request.duration histogram: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by type and component"),
	); err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &m, nil
}

// RecordRunStart increments the active run count.
func (m *Metrics) RecordRunStart(ctx context.Context) {
	m.runsActive.Add(ctx, 1)
}

// RecordRunEnd decrements active runs and records the finished run.
func (m *Metrics) RecordRunEnd(ctx context.Context, graph, status string, duration time.Duration) {
	m.runsActive.Add(ctx, -1)
	m.runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph", graph),
		attribute.String("status", status),
	))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("graph", graph),
	))
}

// RecordExecution records one executor invocation.
func (m *Metrics) RecordExecution(ctx context.Context, executor, status string, duration time.Duration) {
	m.executionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("executor", executor),
		attribute.String("status", status),
	))
	m.executionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("executor", executor),
	))
}

// RecordDecision records a resolved decision and how long it waited.
func (m *Metrics) RecordDecision(ctx context.Context, kind, verdict string, wait time.Duration) {
	m.decisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("verdict", verdict),
	))
	m.decisionWait.Record(ctx, wait.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordRequest records a completed API request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
