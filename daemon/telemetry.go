package daemon

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/dagflow/component"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/observability"
)

// telemetry installs the OTLP trace and metric providers between Start
// and Stop.
type telemetry struct {
	cfg     ObservabilityConfig
	service string
	version string
	env     string
	log     *logger.Logger

	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	metrics *observability.Metrics
}

var (
	_ component.Component   = (*telemetry)(nil)
	_ component.Describable = (*telemetry)(nil)
)

func (t *telemetry) Name() string { return "telemetry" }

func (t *telemetry) Start(ctx context.Context) error {
	if t.cfg.Tracing.Enabled {
		tc := observability.DefaultTracerConfig(t.service)
		tc.ServiceVersion, tc.Environment = t.version, t.env
		tc.Endpoint, tc.Insecure, tc.SampleRate = t.cfg.Tracing.Endpoint, t.cfg.Tracing.Insecure, t.cfg.Tracing.SampleRate
		tp, err := observability.InitTracer(ctx, &tc)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		t.tracer = tp
	}
	if t.cfg.Metrics.Enabled {
		mc := observability.DefaultMeterConfig(t.service)
		mc.ServiceVersion, mc.Environment = t.version, t.env
		mc.Endpoint, mc.Insecure, mc.Interval = t.cfg.Metrics.Endpoint, t.cfg.Metrics.Insecure, t.cfg.Metrics.Interval
		mp, err := observability.InitMeter(ctx, &mc)
		if err != nil {
			return fmt.Errorf("init meter: %w", err)
		}
		t.meter = mp
		m, err := observability.NewMetrics(observability.Meter(t.service))
		if err != nil {
			return err
		}
		t.metrics = m
	}
	if t.tracer != nil || t.meter != nil {
		t.log.Info("telemetry exporting", logger.Fields(
			"tracing", t.tracer != nil,
			"metrics", t.meter != nil,
		))
	}
	return nil
}

func (t *telemetry) Stop(ctx context.Context) error {
	var errs []error
	if t.tracer != nil {
		errs = append(errs, t.tracer.Shutdown(ctx))
	}
	if t.meter != nil {
		errs = append(errs, t.meter.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (t *telemetry) Health(context.Context) component.Health {
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

func (t *telemetry) Describe() component.Description {
	return component.Description{
		Name: "OpenTelemetry",
		Type: "observability",
		Details: fmt.Sprintf("tracing=%t metrics=%t endpoint=%s",
			t.cfg.Tracing.Enabled, t.cfg.Metrics.Enabled, t.cfg.Tracing.Endpoint),
	}
}
