package dag

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/observability"
)

// WithTracing wraps an Executor with OpenTelemetry span creation.
// Each call creates a span named "{prefix}.{tag}".
func WithTracing(exec Executor, prefix string) Executor {
	return &tracingExecutor{inner: exec, prefix: prefix}
}

type tracingExecutor struct {
	inner  Executor
	prefix string
}

func (e *tracingExecutor) Execute(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error) {
	ctx, span := observability.StartSpan(ctx, e.prefix+"."+tag)
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrExecutor, tag)
	if runID := logger.RunIDFromContext(ctx); runID != "" {
		observability.SetSpanAttribute(ctx, observability.AttrRunID, runID)
	}

	result, err := e.inner.Execute(ctx, tag, params)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return result, err
}

// WithExecutorMetrics wraps an Executor with metric recording.
// Records call count and duration per executor tag and outcome.
func WithExecutorMetrics(exec Executor, metrics *observability.Metrics) Executor {
	return &metricsExecutor{inner: exec, metrics: metrics}
}

type metricsExecutor struct {
	inner   Executor
	metrics *observability.Metrics
}

func (e *metricsExecutor) Execute(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error) {
	start := time.Now()
	result, err := e.inner.Execute(ctx, tag, params)

	status := "ok"
	if err != nil {
		status = "error"
		e.metrics.RecordError(ctx, string(classify(err)), tag)
	}
	e.metrics.RecordExecution(ctx, tag, status, time.Since(start))
	return result, err
}

// WithLogging wraps an Executor with call logging.
// Logs: executor tag, duration, and success/error status.
func WithLogging(exec Executor, log *logger.Logger) Executor {
	return &loggingExecutor{inner: exec, log: log}
}

type loggingExecutor struct {
	inner Executor
	log   *logger.Logger
}

func (e *loggingExecutor) Execute(ctx context.Context, tag string, params map[string]any) (json.RawMessage, error) {
	start := time.Now()
	result, err := e.inner.Execute(ctx, tag, params)

	fields := map[string]interface{}{
		logger.FieldExecutor: tag,
		logger.FieldDuration: time.Since(start).Milliseconds(),
	}
	log := e.log.WithContext(ctx)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		log.Debug("executor call failed", fields)
	} else {
		log.Debug("executor call completed", fields)
	}
	return result, err
}
