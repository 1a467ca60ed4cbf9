package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunTrace holds the root span bookkeeping for one run.
type RunTrace struct {
	GraphName string
	RunID     string
	StartTime time.Time
	Metrics   *Metrics
}

// NewRunTrace creates a run trace.
// If metrics is nil, metric recording is silently skipped.
func NewRunTrace(graphName, runID string, metrics *Metrics) *RunTrace {
	return &RunTrace{
		GraphName: graphName,
		RunID:     runID,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type runTraceKey struct{}

// WithRunTrace stores a RunTrace in the context.
func WithRunTrace(ctx context.Context, rt *RunTrace) context.Context {
	return context.WithValue(ctx, runTraceKey{}, rt)
}

// RunTraceFromContext retrieves the RunTrace from context, or nil.
func RunTraceFromContext(ctx context.Context) *RunTrace {
	if rt, ok := ctx.Value(runTraceKey{}).(*RunTrace); ok {
		return rt
	}
	return nil
}

// Start opens the run span and counts the run as active.
func (rt *RunTrace) Start(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanRun)
	span.SetAttributes(
		attribute.String(AttrGraphName, rt.GraphName),
		attribute.String(AttrRunID, rt.RunID),
	)
	if rt.Metrics != nil {
		rt.Metrics.RecordRunStart(ctx)
	}
	return WithRunTrace(ctx, rt), span
}

// End closes the run span with the run's final status.
func (rt *RunTrace) End(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(rt.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if rt.Metrics != nil {
		rt.Metrics.RecordRunEnd(ctx, rt.GraphName, status, duration)
	}
}

// Duration returns the elapsed time since the run started.
func (rt *RunTrace) Duration() time.Duration {
	return time.Since(rt.StartTime)
}
