// Package observability wires OpenTelemetry tracing and metrics for runs,
// tasks, decisions and the HTTP API.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("dagflow"))
//	defer tp.Shutdown(ctx)
//
//	rt := observability.NewRunTrace(graph.Name, run.ID, metrics)
//	ctx, span := rt.Start(ctx)
//	defer rt.End(ctx, span, string(run.Status), nil)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("dagflow"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("dagflow"))
//	metrics.RecordExecution(ctx, "shell", "ok", duration)
package observability
