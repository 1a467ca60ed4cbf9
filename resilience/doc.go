// Package resilience provides the retry and bulkhead primitives the engine
// runs task bodies with.
//
//   - Retry repeats a failing call with exponential backoff and jitter.
//     Mechanical tasks use it with MaxAttempts = max_retries + 1.
//   - Bulkhead bounds how many executor calls run at once. In blocking mode
//     callers queue for a slot until their context is cancelled.
//
// The engine combines them per task:
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "executor", MaxConcurrent: 8, MaxWait: resilience.WaitForSlot})
//	out, err := resilience.ExecuteWithResult(bh, ctx, func() (json.RawMessage, error) {
//		return resilience.Retry(ctx, cfg, call)
//	})
package resilience
