// Package supervisor owns the runs of one process. It validates and
// persists submissions, hands them to the engine, routes approval and vote
// signals to waiting tasks, resumes unfinished runs after a restart, and
// archives the report of every finished run.
//
//	sup := supervisor.New(supervisor.Config{}, engine, store,
//	    supervisor.WithArchive(reports))
//	h, err := sup.Submit(ctx, graph)
//	report, err := h.Wait(ctx)
package supervisor
