// Package bootstrap runs a service through its lifecycle: components are
// started in registration order, configure callbacks wire the business
// layer, hooks run around readiness and shutdown, and components are
// stopped in reverse order on SIGINT, SIGTERM or context cancellation.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(db)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return a.RegisterComponent(server)
//	})
//	err = app.Run(ctx)
//
// RunTask drives the same lifecycle around a finite task, which is how the
// CLI executes a single graph.
package bootstrap
