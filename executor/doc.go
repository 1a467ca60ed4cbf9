// Package executor provides the built-in task executors: shell runs a
// local command in its own process group, noop succeeds without doing
// anything, and fail always fails.
//
// Register binds them to a dag.Registry under their tags:
//
//	reg := dag.NewRegistry()
//	executor.Register(reg, executor.Config{}, log)
//	engine := dag.NewEngine(cfg, store, reg)
package executor
