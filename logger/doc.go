// Package logger provides structured logging on top of zerolog.
//
// Loggers are scoped by component and enriched with run and task
// identifiers so every engine transition can be traced back to a run:
//
//	log := logger.NewDefault("dagflow").WithComponent("engine")
//	log.WithRun(runID).Info("run started", logger.Fields(logger.FieldTaskCount, 4))
package logger
