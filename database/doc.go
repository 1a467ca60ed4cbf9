// Package database provides the GORM connection used by the SQL run store:
// connection retries, pooling, transactions, health checks and a logger
// adapter that routes GORM output through dagflow's logger.
//
// sqlite is the built-in dialect. Other dialects plug in through
// Component.WithDriver:
//
//	comp := database.NewComponent(cfg, log).
//	    WithAutoMigrate(runstore.Models()...)
//	registry.Register(comp)
package database
