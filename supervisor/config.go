package supervisor

import (
	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/validation"
)

// Config configures a Supervisor.
type Config struct {
	// RecoveryMode decides the fate of tasks found Running on Recover.
	RecoveryMode dag.RecoveryMode `yaml:"mode" mapstructure:"mode"`
	// RecoverConcurrency bounds how many runs are prepared at once on Recover.
	RecoverConcurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	// ArchivePrefix is the storage prefix of archived reports.
	ArchivePrefix string `yaml:"archive_prefix" mapstructure:"archive_prefix"`
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	if c.RecoveryMode == "" {
		c.RecoveryMode = dag.RecoveryReexecute
	}
	if c.RecoverConcurrency <= 0 {
		c.RecoverConcurrency = 4
	}
	if c.ArchivePrefix == "" {
		c.ArchivePrefix = "reports"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	v := validation.New()
	if err := c.RecoveryMode.Validate(); err != nil {
		v.AddError("recovery.mode", err.Error())
	}
	return v.Min("recovery.concurrency", c.RecoverConcurrency, 1).Err()
}
