package executor

import (
	"fmt"
	"time"
)

// DefaultGracePeriod is the SIGTERM to SIGKILL delay when none is configured.
const DefaultGracePeriod = 5 * time.Second

// Config configures the built-in executors.
type Config struct {
	Shell ShellConfig `yaml:"shell" mapstructure:"shell"`
}

// ShellConfig configures the shell executor.
type ShellConfig struct {
	// Enabled registers the shell executor. Disabled, tasks tagged "shell"
	// fail with unknown_executor.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// GracePeriod is the wait between SIGTERM and SIGKILL on cancellation.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	// Timeout bounds every command unless the task sets its own. Zero means none.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Dir is the default working directory.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// AllowedCommands restricts the binaries tasks may run. Empty allows any.
	AllowedCommands []string `yaml:"allowed_commands" mapstructure:"allowed_commands"`
	// MaxOutputBytes truncates captured stdout and stderr in the task result.
	MaxOutputBytes int `yaml:"max_output_bytes" mapstructure:"max_output_bytes"`
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	if c.Shell.GracePeriod <= 0 {
		c.Shell.GracePeriod = DefaultGracePeriod
	}
	if c.Shell.MaxOutputBytes <= 0 {
		c.Shell.MaxOutputBytes = 64 << 10
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Shell.Timeout < 0 {
		return fmt.Errorf("executors.shell.timeout must not be negative (got: %s)", c.Shell.Timeout)
	}
	for i, cmd := range c.Shell.AllowedCommands {
		if cmd == "" {
			return fmt.Errorf("executors.shell.allowed_commands[%d] is empty", i)
		}
	}
	return nil
}
