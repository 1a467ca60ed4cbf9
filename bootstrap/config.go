package bootstrap

import (
	"github.com/kbukum/dagflow/config"
)

// Config is the constraint on application configuration types. A struct
// embedding config.ServiceConfig with mapstructure:",squash" satisfies it
// once it implements ApplyDefaults and Validate for its own sections.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
