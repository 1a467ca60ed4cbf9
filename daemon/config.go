package daemon

import (
	"fmt"
	"time"

	"github.com/kbukum/dagflow/auth/jwt"
	"github.com/kbukum/dagflow/config"
	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/database"
	"github.com/kbukum/dagflow/executor"
	"github.com/kbukum/dagflow/kafka"
	"github.com/kbukum/dagflow/notify"
	"github.com/kbukum/dagflow/redis"
	"github.com/kbukum/dagflow/server"
	"github.com/kbukum/dagflow/storage"
	"github.com/kbukum/dagflow/supervisor"
	"github.com/kbukum/dagflow/validation"
	"github.com/kbukum/dagflow/version"
)

// ServiceName is the config and environment prefix of the daemon.
const ServiceName = "dagflow"

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreDatabase = "database"
	StoreRedis    = "redis"
)

// Config is the root configuration of dagflowd.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Engine        dag.EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Recovery      supervisor.Config   `yaml:"recovery" mapstructure:"recovery"`
	Executors     executor.Config     `yaml:"executors" mapstructure:"executors"`
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Database      database.Config     `yaml:"database" mapstructure:"database"`
	Redis         redis.Config        `yaml:"redis" mapstructure:"redis"`
	Kafka         kafka.Config        `yaml:"kafka" mapstructure:"kafka"`
	Signals       SignalsConfig       `yaml:"signals" mapstructure:"signals"`
	Events        EventsConfig        `yaml:"events" mapstructure:"events"`
	Archive       storage.Config      `yaml:"archive" mapstructure:"archive"`
	HTTP          server.Config       `yaml:"http" mapstructure:"http"`
	Auth          jwt.Config          `yaml:"auth" mapstructure:"auth"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	SchedulesDir  string              `yaml:"schedules_dir" mapstructure:"schedules_dir"`
}

// StoreConfig selects the run store.
type StoreConfig struct {
	// Driver is memory, database or redis (default: memory).
	Driver string `yaml:"driver" mapstructure:"driver"`
}

// SignalsConfig enables the inbound signal transports.
type SignalsConfig struct {
	// KafkaTopic is consumed for signal messages when set.
	KafkaTopic string `yaml:"kafka_topic" mapstructure:"kafka_topic"`
	// RedisChannel is subscribed to for signal messages when set.
	RedisChannel string `yaml:"redis_channel" mapstructure:"redis_channel"`
}

// EventsConfig configures the outbound run events.
type EventsConfig struct {
	// KafkaTopic receives every run event when set.
	KafkaTopic string `yaml:"kafka_topic" mapstructure:"kafka_topic"`
	// QueueSize bounds the events waiting for Kafka.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
	// StreamKeepAlive is the comment interval of event streams.
	StreamKeepAlive time.Duration `yaml:"stream_keep_alive" mapstructure:"stream_keep_alive"`
}

// ObservabilityConfig configures OpenTelemetry export.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig configures the OTLP metric exporter.
type MetricsConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// LoadConfig reads the configuration from path, or from the default search
// paths when path is empty. DAGFLOW_* environment variables override it.
func LoadConfig(path string) (*Config, error) {
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	cfg := &Config{}
	if err := config.LoadConfig(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every section. Choosing a database or redis store,
// or a transport on redis or kafka, enables the section it depends on.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	if c.Version == "" {
		c.Version = version.Version
	}
	c.ServiceConfig.ApplyDefaults()
	c.Engine.ApplyDefaults()
	c.Recovery.ApplyDefaults()
	c.Executors.ApplyDefaults()

	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
	}
	switch c.Store.Driver {
	case StoreDatabase:
		c.Database.Enabled = true
		c.Database.AutoMigrate = true
	case StoreRedis:
		c.Redis.Enabled = true
	}
	if c.Signals.RedisChannel != "" {
		c.Redis.Enabled = true
	}
	if c.Signals.KafkaTopic != "" || c.Events.KafkaTopic != "" {
		c.Kafka.Enabled = true
	}
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	if c.Kafka.Enabled && c.Kafka.GroupID == "" {
		c.Kafka.GroupID = c.Name
	}

	if c.Events.QueueSize <= 0 {
		c.Events.QueueSize = notify.DefaultQueueSize
	}
	if c.Events.StreamKeepAlive <= 0 {
		c.Events.StreamKeepAlive = 30 * time.Second
	}

	c.Archive.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// ApplyDefaults fills the exporter settings.
func (c *ObservabilityConfig) ApplyDefaults() {
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "localhost:4318"
	}
	if c.Metrics.Interval <= 0 {
		c.Metrics.Interval = 15 * time.Second
	}
}

// Validate checks the exporter settings.
func (c *ObservabilityConfig) Validate() error {
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("observability.tracing.sample_rate must be within [0, 1] (got: %v)", c.Tracing.SampleRate)
	}
	return nil
}

// Validate checks every section and the dependencies between them.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.New().
		Required("store.driver", c.Store.Driver).
		OneOf("store.driver", c.Store.Driver, []string{StoreMemory, StoreDatabase, StoreRedis}).
		Err(); err != nil {
		return err
	}

	// Section errors name their own keys.
	for _, validate := range []func() error{
		c.Engine.Validate,
		c.Recovery.Validate,
		c.Executors.Validate,
		c.Database.Validate,
		c.Redis.Validate,
		c.Kafka.Validate,
		c.Archive.Validate,
		c.HTTP.Validate,
		c.Auth.Validate,
		c.Observability.Validate,
	} {
		if err := validate(); err != nil {
			return err
		}
	}
	return validation.New().
		Custom(c.Events.KafkaTopic == "" || c.Events.KafkaTopic != c.Signals.KafkaTopic,
			"events.kafka_topic", "must differ from signals.kafka_topic").
		Err()
}
