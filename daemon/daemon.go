package daemon

import (
	"context"
	"fmt"

	"github.com/kbukum/dagflow/api"
	"github.com/kbukum/dagflow/auth/jwt"
	"github.com/kbukum/dagflow/bootstrap"
	"github.com/kbukum/dagflow/component"
	"github.com/kbukum/dagflow/dag"
	"github.com/kbukum/dagflow/database"
	"github.com/kbukum/dagflow/executor"
	"github.com/kbukum/dagflow/kafka"
	"github.com/kbukum/dagflow/kafka/producer"
	"github.com/kbukum/dagflow/logger"
	"github.com/kbukum/dagflow/notify"
	"github.com/kbukum/dagflow/redis"
	"github.com/kbukum/dagflow/runstore"
	"github.com/kbukum/dagflow/scheduler"
	"github.com/kbukum/dagflow/server"
	"github.com/kbukum/dagflow/server/middleware"
	"github.com/kbukum/dagflow/sse"
	"github.com/kbukum/dagflow/storage"
	"github.com/kbukum/dagflow/supervisor"
	"github.com/kbukum/dagflow/transport"

	// Archive providers.
	_ "github.com/kbukum/dagflow/storage/local"
	_ "github.com/kbukum/dagflow/storage/memory"
	_ "github.com/kbukum/dagflow/storage/s3"
)

// App is the bootstrap application of the daemon.
type App = bootstrap.App[*Config]

// Daemon holds the wired service. Fields are set once the application's
// configure phase has run.
type Daemon struct {
	Store      dag.RunStore
	Executors  *dag.Registry
	Engine     *dag.Engine
	Supervisor *supervisor.Supervisor
	Server     *server.Server
	Scheduler  *scheduler.Scheduler

	cfg       *Config
	log       *logger.Logger
	extra     map[string]dag.Executor
	telemetry *telemetry
	database  *database.Component
	redis     *redis.Component
	archive   *storage.Component
	events    *sse.Component
}

// Option customizes the daemon.
type Option func(*Daemon)

// WithExecutor registers an executor next to the built-in ones.
func WithExecutor(tag string, exec dag.Executor) Option {
	return func(d *Daemon) { d.extra[tag] = exec }
}

// Register adds the infrastructure components to app and a configure
// callback that builds the engine, the supervisor and their transports
// once the infrastructure is running.
func Register(app *App, opts ...Option) (*Daemon, error) {
	cfg := app.Cfg
	d := &Daemon{cfg: cfg, log: app.Logger, extra: make(map[string]dag.Executor)}
	for _, opt := range opts {
		opt(d)
	}

	d.telemetry = &telemetry{
		cfg: cfg.Observability, service: cfg.Name, version: cfg.Version, env: cfg.Environment,
		log: app.Logger,
	}
	d.database = database.NewComponent(cfg.Database, app.Logger).WithAutoMigrate(runstore.Models()...)
	d.redis = redis.NewComponent(cfg.Redis, app.Logger)
	d.archive = storage.NewComponent(cfg.Archive, app.Logger)
	d.events = sse.NewComponent("/v1/runs/:id/events", app.Logger)

	for _, c := range []component.Component{d.telemetry, d.database, d.redis, d.archive, d.events} {
		if err := app.RegisterComponent(c); err != nil {
			return nil, err
		}
	}

	app.OnConfigure(func(ctx context.Context, app *App) error {
		return d.configure(ctx, app)
	})
	return d, nil
}

func (d *Daemon) configure(_ context.Context, app *App) error {
	cfg := d.cfg

	store, err := d.runStore()
	if err != nil {
		return err
	}
	d.Store = store

	d.Executors = executor.NewRegistry(cfg.Executors, d.log)
	for tag, exec := range d.extra {
		d.Executors.Register(tag, exec)
	}

	notifiers := notify.Multi{notify.NewLog(d.log), notify.NewSSE(d.events.Hub(), d.log)}

	var (
		kafkaComp   *kafka.Component
		kafkaEvents *notify.Kafka
	)
	if cfg.Kafka.Enabled {
		kafkaComp = kafka.NewComponent(cfg.Kafka, d.log)
		if cfg.Events.KafkaTopic != "" {
			p, err := producer.NewProducer(cfg.Kafka, d.log)
			if err != nil {
				return fmt.Errorf("kafka producer: %w", err)
			}
			kafkaComp.SetProducer(p)
			kafkaEvents = notify.NewKafka(p, cfg.Events.KafkaTopic, cfg.Events.QueueSize, d.log)
			notifiers = append(notifiers, kafkaEvents)
		}
	}

	engineOpts := []dag.Option{dag.WithNotifier(notifiers), dag.WithLogger(d.log)}
	if d.telemetry.metrics != nil {
		engineOpts = append(engineOpts, dag.WithMetrics(d.telemetry.metrics))
	}
	d.Engine = dag.NewEngine(cfg.Engine, store, d.Executors, engineOpts...)

	supOpts := []supervisor.Option{supervisor.WithLogger(d.log)}
	if archive := d.archive.Storage(); archive != nil {
		supOpts = append(supOpts, supervisor.WithArchive(archive))
	}
	d.Supervisor = supervisor.New(cfg.Recovery, d.Engine, store, supOpts...)

	if kafkaComp != nil && cfg.Signals.KafkaTopic != "" {
		c, err := transport.NewKafkaSignals(cfg.Kafka, cfg.Signals.KafkaTopic, d.Supervisor, d.log)
		if err != nil {
			return fmt.Errorf("kafka signals: %w", err)
		}
		kafkaComp.AddConsumer(c)
	}

	// Stopped in reverse: the server first, the event producer last.
	var components []component.Component
	if kafkaComp != nil {
		components = append(components, kafkaComp)
	}
	if kafkaEvents != nil {
		components = append(components, kafkaEvents)
	}
	components = append(components, d.Supervisor)
	if cfg.Signals.RedisChannel != "" {
		components = append(components, transport.NewRedisSignals(d.redis.Client(), cfg.Signals.RedisChannel, d.Supervisor, d.log))
	}
	if cfg.SchedulesDir != "" {
		d.Scheduler = scheduler.New(cfg.SchedulesDir, d.Supervisor, d.log)
		components = append(components, d.Scheduler)
	}

	srv, err := d.httpServer(app)
	if err != nil {
		return err
	}
	d.Server = srv
	components = append(components, server.NewComponent(srv))

	for _, c := range components {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}
	d.log.Info("daemon configured", logger.Fields(
		"store", cfg.Store.Driver,
		"executors", d.Executors.List(),
		"auth", cfg.Auth.Enabled,
	))
	return nil
}

func (d *Daemon) runStore() (dag.RunStore, error) {
	switch d.cfg.Store.Driver {
	case StoreDatabase:
		db := d.database.DB()
		if db == nil {
			return nil, fmt.Errorf("store.driver %s: database is not connected", StoreDatabase)
		}
		return runstore.NewSQLStore(db), nil
	case StoreRedis:
		client := d.redis.Client()
		if client == nil {
			return nil, fmt.Errorf("store.driver %s: redis is not connected", StoreRedis)
		}
		return runstore.NewRedisStore(client), nil
	default:
		return runstore.NewMemoryStore(), nil
	}
}

func (d *Daemon) httpServer(app *App) (*server.Server, error) {
	cfg := d.cfg
	srv := server.New(cfg.HTTP, d.log)
	if d.telemetry.metrics != nil {
		srv.GinEngine().Use(middleware.Metrics(d.telemetry.metrics))
	}
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll)

	opts := []api.Option{
		api.WithEvents(sse.NewHandler(d.events.Hub(), cfg.Events.StreamKeepAlive, d.log)),
	}
	if cfg.Auth.Enabled {
		tokens, err := jwt.New(&cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		opts = append(opts, api.WithAuth(tokens.Subject))
	}
	api.NewHandler(d.Supervisor, d.log, opts...).Register(srv.GinEngine())
	return srv, nil
}

// Serve loads the configuration at configPath, wires the daemon and runs it
// until SIGINT or SIGTERM.
func Serve(ctx context.Context, configPath string, opts ...Option) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	if _, err := Register(app, opts...); err != nil {
		return err
	}
	return app.Run(ctx)
}
