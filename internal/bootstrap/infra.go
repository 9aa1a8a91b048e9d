// Package bootstrap opens the infrastructure a long-running ChequeGuard
// process needs and wires it into the application services. The API server
// and the worker share it; the CLI opens only what a single command uses.
package bootstrap

import (
	"context"
	"time"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/config"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/database/redis"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/storage/minio"
	"github.com/turtacn/ChequeGuard/internal/interfaces/http/handlers"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// cacheJitter spreads pass expiry across replicas.
const cacheJitter = 0.1

// Infra holds the opened components. Disabled components are nil.
type Infra struct {
	Config   *config.Config
	Logger   logging.Logger
	Location *time.Location

	Postgres  *postgres.Connection
	Redis     *redis.Client
	Cache     *redis.Cache
	Producer  *kafka.Producer
	MinIO     *minio.Client
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	closers []func()
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:            cfg.Level,
		Format:           cfg.Format,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
		EnableCaller:     cfg.EnableCaller,
		EnableStacktrace: cfg.EnableStacktrace,
	})
}

// Open connects every enabled component. PostgreSQL and the metrics registry
// are always opened. On error everything opened so far is closed again.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (_ *Infra, err error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid engine timezone")
	}
	in := &Infra{Config: cfg, Logger: log, Location: loc}
	defer func() {
		if err != nil {
			in.Close()
		}
	}()

	if in.Postgres, err = postgres.NewConnection(ctx, cfg.Database, log); err != nil {
		return nil, err
	}
	in.closers = append(in.closers, in.Postgres.Close)
	if cfg.Database.AutoMigrate {
		if err = migrate(cfg.Database, log); err != nil {
			return nil, err
		}
	}

	if cfg.Redis.Enabled {
		if in.Redis, err = redis.NewClient(cfg.Redis, log); err != nil {
			return nil, err
		}
		in.closers = append(in.closers, func() { _ = in.Redis.Close() })
		in.Cache = redis.NewCache(in.Redis, log,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL),
			redis.WithTTLJitter(cacheJitter))
	}

	if cfg.Kafka.Enabled {
		if cfg.Kafka.AutoCreateTopics {
			if err = ensureTopics(ctx, cfg.Kafka, log); err != nil {
				return nil, err
			}
		}
		if in.Producer, err = kafka.NewProducer(ProducerConfig(cfg.Kafka), log); err != nil {
			return nil, err
		}
		in.closers = append(in.closers, func() { _ = in.Producer.Close() })
	}

	if cfg.MinIO.Enabled {
		if in.MinIO, err = minio.NewClient(ctx, cfg.MinIO, cfg.Export, log); err != nil {
			return nil, err
		}
	}

	if in.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log); err != nil {
		return nil, err
	}
	in.Metrics = prometheus.NewAppMetrics(in.Collector)

	log.Info("Infrastructure ready",
		logging.Bool("redis", in.Redis != nil),
		logging.Bool("kafka", in.Producer != nil),
		logging.Bool("minio", in.MinIO != nil),
		logging.String("timezone", loc.String()))
	return in, nil
}

// TrackingService wires the tracking service over the PostgreSQL portfolio.
// source names the process in published events.
func (in *Infra) TrackingService(clock cheque.Clock, source string) tracking.Service {
	var (
		cache     tracking.CachePort
		publisher tracking.PublisherPort
		metrics   tracking.MetricsPort
	)
	if in.Cache != nil {
		cache = in.Cache
	}
	if in.Producer != nil {
		publisher = in.Producer
	}
	if in.Metrics != nil {
		metrics = in.Metrics
	}
	repo := postgres.NewChequeRepository(in.Postgres.Pool(), in.Logger)
	return tracking.NewService(repo, cheque.NewEngine(in.Location), clock, cache, publisher, metrics, in.Logger,
		tracking.Options{PassTTL: in.Config.Engine.PassTTL, Source: source})
}

// ReportingService wires exports over svc. Uploads are disabled without
// MinIO.
func (in *Infra) ReportingService(svc tracking.Service, clock cheque.Clock) reporting.Service {
	var store reporting.ObjectStore
	if in.MinIO != nil {
		store = minio.NewExportStore(in.MinIO, in.Logger)
	}
	return reporting.NewService(svc, store, clock, in.Logger,
		reporting.Options{Prefix: in.Config.Export.Prefix, URLExpiry: in.Config.Export.URLExpiry})
}

// Close releases components in reverse order of opening.
func (in *Infra) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i]()
	}
	in.closers = nil
}

func migrate(cfg config.DatabaseConfig, log logging.Logger) error {
	m, err := postgres.NewMigrator(postgres.ConnString(cfg), log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

func ensureTopics(ctx context.Context, cfg config.KafkaConfig, log logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Brokers, log)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, Topics(cfg))
}

// HealthCheckers probes every opened component for the readiness endpoint.
func (in *Infra) HealthCheckers() []handlers.HealthChecker {
	checks := []handlers.HealthChecker{
		handlers.CheckFunc{ComponentName: "postgres", Fn: in.Postgres.HealthCheck},
	}
	if in.Redis != nil {
		checks = append(checks, handlers.CheckFunc{ComponentName: "redis", Fn: in.Redis.Ping})
	}
	if in.MinIO != nil {
		checks = append(checks, handlers.CheckFunc{ComponentName: "minio", Fn: in.MinIO.HealthCheck})
	}
	return checks
}
