package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "chequeguard"
	DefaultDBUser     = "chequeguard"
	DefaultDBMaxConns = 10

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "chequeguard:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "chequeguard-worker"

	DefaultMinIOEndpoint = "localhost:9000"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "chequeguard"

	DefaultPassTTL         = 6 * time.Hour
	DefaultRefreshInterval = 15 * time.Minute

	DefaultExportBucket    = "chequeguard-exports"
	DefaultExportPrefix    = "exports"
	DefaultExportURLExpiry = 24 * time.Hour
)

// ApplyDefaults fills every zero-value field in cfg with its default. Fields
// already set by the caller are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.Timezone == "" {
		cfg.Engine.Timezone = "UTC"
	}
	if cfg.Engine.PassTTL == 0 {
		cfg.Engine.PassTTL = DefaultPassTTL
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.RefreshInterval == 0 {
		cfg.Worker.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = time.Second
	}

	// ── Export ────────────────────────────────────────────────────────────────
	if cfg.Export.Bucket == "" {
		cfg.Export.Bucket = DefaultExportBucket
	}
	if cfg.Export.Prefix == "" {
		cfg.Export.Prefix = DefaultExportPrefix
	}
	if cfg.Export.URLExpiry == 0 {
		cfg.Export.URLExpiry = DefaultExportURLExpiry
	}
}

// bindEnv binds every key to its CHEQUEGUARD_* variable so env overrides
// apply even when no config file mentions the key.
func bindEnv(v *viper.Viper) {
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
}

var configKeys = []string{
	"server.host", "server.port", "server.mode", "server.read_timeout",
	"server.write_timeout", "server.shutdown_timeout", "server.cors_origins",
	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns", "database.min_conns",
	"database.conn_max_lifetime", "database.conn_max_idle_time",
	"database.statement_timeout", "database.auto_migrate",
	"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.min_idle_conns", "redis.dial_timeout", "redis.read_timeout",
	"redis.write_timeout", "redis.default_ttl", "redis.key_prefix",
	"kafka.enabled", "kafka.brokers", "kafka.group_id", "kafka.auto_offset_reset",
	"kafka.producer_retries", "kafka.batch_size", "kafka.compression",
	"kafka.auto_create_topics", "kafka.replication_factor", "kafka.sasl_mechanism",
	"kafka.sasl_username", "kafka.sasl_password", "kafka.tls_enabled",
	"minio.enabled", "minio.endpoint", "minio.access_key", "minio.secret_key",
	"minio.region", "minio.use_ssl",
	"log.level", "log.format", "log.output_paths", "log.error_output_paths",
	"log.enable_caller", "log.enable_stacktrace",
	"metrics.enabled", "metrics.path", "metrics.namespace",
	"engine.timezone", "engine.pass_ttl",
	"worker.refresh_interval", "worker.max_retries", "worker.retry_backoff",
	"export.bucket", "export.prefix", "export.url_expiry",
}
