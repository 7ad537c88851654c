package config

import "time"

// Store drivers and lifecycle table sources.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	LifecycleSourceFile     = "file"
	LifecycleSourcePostgres = "postgres"
)

const (
	DefaultServerPort      = 8080
	DefaultGRPCPort        = 9090
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultMaxBodySize     = 1 << 20
	DefaultShutdownTimeout = 30 * time.Second
	DefaultSlowRequest     = 500 * time.Millisecond

	DefaultDBDriver        = DriverPostgres
	DefaultDBHost          = "localhost"
	DefaultDBPort          = 5432
	DefaultDBName          = "contractnest"
	DefaultDBMaxConns      = 25
	DefaultDBMaxIdleConns  = 10
	DefaultConnMaxLifetime = 30 * time.Minute
	DefaultMigrationPath   = "internal/infrastructure/database/postgres/migrations"

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 20
	DefaultRedisTTL       = 15 * time.Minute
	DefaultRedisKeyPrefix = "contractnest:"

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "contractnest-scheduler"
	DefaultKafkaSource       = "contractnest-scheduler"
	DefaultKafkaMaxRetries   = 3
	DefaultKafkaBatchSize    = 100
	DefaultKafkaBatchTimeout = 10 * time.Millisecond

	DefaultLifecycleSource  = LifecycleSourceFile
	DefaultRefreshInterval  = 5 * time.Minute
	DefaultOverdueSweepSpec = "*/5 * * * *"
	DefaultTableRefreshSpec = "@every 5m"
	DefaultSweepLockTTL     = 2 * time.Minute
	DefaultSweepLimit       = 10000

	DefaultIdempotencyTTL = 24 * time.Hour

	DefaultMetricsNamespace = "contractnest"
	DefaultMetricsSubsystem = "scheduler"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg. Values already set win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.GRPCPort == 0 {
		cfg.Server.GRPCPort = DefaultGRPCPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.SlowRequest == 0 {
		cfg.Server.SlowRequest = DefaultSlowRequest
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDBDriver
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultMigrationPath
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
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
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.Source == "" {
		cfg.Kafka.Source = DefaultKafkaSource
	}

	// ── Lifecycle ─────────────────────────────────────────────────────────────
	if cfg.Lifecycle.Source == "" {
		cfg.Lifecycle.Source = DefaultLifecycleSource
	}
	if cfg.Lifecycle.RefreshInterval == 0 {
		cfg.Lifecycle.RefreshInterval = DefaultRefreshInterval
	}

	// ── Scheduler ─────────────────────────────────────────────────────────────
	if cfg.Scheduler.OverdueSweepSpec == "" {
		cfg.Scheduler.OverdueSweepSpec = DefaultOverdueSweepSpec
	}
	if cfg.Scheduler.TableRefreshSpec == "" {
		cfg.Scheduler.TableRefreshSpec = DefaultTableRefreshSpec
	}
	if cfg.Scheduler.LockTTL == 0 {
		cfg.Scheduler.LockTTL = DefaultSweepLockTTL
	}
	if cfg.Scheduler.SweepLimit == 0 {
		cfg.Scheduler.SweepLimit = DefaultSweepLimit
	}

	// ── Idempotency ───────────────────────────────────────────────────────────
	if cfg.Idempotency.ResultTTL == 0 {
		cfg.Idempotency.ResultTTL = DefaultIdempotencyTTL
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
