// Package config defines the configuration structures of the scheduling
// service. No I/O lives here, only data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP and gRPC server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	SlowRequest     time.Duration `mapstructure:"slow_request"`
}

// DatabaseConfig selects the event store and holds PostgreSQL parameters.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // "postgres" | "memory"
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds producer and consumer parameters.
type KafkaConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	MaxRetries      int           `mapstructure:"max_retries"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	Source          string        `mapstructure:"source"`
}

// StatusConfig is one entry of an event type's status vocabulary.
type StatusConfig struct {
	ID    string `mapstructure:"id" yaml:"id" json:"id"`
	Label string `mapstructure:"label" yaml:"label" json:"label"`
}

// TransitionConfig is one directed edge of an event type's state machine.
type TransitionConfig struct {
	From string `mapstructure:"from" yaml:"from" json:"from"`
	To   string `mapstructure:"to" yaml:"to" json:"to"`
}

// EventTypeTableConfig is the status vocabulary and edge set of one event type.
type EventTypeTableConfig struct {
	Statuses    []StatusConfig     `mapstructure:"statuses" yaml:"statuses" json:"statuses"`
	Transitions []TransitionConfig `mapstructure:"transitions" yaml:"transitions" json:"transitions"`
}

// LifecycleConfig controls where status tables are loaded from.
type LifecycleConfig struct {
	Source          string                          `mapstructure:"source"` // "file" | "postgres"
	RefreshInterval time.Duration                   `mapstructure:"refresh_interval"`
	Tables          map[string]EventTypeTableConfig `mapstructure:"tables"`
}

// SchedulerConfig holds the worker's cron jobs.
type SchedulerConfig struct {
	OverdueSweepSpec string        `mapstructure:"overdue_sweep_spec"`
	TableRefreshSpec string        `mapstructure:"table_refresh_spec"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	SweepLimit       int           `mapstructure:"sweep_limit"`
}

// IdempotencyConfig controls replay of generation results by idempotency key.
type IdempotencyConfig struct {
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Namespace   string `mapstructure:"namespace"`
	Subsystem   string `mapstructure:"subsystem"`
	Path        string `mapstructure:"path"`
	GoMetrics   bool   `mapstructure:"go_metrics"`
	ProcMetrics bool   `mapstructure:"process_metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Lifecycle   LifecycleConfig   `mapstructure:"lifecycle"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Log         logging.LogConfig `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a defaulted Config and returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("config: server.grpc_port %d is out of range [0, 65535]", c.Server.GRPCPort)
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
		}
	default:
		return fmt.Errorf("config: database.driver %q is invalid; expected postgres|memory", c.Database.Driver)
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
	}

	switch c.Lifecycle.Source {
	case LifecycleSourceFile:
	case LifecycleSourcePostgres:
		if c.Database.Driver != DriverPostgres {
			return fmt.Errorf("config: lifecycle.source postgres requires database.driver postgres")
		}
	default:
		return fmt.Errorf("config: lifecycle.source %q is invalid; expected file|postgres", c.Lifecycle.Source)
	}
	for eventType, table := range c.Lifecycle.Tables {
		if len(table.Statuses) == 0 {
			return fmt.Errorf("config: lifecycle.tables.%s declares no statuses", eventType)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
