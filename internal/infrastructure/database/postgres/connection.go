// Package postgres manages PostgreSQL connectivity for the scheduling engine:
// a database/sql handle for the event store, a pgx pool for ticket and status
// table access, and schema migrations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// sqlOpen is a variable to allow mocking in tests.
var sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	Host             string
	Port             int
	Database         string
	Username         string
	Password         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

// FromConfig maps the application's database section onto PostgresConfig.
func FromConfig(c config.DatabaseConfig) PostgresConfig {
	return PostgresConfig{
		Host:            c.Host,
		Port:            c.Port,
		Database:        c.DBName,
		Username:        c.User,
		Password:        c.Password,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}

// URL returns the migrate-compatible connection URL.
func (c PostgresConfig) URL() string { return buildDSN(c) }

// Connection wraps the database/sql pool used by the event repository.
type Connection struct {
	db     *sql.DB
	cfg    PostgresConfig
	logger logging.Logger
	once   sync.Once
}

// NewConnection opens and pings the database.
func NewConnection(cfg PostgresConfig, log logging.Logger) (*Connection, error) {
	db, err := sqlOpen("postgres", buildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}

	db.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, 25))
	db.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, 10))
	db.SetConnMaxLifetime(durationOrDefault(cfg.ConnMaxLifetime, 30*time.Minute))
	db.SetConnMaxIdleTime(durationOrDefault(cfg.ConnMaxIdleTime, 5*time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	log.Info("connected to postgres",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.Database),
	)
	return &Connection{db: db, cfg: cfg, logger: log}, nil
}

// NewConnectionWithDB wraps an existing handle, for tests.
func NewConnectionWithDB(db *sql.DB, log logging.Logger) *Connection {
	return &Connection{db: db, logger: log}
}

func (c *Connection) DB() *sql.DB { return c.db }

// HealthCheck pings the database and warns when the pool runs hot.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}

	stats := c.Stats()
	if stats.OpenConnections > 0 {
		usage := float64(stats.InUse) / float64(stats.OpenConnections)
		if usage > 0.8 {
			c.logger.Warn("high database connection pool usage",
				logging.Int("in_use", stats.InUse),
				logging.Int("open", stats.OpenConnections),
				logging.Float64("usage", usage),
			)
		}
	}
	return nil
}

func (c *Connection) Stats() sql.DBStats { return c.db.Stats() }

// Close closes the pool once; later calls are no-ops.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		err = c.db.Close()
		if err == nil {
			c.logger.Info("closed postgres connection")
		} else {
			c.logger.Error("failed to close postgres connection", logging.Err(err))
		}
	})
	return err
}

// RunMigrations applies every pending migration under migrationsDir through
// the already open handle.
func (c *Connection) RunMigrations(migrationsDir string) error {
	driver, err := migratepg.WithInstance(c.db, &migratepg.Config{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migration driver")
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL(migrationsDir), "postgres", driver)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		version, _, _ := m.Version()
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to run migrations (current version: %d)", version))
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		c.logger.Warn("failed to read migration version", logging.Err(err))
	}
	c.logger.Info("database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

func buildDSN(cfg PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.Database,
	}

	q := u.Query()
	q.Set("sslmode", stringOrDefault(cfg.SSLMode, "disable"))
	q.Set("statement_timeout", fmt.Sprintf("%d", durationOrDefault(cfg.StatementTimeout, 30*time.Second).Milliseconds()))
	q.Set("lock_timeout", fmt.Sprintf("%d", durationOrDefault(cfg.LockTimeout, 10*time.Second).Milliseconds()))
	u.RawQuery = q.Encode()
	return u.String()
}

// sourceURL accepts either a bare directory or a file:// URL.
func sourceURL(dir string) string {
	if strings.Contains(dir, "://") {
		return dir
	}
	return "file://" + dir
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func durationOrDefault(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

func stringOrDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
