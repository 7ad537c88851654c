package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// NewPool opens a pgx pool and verifies it with a ping.
func NewPool(ctx context.Context, cfg PostgresConfig, log logging.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "invalid postgres connection string")
	}
	configurePool(poolCfg, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "postgres pool ping failed")
	}

	log.Info("postgres pool ready",
		logging.String("host", cfg.Host),
		logging.Int("max_conns", int(poolCfg.MaxConns)),
	)
	return pool, nil
}

func buildConnString(cfg PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.Database,
	}
	q := u.Query()
	q.Set("sslmode", stringOrDefault(cfg.SSLMode, "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// configurePool copies the positive pool limits from cfg; zero keeps pgx's
// defaults.
func configurePool(poolCfg *pgxpool.Config, cfg PostgresConfig) {
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
}

// TxBeginner is satisfied by *pgxpool.Pool and pgx.Tx.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTransaction runs fn in a transaction, committing on nil and rolling
// back on error or panic. Nesting on a pgx.Tx yields a savepoint.
func WithTransaction(ctx context.Context, db TxBeginner, fn func(tx pgx.Tx, ctx context.Context) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx, ctx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "commit transaction")
	}
	return nil
}
