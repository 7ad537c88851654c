package postgres

import (
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Migrator
// ─────────────────────────────────────────────────────────────────────────────

// Migrator drives golang-migrate against one database. It backs the
// "cnctl migrate" commands; servers call Connection.RunMigrations instead.
type Migrator struct {
	dbURL  string
	source string
	logger logging.Logger

	// newMigrate is swapped in tests.
	newMigrate func(source, dbURL string) (migrationRunner, error)
}

type migrationRunner interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Close() (error, error)
}

// MigrationState is the schema version as recorded by golang-migrate.
type MigrationState struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func NewMigrator(dbURL, migrationsDir string, logger logging.Logger) *Migrator {
	return &Migrator{
		dbURL:  dbURL,
		source: sourceURL(migrationsDir),
		logger: logger.Named("migrator"),
		newMigrate: func(source, dbURL string) (migrationRunner, error) {
			return migrate.New(source, dbURL)
		},
	}
}

func (m *Migrator) open() (migrationRunner, error) {
	r, err := m.newMigrate(m.source, m.dbURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return r, nil
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	r, err := m.open()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	m.logger.Info("migrations applied", logging.String("source", m.source))
	return nil
}

// Down rolls back steps migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be greater than 0, got %d", steps)
	}
	r, err := m.open()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("no migrations to roll back")
		}
		return fmt.Errorf("roll back %d step(s): %w", steps, err)
	}
	m.logger.Info("migrations rolled back", logging.Int("steps", steps))
	return nil
}

// Status reports the applied version. A fresh database reports version 0.
func (m *Migrator) Status() (MigrationState, error) {
	r, err := m.open()
	if err != nil {
		return MigrationState{}, err
	}
	defer r.Close()

	version, dirty, err := r.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return MigrationState{}, nil
		}
		return MigrationState{}, fmt.Errorf("read migration version: %w", err)
	}
	return MigrationState{Version: version, Dirty: dirty}, nil
}

// Force records version without running anything, to recover a dirty schema.
func (m *Migrator) Force(version int) error {
	r, err := m.open()
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	m.logger.Warn("migration version forced", logging.Int("version", version))
	return nil
}
