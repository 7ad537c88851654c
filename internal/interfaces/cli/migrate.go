package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/postgres"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// schemaMigrator is the subset of postgres.Migrator the commands drive.
type schemaMigrator interface {
	Up() error
	Down(steps int) error
	Status() (postgres.MigrationState, error)
	Force(version int) error
}

// newMigrator is swapped in tests.
var newMigrator = func(cfg config.DatabaseConfig, logger logging.Logger) schemaMigrator {
	return postgres.NewMigrator(postgres.FromConfig(cfg).URL(), cfg.MigrationPath, logger)
}

// NewMigrateCmd manages the PostgreSQL schema.
func NewMigrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (default: database.migration_path)")

	migrator := func(cmd *cobra.Command) (schemaMigrator, error) {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return nil, err
		}
		dbCfg := cliCtx.Config.Database
		if dbCfg.Driver != config.DriverPostgres {
			return nil, errors.InvalidParam("migrations require database.driver postgres").WithDetail(dbCfg.Driver)
		}
		if dir != "" {
			dbCfg.MigrationPath = dir
		}
		return newMigrator(dbCfg, cliCtx.Logger), nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Up(); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return errors.InvalidParam("--steps must be >= 1").WithDetail(strconv.Itoa(steps))
			}
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Down(steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			st, err := m.Status()
			if err != nil {
				return err
			}
			return PrintResult(cmd, migrationStatus(st))
		},
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Record a schema version without running migrations",
		Long:  "Mark the schema as clean at <version>. Use only to recover from a failed, dirty migration.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil || version < 0 {
				return errors.InvalidParam("version must be a non-negative integer").WithDetail(args[0])
			}
			m, err := migrator(cmd)
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("schema version forced to %d", version))
			return nil
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

type migrationStatus postgres.MigrationState

func (s migrationStatus) TableHeaders() []string { return []string{"VERSION", "DIRTY"} }

func (s migrationStatus) TableRows() [][]string {
	return [][]string{{strconv.FormatUint(uint64(s.Version), 10), strconv.FormatBool(s.Dirty)}}
}

func (s migrationStatus) String() string {
	if s.Dirty {
		return fmt.Sprintf("version %d (dirty)\n", s.Version)
	}
	return fmt.Sprintf("version %d\n", s.Version)
}
