package scheduler

import (
	"context"
	"time"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
)

const (
	JobOverdueSweep = "overdue_sweep"
	JobTableRefresh = "lifecycle_table_refresh"
)

// OverdueSweeper is satisfied by the scheduling service.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (*schedule.OverdueSnapshot, error)
}

// OverdueSweepJob recomputes overdue events on one replica at a time.
func OverdueSweepJob(sweeper OverdueSweeper, spec string, lockTTL time.Duration) Job {
	return Job{
		Name:      JobOverdueSweep,
		Spec:      spec,
		Exclusive: true,
		LockTTL:   lockTTL,
		Timeout:   lockTTL,
		Run: func(ctx context.Context) error {
			_, err := sweeper.SweepOverdue(ctx)
			return err
		},
	}
}

// TableLoader is satisfied by lifecycle.Registry.
type TableLoader interface {
	Load(ctx context.Context) error
}

// ReloadMetrics records table reload outcomes.
type ReloadMetrics interface {
	TableReloaded(source string, err error)
}

// TableRefreshJob reloads the status tables from source on every replica;
// each process holds its own registry.
func TableRefreshJob(loader TableLoader, spec, source string, metrics ReloadMetrics) Job {
	return Job{
		Name:    JobTableRefresh,
		Spec:    spec,
		Timeout: time.Minute,
		Run: func(ctx context.Context) error {
			err := loader.Load(ctx)
			if metrics != nil {
				metrics.TableReloaded(source, err)
			}
			return err
		},
	}
}
