package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/postgres"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// StatusTableRepository stores the per-event-type status vocabularies and
// transition edges in event_status_definitions and event_transitions.
type StatusTableRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

var _ lifecycle.TableStore = (*StatusTableRepository)(nil)

func NewStatusTableRepository(pool *pgxpool.Pool, log logging.Logger) *StatusTableRepository {
	return &StatusTableRepository{pool: pool, log: log.Named("status_table_repo")}
}

// LoadDefinitions reads every table. Validation is left to lifecycle.NewTable.
func (r *StatusTableRepository) LoadDefinitions(ctx context.Context) ([]lifecycle.TableDefinition, error) {
	byType := make(map[schedule.EventType]*lifecycle.TableDefinition)
	var order []schedule.EventType
	def := func(et schedule.EventType) *lifecycle.TableDefinition {
		d, ok := byType[et]
		if !ok {
			d = &lifecycle.TableDefinition{EventType: et}
			byType[et] = d
			order = append(order, et)
		}
		return d
	}

	rows, err := r.pool.Query(ctx, `
		SELECT event_type, status_id, label
		FROM event_status_definitions
		ORDER BY event_type, position, status_id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query status definitions")
	}
	for rows.Next() {
		var et, id, label string
		if err := rows.Scan(&et, &id, &label); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan status definition")
		}
		d := def(schedule.EventType(et))
		d.Statuses = append(d.Statuses, lifecycle.StatusDefinition{ID: id, Label: label})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate status definitions")
	}

	rows, err = r.pool.Query(ctx, `
		SELECT event_type, from_status, to_status
		FROM event_transitions
		ORDER BY event_type, position, from_status, to_status`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query transitions")
	}
	for rows.Next() {
		var et, from, to string
		if err := rows.Scan(&et, &from, &to); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan transition")
		}
		d := def(schedule.EventType(et))
		d.Transitions = append(d.Transitions, lifecycle.Transition{From: from, To: to})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate transitions")
	}

	out := make([]lifecycle.TableDefinition, 0, len(order))
	for _, et := range order {
		out = append(out, *byType[et])
	}
	return out, nil
}

// Replace validates defs and rewrites the stored definitions in one
// transaction.
func (r *StatusTableRepository) Replace(ctx context.Context, defs []lifecycle.TableDefinition) error {
	if _, err := lifecycle.NewTable(defs); err != nil {
		return err
	}

	return postgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx, ctx context.Context) error {
		if _, err := tx.Exec(ctx, `DELETE FROM event_transitions`); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "clear transitions")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM event_status_definitions`); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "clear status definitions")
		}

		batch := &pgx.Batch{}
		for _, d := range defs {
			for i, s := range d.Statuses {
				batch.Queue(`INSERT INTO event_status_definitions (event_type, status_id, label, position) VALUES ($1, $2, $3, $4)`,
					string(d.EventType), s.ID, s.Label, i)
			}
		}
		for _, d := range defs {
			for i, tr := range d.Transitions {
				batch.Queue(`INSERT INTO event_transitions (event_type, from_status, to_status, position) VALUES ($1, $2, $3, $4)
					ON CONFLICT DO NOTHING`,
					string(d.EventType), tr.From, tr.To, i)
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "write status tables")
		}
		r.log.Info("status tables replaced", logging.Int("event_types", len(defs)))
		return nil
	})
}
