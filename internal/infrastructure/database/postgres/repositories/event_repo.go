package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/postgres"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// EventRepository stores contract events in contract_events and date
// overrides in contract_event_overrides. Every read projects the override
// over original_date.
type EventRepository struct {
	conn *postgres.Connection
	log  logging.Logger
}

var (
	_ schedule.EventRepository    = (*EventRepository)(nil)
	_ schedule.OverrideRepository = (*EventRepository)(nil)
)

func NewEventRepository(conn *postgres.Connection, log logging.Logger) *EventRepository {
	return &EventRepository{conn: conn, log: log.Named("event_repo")}
}

const eventColumns = `
	e.id, e.contract_id, e.line_id, e.event_type, e.sequence_number, e.total_occurrences,
	COALESCE(o.override_date, e.original_date) AS scheduled_date, e.original_date,
	e.amount, e.currency, e.status, e.version, e.assigned_to, e.notes`

const eventFrom = `
	FROM contract_events e
	LEFT JOIN contract_event_overrides o ON o.event_id = e.id`

const eventOrder = `
	ORDER BY scheduled_date,
		CASE e.event_type WHEN 'service' THEN 0 WHEN 'sparePart' THEN 1 ELSE 2 END,
		e.line_id, e.sequence_number, e.id`

// ─────────────────────────────────────────────────────────────────────────────
// InsertBatch
// ─────────────────────────────────────────────────────────────────────────────

// InsertBatch writes all events in one transaction. A primary key collision
// rolls the whole batch back and reports the schedule as already generated.
func (r *EventRepository) InsertBatch(ctx context.Context, events []schedule.ContractEvent) (err error) {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "begin insert batch")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contract_events (
			id, contract_id, line_id, event_type, sequence_number, total_occurrences,
			original_date, amount, currency, status, version, assigned_to, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "prepare insert batch")
	}
	defer stmt.Close()

	for _, e := range events {
		var amount decimal.NullDecimal
		if e.Amount != nil {
			amount = decimal.NullDecimal{Decimal: *e.Amount, Valid: true}
		}
		_, err = stmt.ExecContext(ctx,
			e.ID, e.ContractID, e.LineID, string(e.EventType), e.SequenceNumber, e.TotalOccurrences,
			e.OriginalDate, amount, e.Currency, e.Status, e.Version, nullString(e.AssignedTo), nullString(e.Notes),
		)
		if err != nil {
			if pqCode(err) == pgUniqueViolation {
				return schedule.NewScheduleExistsError(e.ContractID)
			}
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "insert contract event")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "commit insert batch")
	}
	r.log.Debug("events inserted", logging.ContractID(events[0].ContractID), logging.Int("count", len(events)))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

func (r *EventRepository) FindByID(ctx context.Context, id string) (*schedule.ContractEvent, error) {
	row := r.conn.DB().QueryRowContext(ctx, `SELECT`+eventColumns+eventFrom+` WHERE e.id = $1`, id)
	e, err := scanEvent(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, schedule.NewEventNotFoundError(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "find contract event")
	}
	return e, nil
}

func (r *EventRepository) FindByContract(ctx context.Context, contractID string, opts ...schedule.QueryOption) ([]schedule.ContractEvent, error) {
	options := schedule.ApplyQueryOptions(opts...)

	var (
		where = []string{"e.contract_id = $1"}
		args  = []interface{}{contractID}
	)
	if !options.From.IsZero() {
		args = append(args, options.From)
		where = append(where, fmt.Sprintf("COALESCE(o.override_date, e.original_date) >= $%d", len(args)))
	}
	if !options.To.IsZero() {
		args = append(args, options.To)
		where = append(where, fmt.Sprintf("COALESCE(o.override_date, e.original_date) <= $%d", len(args)))
	}
	if len(options.EventTypes) > 0 {
		types := make([]string, len(options.EventTypes))
		for i, t := range options.EventTypes {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		where = append(where, fmt.Sprintf("e.event_type = ANY($%d)", len(args)))
	}

	query := `SELECT` + eventColumns + eventFrom + ` WHERE ` + strings.Join(where, " AND ") + eventOrder
	if options.Limit > 0 {
		args = append(args, options.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.query(ctx, query, args...)
}

func (r *EventRepository) FindOverdue(ctx context.Context, today schedule.Date, limit int) ([]schedule.ContractEvent, error) {
	query := `SELECT` + eventColumns + eventFrom + `
		WHERE e.status NOT IN ('completed', 'cancelled')
		  AND COALESCE(o.override_date, e.original_date) < $1` + eventOrder
	args := []interface{}{today}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

func (r *EventRepository) query(ctx context.Context, query string, args ...interface{}) ([]schedule.ContractEvent, error) {
	rows, err := r.conn.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query contract events")
	}
	defer rows.Close()

	var out []schedule.ContractEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan contract event")
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate contract events")
	}
	schedule.Sort(out)
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateStatus
// ─────────────────────────────────────────────────────────────────────────────

// UpdateStatus is a single conditional UPDATE keyed on (id, version). When no
// row matches, a follow-up read tells a missing event from a stale version.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, expectedVersion int, patch schedule.StatusPatch) (*schedule.ContractEvent, error) {
	row := r.conn.DB().QueryRowContext(ctx, `
		WITH e AS (
			UPDATE contract_events
			   SET status      = $3,
			       assigned_to = COALESCE($4, assigned_to),
			       notes       = COALESCE($5, notes),
			       version     = version + 1,
			       updated_at  = NOW()
			 WHERE id = $1 AND version = $2
			RETURNING *
		)
		SELECT`+eventColumns+`
		FROM e
		LEFT JOIN contract_event_overrides o ON o.event_id = e.id`,
		id, expectedVersion, patch.Status, nullString(patch.AssignedTo), nullString(patch.Notes),
	)

	updated, err := scanEvent(row)
	if err == nil {
		return updated, nil
	}
	if !stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "update event status")
	}

	var actual int
	err = r.conn.DB().QueryRowContext(ctx, `SELECT version FROM contract_events WHERE id = $1`, id).Scan(&actual)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, schedule.NewEventNotFoundError(id)
	case err != nil:
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "read event version")
	}
	return nil, schedule.NewVersionConflictError(id, expectedVersion, actual)
}

// ─────────────────────────────────────────────────────────────────────────────
// Overrides
// ─────────────────────────────────────────────────────────────────────────────

func (r *EventRepository) SetOverride(ctx context.Context, eventID string, date schedule.Date) error {
	_, err := r.conn.DB().ExecContext(ctx, `
		INSERT INTO contract_event_overrides (event_id, override_date)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO UPDATE
		   SET override_date = EXCLUDED.override_date,
		       updated_at    = NOW()`,
		eventID, date,
	)
	if err != nil {
		if pqCode(err) == pgForeignKeyViolation {
			return schedule.NewEventNotFoundError(eventID)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "set date override")
	}
	return nil
}

func (r *EventRepository) ClearOverride(ctx context.Context, eventID string) error {
	res, err := r.conn.DB().ExecContext(ctx, `DELETE FROM contract_event_overrides WHERE event_id = $1`, eventID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "clear date override")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	err = r.conn.DB().QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM contract_events WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "check contract event")
	}
	if !exists {
		return schedule.NewEventNotFoundError(eventID)
	}
	return nil
}

func scanEvent(s scanner) (*schedule.ContractEvent, error) {
	var (
		e          schedule.ContractEvent
		eventType  string
		amount     decimal.NullDecimal
		assignedTo sql.NullString
		notes      sql.NullString
	)
	err := s.Scan(
		&e.ID, &e.ContractID, &e.LineID, &eventType, &e.SequenceNumber, &e.TotalOccurrences,
		&e.ScheduledDate, &e.OriginalDate,
		&amount, &e.Currency, &e.Status, &e.Version, &assignedTo, &notes,
	)
	if err != nil {
		return nil, err
	}
	e.EventType = schedule.EventType(eventType)
	if amount.Valid {
		a := amount.Decimal
		e.Amount = &a
	}
	e.AssignedTo = stringPtr(assignedTo)
	e.Notes = stringPtr(notes)
	return &e, nil
}
