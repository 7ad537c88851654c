package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// TicketRepository reads and ingests service tickets through a pgx pool.
type TicketRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

var _ schedule.TicketRepository = (*TicketRepository)(nil)

func NewTicketRepository(pool *pgxpool.Pool, log logging.Logger) *TicketRepository {
	return &TicketRepository{pool: pool, log: log.Named("ticket_repo")}
}

// FindByContract returns tickets ordered by completion time then id.
func (r *TicketRepository) FindByContract(ctx context.Context, contractID string) ([]schedule.ServiceTicket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contract_id, ticket_number, assigned_to_name, evidence_count, completed_at, event_count
		FROM service_tickets
		WHERE contract_id = $1
		ORDER BY completed_at, id`, contractID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query service tickets")
	}

	tickets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (schedule.ServiceTicket, error) {
		var t schedule.ServiceTicket
		err := row.Scan(&t.ID, &t.ContractID, &t.TicketNumber, &t.AssignedToName, &t.EvidenceCount, &t.CompletedAt, &t.EventCount)
		return t, err
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan service tickets")
	}
	return tickets, nil
}

// Upsert inserts a ticket or replaces the stored copy. Redelivered messages
// therefore leave a single row.
func (r *TicketRepository) Upsert(ctx context.Context, t schedule.ServiceTicket) error {
	if t.ID == "" || t.ContractID == "" {
		return errors.InvalidParam("ticket id and contract id are required")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO service_tickets (
			id, contract_id, ticket_number, assigned_to_name, evidence_count, completed_at, event_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			contract_id      = EXCLUDED.contract_id,
			ticket_number    = EXCLUDED.ticket_number,
			assigned_to_name = EXCLUDED.assigned_to_name,
			evidence_count   = EXCLUDED.evidence_count,
			completed_at     = EXCLUDED.completed_at,
			event_count      = EXCLUDED.event_count,
			received_at      = NOW()`,
		t.ID, t.ContractID, t.TicketNumber, t.AssignedToName, t.EvidenceCount, t.CompletedAt, t.EventCount,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "upsert service ticket")
	}
	r.log.Debug("service ticket stored", logging.ContractID(t.ContractID), logging.String("ticket_id", t.ID))
	return nil
}
