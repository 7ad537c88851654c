package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// TicketStore keeps service tickets keyed by contract and ticket id.
type TicketStore struct {
	mu      sync.RWMutex
	tickets map[string]map[string]schedule.ServiceTicket
}

var _ schedule.TicketRepository = (*TicketStore)(nil)

func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[string]map[string]schedule.ServiceTicket)}
}

// FindByContract returns the contract's tickets ordered by completion time.
func (s *TicketStore) FindByContract(ctx context.Context, contractID string) ([]schedule.ServiceTicket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]schedule.ServiceTicket, 0, len(s.tickets[contractID]))
	for _, t := range s.tickets[contractID] {
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Upsert inserts or replaces a ticket.
func (s *TicketStore) Upsert(ctx context.Context, ticket schedule.ServiceTicket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ticket.ID == "" || ticket.ContractID == "" {
		return errors.InvalidParam("ticket id and contract id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tickets[ticket.ContractID] == nil {
		s.tickets[ticket.ContractID] = make(map[string]schedule.ServiceTicket)
	}
	s.tickets[ticket.ContractID][ticket.ID] = ticket
	return nil
}
