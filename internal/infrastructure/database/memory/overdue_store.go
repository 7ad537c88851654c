package memory

import (
	"context"
	"sync"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
)

// OverdueStore keeps the latest overdue sweep in process.
type OverdueStore struct {
	mu   sync.RWMutex
	snap schedule.OverdueSnapshot
}

func NewOverdueStore() *OverdueStore {
	return &OverdueStore{}
}

func (s *OverdueStore) Replace(ctx context.Context, snap schedule.OverdueSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	events := make([]schedule.ContractEvent, len(snap.Events))
	copy(events, snap.Events)

	s.mu.Lock()
	s.snap = schedule.OverdueSnapshot{AsOf: snap.AsOf, Events: events}
	s.mu.Unlock()
	return nil
}

// Latest returns at most limit events of the stored sweep; limit <= 0 means all.
func (s *OverdueStore) Latest(ctx context.Context, limit int) (schedule.OverdueSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return schedule.OverdueSnapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.snap.Events)
	if limit > 0 && limit < n {
		n = limit
	}
	events := make([]schedule.ContractEvent, n)
	copy(events, s.snap.Events[:n])
	return schedule.OverdueSnapshot{AsOf: s.snap.AsOf, Events: events}, nil
}
