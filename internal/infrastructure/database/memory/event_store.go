// Package memory provides process-local implementations of the persistence
// ports, used by the CLI, by tests and when database.driver is "memory".
package memory

import (
	"context"
	"sync"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
)

// EventStore keeps events and their date overrides in maps guarded by a
// single RWMutex. UpdateStatus is a true compare-and-swap.
type EventStore struct {
	mu         sync.RWMutex
	events     map[string]schedule.ContractEvent
	byContract map[string][]string
	overrides  schedule.Overrides
}

var (
	_ schedule.EventRepository    = (*EventStore)(nil)
	_ schedule.OverrideRepository = (*EventStore)(nil)
)

func NewEventStore() *EventStore {
	return &EventStore{
		events:     make(map[string]schedule.ContractEvent),
		byContract: make(map[string][]string),
		overrides:  make(schedule.Overrides),
	}
}

// InsertBatch stores events. The batch is rejected whole if any id exists.
func (s *EventStore) InsertBatch(ctx context.Context, events []schedule.ContractEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if _, exists := s.events[e.ID]; exists {
			return schedule.NewScheduleExistsError(e.ContractID)
		}
	}
	for _, e := range events {
		s.events[e.ID] = e
		s.byContract[e.ContractID] = append(s.byContract[e.ContractID], e.ID)
	}
	return nil
}

func (s *EventStore) FindByID(ctx context.Context, id string) (*schedule.ContractEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, schedule.NewEventNotFoundError(id)
	}
	e = s.project(e)
	return &e, nil
}

func (s *EventStore) FindByContract(ctx context.Context, contractID string, opts ...schedule.QueryOption) ([]schedule.ContractEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	options := schedule.ApplyQueryOptions(opts...)

	s.mu.RLock()
	out := make([]schedule.ContractEvent, 0, len(s.byContract[contractID]))
	for _, id := range s.byContract[contractID] {
		e := s.project(s.events[id])
		if options.Matches(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	schedule.Sort(out)
	if options.Limit > 0 && len(out) > options.Limit {
		out = out[:options.Limit]
	}
	return out, nil
}

func (s *EventStore) UpdateStatus(ctx context.Context, id string, expectedVersion int, patch schedule.StatusPatch) (*schedule.ContractEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, schedule.NewEventNotFoundError(id)
	}
	if e.Version != expectedVersion {
		return nil, schedule.NewVersionConflictError(id, expectedVersion, e.Version)
	}

	e.Status = patch.Status
	if patch.AssignedTo != nil {
		v := *patch.AssignedTo
		e.AssignedTo = &v
	}
	if patch.Notes != nil {
		v := *patch.Notes
		e.Notes = &v
	}
	e.Version++
	s.events[id] = e

	e = s.project(e)
	return &e, nil
}

func (s *EventStore) FindOverdue(ctx context.Context, today schedule.Date, limit int) ([]schedule.ContractEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []schedule.ContractEvent
	for _, e := range s.events {
		e = s.project(e)
		if e.IsOverdue(today) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	schedule.Sort(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *EventStore) SetOverride(ctx context.Context, eventID string, date schedule.Date) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return schedule.NewEventNotFoundError(eventID)
	}
	s.overrides.Set(eventID, date)
	return nil
}

func (s *EventStore) ClearOverride(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return schedule.NewEventNotFoundError(eventID)
	}
	s.overrides.Clear(eventID)
	return nil
}

// Len reports the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// project must be called with mu held.
func (s *EventStore) project(e schedule.ContractEvent) schedule.ContractEvent {
	e.ScheduledDate = e.OriginalDate
	if d, ok := s.overrides[e.ID]; ok {
		e.ScheduledDate = d
	}
	return e
}
