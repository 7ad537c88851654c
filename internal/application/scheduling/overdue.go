package scheduling

import (
	"context"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
)

// OverduePayload is published on TopicEventsOverdue after each sweep.
type OverduePayload struct {
	AsOf     schedule.Date  `json:"asOf"`
	Count    int            `json:"count"`
	ByType   map[string]int `json:"byType"`
	EventIDs []string       `json:"eventIds"`
}

// SweepOverdue collects every non-terminal event scheduled before today,
// stores the snapshot, refreshes the overdue gauge and announces the result.
// Overdue stays a derived flag: no event status is written.
func (s *Service) SweepOverdue(ctx context.Context) (*schedule.OverdueSnapshot, error) {
	today := s.today()
	events, err := s.events.FindOverdue(ctx, today, s.config.SweepLimit)
	if err != nil {
		return nil, err
	}
	snap := schedule.OverdueSnapshot{AsOf: today, Events: events}

	if s.overdue != nil {
		if err := s.overdue.Replace(ctx, snap); err != nil {
			return nil, err
		}
	}

	byType := make(map[string]int, len(schedule.EventTypes))
	for _, t := range schedule.EventTypes {
		byType[string(t)] = 0
	}
	ids := make([]string, len(events))
	for i, e := range events {
		byType[string(e.EventType)]++
		ids[i] = e.ID
	}
	s.metrics.SetOverdue(byType)

	s.publish(ctx, TopicEventsOverdue, today.String(), OverduePayload{
		AsOf:     today,
		Count:    len(events),
		ByType:   byType,
		EventIDs: ids,
	})
	s.logger.Info("overdue sweep finished", logging.String("as_of", today.String()), logging.Int("overdue", len(events)))
	return &snap, nil
}

// LatestOverdue returns the stored sweep, or a live query when no sweep has
// been stored yet.
func (s *Service) LatestOverdue(ctx context.Context, limit int) (*schedule.OverdueSnapshot, error) {
	if s.overdue != nil {
		snap, err := s.overdue.Latest(ctx, limit)
		if err != nil {
			return nil, err
		}
		if !snap.AsOf.IsZero() {
			return &snap, nil
		}
	}

	today := s.today()
	events, err := s.events.FindOverdue(ctx, today, limit)
	if err != nil {
		return nil, err
	}
	return &schedule.OverdueSnapshot{AsOf: today, Events: events}, nil
}
