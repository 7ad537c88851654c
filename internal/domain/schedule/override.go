package schedule

import (
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// Overrides is the sparse set of user-moved dates, keyed by event id. It is
// applied on top of generated or stored events and never regenerates them.
type Overrides map[string]Date

// Set records an override for eventID.
func (o Overrides) Set(eventID string, d Date) { o[eventID] = d }

// Clear removes the override for eventID.
func (o Overrides) Clear(eventID string) { delete(o, eventID) }

// Project returns a sorted copy of events with ScheduledDate set to the
// override when one exists and to OriginalDate otherwise.
func (o Overrides) Project(events []ContractEvent) []ContractEvent {
	out := make([]ContractEvent, len(events))
	for i, e := range events {
		e.ScheduledDate = e.OriginalDate
		if d, ok := o[e.ID]; ok {
			e.ScheduledDate = d
		}
		out[i] = e
	}
	Sort(out)
	return out
}

// ApplyOverride returns a re-sorted copy of events with eventID moved to
// newDate. OriginalDate is never touched and terminal events cannot move.
func ApplyOverride(events []ContractEvent, eventID string, newDate Date) ([]ContractEvent, error) {
	if newDate.IsZero() {
		return nil, errors.New(errors.ErrCodeScheduleInvalidOverride, "override date is required").
			WithDetail("eventId=" + eventID)
	}
	for _, e := range events {
		if e.ID == eventID && IsTerminalStatus(e.Status) {
			return nil, errors.New(errors.ErrCodeScheduleInvalidOverride, "cannot move a resolved event").
				WithDetail("eventId=" + eventID + " status=" + e.Status)
		}
	}
	return patchDate(events, eventID, func(e *ContractEvent) { e.ScheduledDate = newDate })
}

// ResetOverride returns a re-sorted copy of events with eventID back on its
// OriginalDate.
func ResetOverride(events []ContractEvent, eventID string) ([]ContractEvent, error) {
	return patchDate(events, eventID, func(e *ContractEvent) { e.ScheduledDate = e.OriginalDate })
}

func patchDate(events []ContractEvent, eventID string, patch func(*ContractEvent)) ([]ContractEvent, error) {
	out := make([]ContractEvent, len(events))
	copy(out, events)
	found := false
	for i := range out {
		if out[i].ID == eventID {
			patch(&out[i])
			found = true
			break
		}
	}
	if !found {
		return nil, NewEventNotFoundError(eventID)
	}
	Sort(out)
	return out, nil
}
