package schedule

import (
	"github.com/shopspring/decimal"
)

// Statuses every event type's vocabulary agrees on.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	// StatusOverdue is a derived display flag, never a stored status.
	StatusOverdue = "overdue"
)

// IsTerminalStatus reports whether status resolves an event for good.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// ContractEvent is one dated obligation derived from a contract.
// TotalOccurrences of 0 marks an open-ended series and is not an error.
type ContractEvent struct {
	ID               string           `json:"id"`
	ContractID       string           `json:"contractId"`
	LineID           string           `json:"lineId"`
	EventType        EventType        `json:"eventType"`
	SequenceNumber   int              `json:"sequenceNumber"`
	TotalOccurrences int              `json:"totalOccurrences"`
	ScheduledDate    Date             `json:"scheduledDate"`
	OriginalDate     Date             `json:"originalDate"`
	Amount           *decimal.Decimal `json:"amount"`
	Currency         string           `json:"currency"`
	Status           string           `json:"status"`
	Version          int              `json:"version"`
	AssignedTo       *string          `json:"assignedTo"`
	Notes            *string          `json:"notes"`
}

// IsOverdue reports whether the event is past due on day today.
func (e ContractEvent) IsOverdue(today Date) bool {
	return e.ScheduledDate.Before(today) && !IsTerminalStatus(e.Status)
}

// IsOverridden reports whether ScheduledDate differs from the generated date.
func (e ContractEvent) IsOverridden() bool {
	return !e.ScheduledDate.Equal(e.OriginalDate)
}

// IsOpenEnded reports whether the event belongs to a series with no fixed total.
func (e ContractEvent) IsOpenEnded() bool {
	return e.TotalOccurrences == 0
}

// EventView is a ContractEvent with its derived flags, as returned to callers.
type EventView struct {
	ContractEvent
	Overdue    bool `json:"overdue"`
	Overridden bool `json:"overridden"`
}

// NewEventViews derives display flags for events as of today.
func NewEventViews(events []ContractEvent, today Date) []EventView {
	out := make([]EventView, len(events))
	for i, e := range events {
		out[i] = EventView{
			ContractEvent: e,
			Overdue:       e.IsOverdue(today),
			Overridden:    e.IsOverridden(),
		}
	}
	return out
}

// OverdueSnapshot is the result of one overdue sweep.
type OverdueSnapshot struct {
	AsOf   Date            `json:"asOf"`
	Events []ContractEvent `json:"events"`
}
