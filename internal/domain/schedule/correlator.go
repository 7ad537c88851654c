package schedule

import (
	"sort"
	"time"
)

// ServiceTicket is an externally recorded record of completed field work.
type ServiceTicket struct {
	ID             string    `json:"id"`
	ContractID     string    `json:"contractId"`
	TicketNumber   string    `json:"ticketNumber"`
	AssignedToName string    `json:"assignedToName"`
	EvidenceCount  int       `json:"evidenceCount"`
	CompletedAt    time.Time `json:"completedAt"`
	EventCount     int       `json:"eventCount"`
}

// TicketDisplayInfo is what a completed date group shows about its ticket.
type TicketDisplayInfo struct {
	TicketID       string    `json:"ticketId"`
	TicketNumber   string    `json:"ticketNumber"`
	AssignedToName string    `json:"assignedToName"`
	EvidenceCount  int       `json:"evidenceCount"`
	EventCount     int       `json:"eventCount"`
	CompletedAt    time.Time `json:"completedAt"`
}

// Ambiguity records a date on which more than one ticket completed.
type Ambiguity struct {
	Date      Date     `json:"date"`
	TicketIDs []string `json:"ticketIds"`
	ChosenID  string   `json:"chosenId"`
}

// Correlation is the result of joining date groups to tickets. ByDate holds
// an entry for every fully resolved group with deliverables; the value is nil
// when no ticket completed that day.
type Correlation struct {
	ByDate      map[Date]*TicketDisplayInfo `json:"byDate"`
	Ambiguities []Ambiguity                 `json:"ambiguities,omitempty"`
}

// Correlate joins groups to tickets by UTC completion day. When several tickets
// share a day the earliest completion wins, then the lowest ticket id, and the
// day is reported in Ambiguities.
func Correlate(groups []DateGroup, tickets []ServiceTicket) Correlation {
	ordered := make([]ServiceTicket, len(tickets))
	copy(ordered, tickets)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CompletedAt.Equal(ordered[j].CompletedAt) {
			return ordered[i].CompletedAt.Before(ordered[j].CompletedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	byDay := make(map[Date][]ServiceTicket)
	for _, t := range ordered {
		if t.CompletedAt.IsZero() {
			continue
		}
		day := DateOf(t.CompletedAt.UTC())
		byDay[day] = append(byDay[day], t)
	}

	result := Correlation{ByDate: make(map[Date]*TicketDisplayInfo)}
	for _, g := range groups {
		if !g.AllCompleted || len(g.Deliverables) == 0 {
			continue
		}
		matches := byDay[g.Date]
		if len(matches) == 0 {
			result.ByDate[g.Date] = nil
			continue
		}
		chosen := matches[0]
		result.ByDate[g.Date] = &TicketDisplayInfo{
			TicketID:       chosen.ID,
			TicketNumber:   chosen.TicketNumber,
			AssignedToName: chosen.AssignedToName,
			EvidenceCount:  chosen.EvidenceCount,
			EventCount:     chosen.EventCount,
			CompletedAt:    chosen.CompletedAt,
		}
		if len(matches) > 1 {
			ids := make([]string, len(matches))
			for i, m := range matches {
				ids[i] = m.ID
			}
			result.Ambiguities = append(result.Ambiguities, Ambiguity{Date: g.Date, TicketIDs: ids, ChosenID: chosen.ID})
		}
	}
	return result
}

// Ambiguous reports whether any day matched more than one ticket.
func (c Correlation) Ambiguous() bool {
	return len(c.Ambiguities) > 0
}
