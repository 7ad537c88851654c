package schedule

import "github.com/shopspring/decimal"

// Summary is the aggregate view of an event set.
type Summary struct {
	TotalEvents        int             `json:"totalEvents"`
	ServiceCount       int             `json:"serviceCount"`
	SparePartCount     int             `json:"sparePartCount"`
	BillingCount       int             `json:"billingCount"`
	TotalBillingAmount decimal.Decimal `json:"totalBillingAmount"`
	SpanDays           int             `json:"spanDays"`
}

// Summarize counts events by type, totals billing and measures the inclusive
// day span between the earliest and latest scheduled date.
func Summarize(events []ContractEvent) Summary {
	s := Summary{TotalEvents: len(events), TotalBillingAmount: decimal.Zero}
	if len(events) == 0 {
		return s
	}

	first, last := events[0].ScheduledDate, events[0].ScheduledDate
	for _, e := range events {
		switch e.EventType {
		case EventTypeService:
			s.ServiceCount++
		case EventTypeSparePart:
			s.SparePartCount++
		case EventTypeBilling:
			s.BillingCount++
			if e.Amount != nil {
				s.TotalBillingAmount = s.TotalBillingAmount.Add(*e.Amount)
			}
		}
		if e.ScheduledDate.Before(first) {
			first = e.ScheduledDate
		}
		if e.ScheduledDate.After(last) {
			last = e.ScheduledDate
		}
	}
	s.SpanDays = first.DaysUntil(last) + 1
	return s
}

// DateGroup is the set of events sharing one calendar date.
type DateGroup struct {
	Date         Date            `json:"date"`
	Deliverables []ContractEvent `json:"deliverables"`
	Billing      []ContractEvent `json:"billing"`
	AllCompleted bool            `json:"allCompleted"`
}

// Events returns the group's deliverables followed by its billing events.
func (g DateGroup) Events() []ContractEvent {
	out := make([]ContractEvent, 0, len(g.Deliverables)+len(g.Billing))
	out = append(out, g.Deliverables...)
	return append(out, g.Billing...)
}

// GroupByDate buckets events by scheduled date in ascending order. Within a
// group, deliverables and billing keep the global Sort order. AllCompleted is
// derived from the statuses passed in.
func GroupByDate(events []ContractEvent) []DateGroup {
	sorted := Sorted(events)

	var groups []DateGroup
	for _, e := range sorted {
		if len(groups) == 0 || !groups[len(groups)-1].Date.Equal(e.ScheduledDate) {
			groups = append(groups, DateGroup{Date: e.ScheduledDate, AllCompleted: true})
		}
		g := &groups[len(groups)-1]
		if e.EventType.IsDeliverable() {
			g.Deliverables = append(g.Deliverables, e)
		} else {
			g.Billing = append(g.Billing, e)
		}
		if !IsTerminalStatus(e.Status) {
			g.AllCompleted = false
		}
	}
	return groups
}
