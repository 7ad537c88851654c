package schedule

import "sort"

// Compare orders events by scheduled date, then event type rank. Line id,
// sequence number and id break any remaining tie so the order is total.
func Compare(a, b ContractEvent) int {
	if c := a.ScheduledDate.Compare(b.ScheduledDate); c != 0 {
		return c
	}
	if ra, rb := a.EventType.Rank(), b.EventType.Rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if a.LineID != b.LineID {
		if a.LineID < b.LineID {
			return -1
		}
		return 1
	}
	if a.SequenceNumber != b.SequenceNumber {
		if a.SequenceNumber < b.SequenceNumber {
			return -1
		}
		return 1
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// Sort orders events in place. Sorting a sorted slice leaves it unchanged.
func Sort(events []ContractEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return Compare(events[i], events[j]) < 0
	})
}

// Sorted returns a sorted copy of events.
func Sorted(events []ContractEvent) []ContractEvent {
	out := make([]ContractEvent, len(events))
	copy(out, events)
	Sort(out)
	return out
}

// IsSorted reports whether events are in Sort order.
func IsSorted(events []ContractEvent) bool {
	return sort.SliceIsSorted(events, func(i, j int) bool {
		return Compare(events[i], events[j]) < 0
	})
}
