package schedule

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func d(s string) Date {
	return MustParseDate(s)
}

func generate(t *testing.T, terms ContractTerms) []ContractEvent {
	t.Helper()
	events, err := Generate(terms)
	require.NoError(t, err)
	return events
}

func ofType(events []ContractEvent, et EventType) []ContractEvent {
	var out []ContractEvent
	for _, e := range events {
		if e.EventType == et {
			out = append(out, e)
		}
	}
	return out
}

func dates(events []ContractEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ScheduledDate.String()
	}
	return out
}

// quarterlyServiceTerms is the three-month prepaid contract used across tests.
func quarterlyServiceTerms() ContractTerms {
	return ContractTerms{
		ContractID:    "c-100",
		StartDate:     d("2025-02-05"),
		DurationValue: 3,
		DurationUnit:  DurationMonths,
		SelectedLines: []Line{
			{ID: "L1", Kind: LineKindService, Quantity: 3, Cycle: CycleMonthly, UnitPrice: dec("1000")},
		},
		PaymentMode: PaymentModePrepaid,
		GrandTotal:  dec("3000"),
		Currency:    "USD",
	}
}
