//go:build e2e

package e2e_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kamalcharan/contractnest-combined-sub008/pkg/client"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// newContractID keeps runs against a shared deployment apart.
func newContractID() string {
	return "e2e-" + uuid.NewString()
}

// prepaidTerms: three monthly visits on L1, an unlimited L2 and one prepaid
// invoice on the start date.
func prepaidTerms() client.ContractTerms {
	return client.ContractTerms{
		StartDate:     "2025-02-05",
		DurationValue: 3,
		DurationUnit:  "months",
		SelectedLines: []client.Line{
			{ID: "L1", Kind: "service", Quantity: 3, Cycle: "monthly", UnitPrice: decimal.NewFromInt(1000)},
			{ID: "L2", Kind: "service", Unlimited: true, Cycle: "monthly", UnitPrice: decimal.NewFromInt(10)},
		},
		PaymentMode: "prepaid",
		GrandTotal:  decimal.NewFromInt(3000),
		Currency:    "USD",
	}
}

func requireAPIError(t *testing.T, err error) *client.APIError {
	t.Helper()
	require.Error(t, err)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected *client.APIError, got %T: %v", err, err)
	return apiErr
}

func firstOfType(events []client.Event, eventType string) client.Event {
	for _, e := range events {
		if e.EventType == eventType {
			return e
		}
	}
	return client.Event{}
}

// advance walks an event through statuses, reading its version first.
func advance(t *testing.T, eventID string, statuses ...string) {
	t.Helper()
	ctx := testContext(t)
	ev, err := env.sdk.Events().Get(ctx, eventID)
	require.NoError(t, err)
	version := ev.Version
	for _, st := range statuses {
		res, err := env.sdk.Events().Transition(ctx, eventID, client.TransitionInput{ExpectedVersion: version, ToStatus: st})
		require.NoError(t, err, "%s -> %s", eventID, st)
		version = res.NewVersion
	}
}
