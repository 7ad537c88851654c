package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/memory"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

func seed(t *testing.T) (*memory.EventStore, []schedule.ContractEvent) {
	t.Helper()
	events, err := schedule.Generate(schedule.ContractTerms{
		ContractID:    "c-1",
		StartDate:     schedule.MustParseDate("2025-02-05"),
		DurationValue: 3,
		DurationUnit:  schedule.DurationMonths,
		SelectedLines: []schedule.Line{
			{ID: "L1", Kind: schedule.LineKindService, Quantity: 3, Cycle: schedule.CycleMonthly, UnitPrice: decimal.NewFromInt(1000)},
		},
		PaymentMode: schedule.PaymentModePrepaid,
		GrandTotal:  decimal.NewFromInt(3000),
		Currency:    "USD",
	})
	require.NoError(t, err)

	s := memory.NewEventStore()
	require.NoError(t, s.InsertBatch(context.Background(), events))
	return s, events
}

// ─────────────────────────────────────────────────────────────────────────────
// InsertBatch / Find
// ─────────────────────────────────────────────────────────────────────────────

func TestEventStore_InsertBatch_RejectsDuplicates(t *testing.T) {
	s, events := seed(t)

	err := s.InsertBatch(context.Background(), events[:1])
	assert.True(t, errors.IsCode(err, errors.ErrCodeScheduleAlreadyExists))
	assert.Equal(t, len(events), s.Len())
}

func TestEventStore_FindByContract_Filters(t *testing.T) {
	s, events := seed(t)
	ctx := context.Background()

	all, err := s.FindByContract(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, events, all)

	billing, err := s.FindByContract(ctx, "c-1", schedule.WithEventTypes(schedule.EventTypeBilling))
	require.NoError(t, err)
	require.Len(t, billing, 1)

	march, err := s.FindByContract(ctx, "c-1",
		schedule.WithDateRange(schedule.MustParseDate("2025-03-01"), schedule.MustParseDate("2025-03-31")))
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, 2, march[0].SequenceNumber)

	limited, err := s.FindByContract(ctx, "c-1", schedule.WithLimit(2))
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.FindByContract(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEventStore_FindByID_NotFound(t *testing.T) {
	s := memory.NewEventStore()
	_, err := s.FindByID(context.Background(), "nope")
	assert.True(t, errors.IsNotFound(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateStatus
// ─────────────────────────────────────────────────────────────────────────────

func TestEventStore_UpdateStatus_CompareAndSwap(t *testing.T) {
	s, events := seed(t)
	ctx := context.Background()
	id := events[0].ID
	who := "tech-7"

	updated, err := s.UpdateStatus(ctx, id, 1, schedule.StatusPatch{Status: "in_progress", AssignedTo: &who})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "in_progress", updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "tech-7", *updated.AssignedTo)

	_, err = s.UpdateStatus(ctx, id, 1, schedule.StatusPatch{Status: "cancelled"})
	assert.True(t, schedule.IsVersionConflict(err))

	stored, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", stored.Status)
	assert.Equal(t, 2, stored.Version)
	assert.Nil(t, stored.Notes)

	_, err = s.UpdateStatus(ctx, "nope", 1, schedule.StatusPatch{Status: "x"})
	assert.True(t, errors.IsNotFound(err))
}

// ─────────────────────────────────────────────────────────────────────────────
// Overrides / Overdue
// ─────────────────────────────────────────────────────────────────────────────

func TestEventStore_OverrideProjectedOnRead(t *testing.T) {
	s, events := seed(t)
	ctx := context.Background()
	id := events[0].ID

	require.NoError(t, s.SetOverride(ctx, id, schedule.MustParseDate("2025-05-01")))
	got, err := s.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "2025-05-01", got.ScheduledDate.String())
	assert.Equal(t, events[0].OriginalDate, got.OriginalDate)

	all, err := s.FindByContract(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, id, all[len(all)-1].ID)

	require.NoError(t, s.ClearOverride(ctx, id))
	all, err = s.FindByContract(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, events, all)

	assert.True(t, errors.IsNotFound(s.SetOverride(ctx, "nope", schedule.MustParseDate("2025-05-01"))))
}

func TestEventStore_FindOverdue(t *testing.T) {
	s, events := seed(t)
	ctx := context.Background()

	overdue, err := s.FindOverdue(ctx, schedule.MustParseDate("2025-03-06"), 0)
	require.NoError(t, err)
	// two services and the billing event are before 2025-03-06
	assert.Len(t, overdue, 3)

	_, err = s.UpdateStatus(ctx, events[0].ID, 1, schedule.StatusPatch{Status: schedule.StatusCancelled})
	require.NoError(t, err)
	overdue, err = s.FindOverdue(ctx, schedule.MustParseDate("2025-03-06"), 1)
	require.NoError(t, err)
	assert.Len(t, overdue, 1)
}

func TestEventStore_ContextCancelled(t *testing.T) {
	s := memory.NewEventStore()
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := s.FindByContract(ctx, "c-1")
	assert.Error(t, err)
}
