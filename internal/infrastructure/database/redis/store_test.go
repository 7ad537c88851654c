package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
)

func overdueEvent(id, date string) schedule.ContractEvent {
	d := schedule.MustParseDate(date)
	return schedule.ContractEvent{
		ID:            id,
		ContractID:    "c-1",
		EventType:     schedule.EventTypeService,
		ScheduledDate: d,
		OriginalDate:  d,
		Status:        "scheduled",
		Version:       1,
	}
}

func TestIdempotencyStore_SaveLoad(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewIdempotencyStore(NewCache(client, logging.NewNopLogger(), WithJitter(0)))
	ctx := context.Background()

	var got []string
	assert.True(t, IsCacheMiss(store.Load(ctx, "generate", "key-1", &got)))

	require.NoError(t, store.Save(ctx, "generate", "key-1", []string{"e1", "e2"}, time.Hour))
	require.NoError(t, store.Load(ctx, "generate", "key-1", &got))
	assert.Equal(t, []string{"e1", "e2"}, got)
	assert.Equal(t, time.Hour, mr.TTL("test:idempotency:generate:key-1"))

	// Scopes do not collide.
	assert.True(t, IsCacheMiss(store.Load(ctx, "transition", "key-1", &got)))
}

func TestOverdueStore_EmptyBeforeFirstSweep(t *testing.T) {
	client, _ := newTestClient(t)
	snap, err := NewOverdueStore(client).Latest(context.Background(), 0)

	require.NoError(t, err)
	assert.True(t, snap.AsOf.IsZero())
	assert.Empty(t, snap.Events)
}

func TestOverdueStore_ReplaceAndLatest(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewOverdueStore(client)
	ctx := context.Background()

	first := schedule.OverdueSnapshot{
		AsOf: schedule.MustParseDate("2024-03-10"),
		Events: []schedule.ContractEvent{
			overdueEvent("b", "2024-02-01"),
			overdueEvent("a", "2024-01-01"),
			overdueEvent("c", "2024-03-01"),
		},
	}
	require.NoError(t, store.Replace(ctx, first))

	snap, err := store.Latest(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", snap.AsOf.String())
	require.Len(t, snap.Events, 3)
	assert.Equal(t, "a", snap.Events[0].ID)
	assert.Equal(t, "b", snap.Events[1].ID)
	assert.Equal(t, "c", snap.Events[2].ID)
	assert.True(t, snap.Events[0].ScheduledDate.Equal(schedule.MustParseDate("2024-01-01")))

	limited, err := store.Latest(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited.Events, 2)

	// A later sweep replaces the earlier one entirely.
	require.NoError(t, store.Replace(ctx, schedule.OverdueSnapshot{
		AsOf:   schedule.MustParseDate("2024-03-11"),
		Events: []schedule.ContractEvent{overdueEvent("c", "2024-03-01")},
	}))
	snap, err = store.Latest(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", snap.AsOf.String())
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "c", snap.Events[0].ID)

	require.NoError(t, store.Replace(ctx, schedule.OverdueSnapshot{AsOf: schedule.MustParseDate("2024-03-12")}))
	snap, err = store.Latest(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Events)
}
