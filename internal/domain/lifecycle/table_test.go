package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
)

func TestDefaultTable(t *testing.T) {
	table := lifecycle.DefaultTable()

	assert.Equal(t, schedule.DefaultInitialStatuses, table.InitialStatuses())

	svc, ok := table.For(schedule.EventTypeService)
	require.True(t, ok)
	assert.True(t, svc.Allows("scheduled", "in_progress"))
	assert.True(t, svc.Allows("in_progress", "completed"))
	assert.False(t, svc.Allows("completed", "scheduled"))
	assert.Equal(t, []string{"in_progress", "cancelled"}, svc.Targets("scheduled"))
	assert.Empty(t, svc.Targets("completed"))
	assert.Equal(t, "On hold", svc.Label("on_hold"))
	assert.Equal(t, "mystery", svc.Label("mystery"))

	bill, ok := table.For(schedule.EventTypeBilling)
	require.True(t, ok)
	assert.Equal(t, "pending", bill.InitialStatus())
	assert.True(t, bill.Allows("pending", "invoiced"))
	assert.False(t, bill.HasStatus(schedule.StatusOverdue))
}

func TestTable_DefinitionsRoundTrip(t *testing.T) {
	defs := lifecycle.DefaultTable().Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, schedule.EventTypeService, defs[0].EventType)
	assert.Equal(t, schedule.EventTypeBilling, defs[2].EventType)

	again, err := lifecycle.NewTable(defs)
	require.NoError(t, err)
	assert.Equal(t, defs, again.Definitions())
}

func validDefs() []lifecycle.TableDefinition {
	return lifecycle.DefaultDefinitions()
}

func TestNewTable_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]lifecycle.TableDefinition) []lifecycle.TableDefinition
	}{
		{"missing type", func(d []lifecycle.TableDefinition) []lifecycle.TableDefinition { return d[:2] }},
		{"duplicate type", func(d []lifecycle.TableDefinition) []lifecycle.TableDefinition { return append(d, d[0]) }},
		{"unknown type", func(d []lifecycle.TableDefinition) []lifecycle.TableDefinition {
			return append(d, lifecycle.TableDefinition{EventType: "meeting", Statuses: d[0].Statuses})
		}},
		{"no statuses", func(d []lifecycle.TableDefinition) []lifecycle.TableDefinition {
			d[1].Statuses = nil
			d[1].Transitions = nil
			return d
		}},
		{"empty status id", func(d []lifecycle.TableDefinition) []lifecycle.TableDefinition {
			d[0].Statuses = append(d[0].Statuses, lifecycle.StatusDefinition{})
			return d
		}},
		{"duplicate status", func(d []lifecycle.TableDefinition) []lifecycle.TableDefinition {
			d[0].Statuses = append(d[0].Statuses, d[0].Statuses[0])
			return d
		}},
		{"overdue declared", func(d []lifecycle.TableDefinition) []lifecycle.TableDefinition {
			d[2].Statuses = append(d[2].Statuses, lifecycle.StatusDefinition{ID: schedule.StatusOverdue})
			return d
		}},
		{"edge to undeclared status", func(d []lifecycle.TableDefinition) []lifecycle.TableDefinition {
			d[0].Transitions = append(d[0].Transitions, lifecycle.Transition{From: "scheduled", To: "archived"})
			return d
		}},
		{"self edge", func(d []lifecycle.TableDefinition) []lifecycle.TableDefinition {
			d[0].Transitions = append(d[0].Transitions, lifecycle.Transition{From: "scheduled", To: "scheduled"})
			return d
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lifecycle.NewTable(tt.mutate(validDefs()))
			require.Error(t, err)
			assert.True(t, lifecycle.IsInvalidTable(err))
		})
	}
}

func TestNewTable_DuplicateEdgesCollapse(t *testing.T) {
	defs := validDefs()
	defs[1].Transitions = append(defs[1].Transitions, defs[1].Transitions[0])

	table, err := lifecycle.NewTable(defs)
	require.NoError(t, err)
	sp, _ := table.For(schedule.EventTypeSparePart)
	assert.Len(t, sp.Transitions(), 4)
}

func TestParseDefinitions(t *testing.T) {
	doc := []byte(`
billing:
  statuses: [{id: open}, {id: completed}]
  transitions: [{from: open, to: completed}]
sparepart:
  statuses: [{id: ordered}]
service:
  statuses: [{id: planned, label: Planned}]
`)
	defs, err := lifecycle.ParseDefinitions(doc)
	require.NoError(t, err)
	require.Len(t, defs, 3)
	assert.Equal(t, schedule.EventTypeSparePart, defs[1].EventType)

	table, err := lifecycle.NewTable(defs)
	require.NoError(t, err)
	assert.Equal(t, "open", table.InitialStatuses()[schedule.EventTypeBilling])

	_, err = lifecycle.ParseDefinitions([]byte("meeting:\n  statuses: [{id: x}]\n"))
	assert.True(t, lifecycle.IsInvalidTable(err))

	_, err = lifecycle.ParseDefinitions([]byte("service: [unterminated"))
	assert.True(t, lifecycle.IsInvalidTable(err))
}
