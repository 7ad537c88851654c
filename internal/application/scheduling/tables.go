package scheduling

import (
	"sort"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/config"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
)

// TableDefinitionsFromConfig overlays the tables declared in configuration on
// the shipped defaults. Types absent from tables keep their default machine.
func TableDefinitionsFromConfig(tables map[string]config.EventTypeTableConfig) ([]lifecycle.TableDefinition, error) {
	byType := make(map[schedule.EventType]lifecycle.TableDefinition, len(schedule.EventTypes))
	for _, d := range lifecycle.DefaultDefinitions() {
		byType[d.EventType] = d
	}

	for key, tc := range tables {
		et, ok := schedule.ParseEventType(key)
		if !ok {
			return nil, lifecycle.NewUnknownEventTypeError(schedule.EventType(key))
		}
		def := lifecycle.TableDefinition{
			EventType:   et,
			Statuses:    make([]lifecycle.StatusDefinition, len(tc.Statuses)),
			Transitions: make([]lifecycle.Transition, len(tc.Transitions)),
		}
		for i, st := range tc.Statuses {
			def.Statuses[i] = lifecycle.StatusDefinition{ID: st.ID, Label: st.Label}
		}
		for i, tr := range tc.Transitions {
			def.Transitions[i] = lifecycle.Transition{From: tr.From, To: tr.To}
		}
		byType[et] = def
	}

	out := make([]lifecycle.TableDefinition, 0, len(byType))
	for _, d := range byType {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventType.Rank() < out[j].EventType.Rank() })

	if _, err := lifecycle.NewTable(out); err != nil {
		return nil, err
	}
	return out, nil
}
