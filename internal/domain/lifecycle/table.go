// Package lifecycle owns the configurable per-event-type state machines and
// the authority that applies status transitions under optimistic concurrency.
package lifecycle

import (
	_ "embed"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
)

//go:embed defaults.yaml
var defaultTablesYAML []byte

// StatusDefinition is one entry of an event type's status vocabulary.
type StatusDefinition struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Transition is a directed edge between two statuses.
type Transition struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// TableDefinition is the raw, unvalidated table of one event type as it
// arrives from configuration or storage.
type TableDefinition struct {
	EventType   schedule.EventType `json:"eventType" yaml:"eventType"`
	Statuses    []StatusDefinition `json:"statuses" yaml:"statuses"`
	Transitions []Transition       `json:"transitions" yaml:"transitions"`
}

// ─────────────────────────────────────────────────────────────────────────────
// TypeTable
// ─────────────────────────────────────────────────────────────────────────────

// TypeTable is the validated state machine of one event type. It is
// immutable once built.
type TypeTable struct {
	eventType   schedule.EventType
	statuses    []StatusDefinition
	index       map[string]int
	transitions []Transition
	edges       map[Transition]struct{}
}

func (t *TypeTable) EventType() schedule.EventType { return t.eventType }

// InitialStatus is the status assigned to freshly generated events.
func (t *TypeTable) InitialStatus() string { return t.statuses[0].ID }

// HasStatus reports whether status belongs to the vocabulary.
func (t *TypeTable) HasStatus(status string) bool {
	_, ok := t.index[status]
	return ok
}

// Allows reports whether (from, to) is an edge.
func (t *TypeTable) Allows(from, to string) bool {
	_, ok := t.edges[Transition{From: from, To: to}]
	return ok
}

// Targets lists the statuses reachable from status in declaration order.
func (t *TypeTable) Targets(status string) []string {
	var out []string
	for _, tr := range t.transitions {
		if tr.From == status {
			out = append(out, tr.To)
		}
	}
	return out
}

// Label returns the display label of status, falling back to the id.
func (t *TypeTable) Label(status string) string {
	if i, ok := t.index[status]; ok && t.statuses[i].Label != "" {
		return t.statuses[i].Label
	}
	return status
}

func (t *TypeTable) Statuses() []StatusDefinition {
	out := make([]StatusDefinition, len(t.statuses))
	copy(out, t.statuses)
	return out
}

func (t *TypeTable) Transitions() []Transition {
	out := make([]Transition, len(t.transitions))
	copy(out, t.transitions)
	return out
}

func newTypeTable(def TableDefinition) (*TypeTable, error) {
	if !def.EventType.IsValid() {
		return nil, NewInvalidTableError("unknown event type %q", def.EventType)
	}
	if len(def.Statuses) == 0 {
		return nil, NewInvalidTableError("%s: no statuses declared", def.EventType)
	}

	t := &TypeTable{
		eventType: def.EventType,
		statuses:  make([]StatusDefinition, len(def.Statuses)),
		index:     make(map[string]int, len(def.Statuses)),
		edges:     make(map[Transition]struct{}, len(def.Transitions)),
	}
	copy(t.statuses, def.Statuses)

	for i, s := range def.Statuses {
		switch {
		case s.ID == "":
			return nil, NewInvalidTableError("%s: status %d has an empty id", def.EventType, i)
		case s.ID == schedule.StatusOverdue:
			return nil, NewInvalidTableError("%s: %q is derived and cannot be declared", def.EventType, schedule.StatusOverdue)
		}
		if _, dup := t.index[s.ID]; dup {
			return nil, NewInvalidTableError("%s: duplicate status %q", def.EventType, s.ID)
		}
		t.index[s.ID] = i
	}

	for _, tr := range def.Transitions {
		if !t.HasStatus(tr.From) || !t.HasStatus(tr.To) {
			return nil, NewInvalidTableError("%s: edge %s->%s references an undeclared status", def.EventType, tr.From, tr.To)
		}
		if tr.From == tr.To {
			return nil, NewInvalidTableError("%s: self edge on %q", def.EventType, tr.From)
		}
		if _, dup := t.edges[tr]; dup {
			continue
		}
		t.edges[tr] = struct{}{}
		t.transitions = append(t.transitions, tr)
	}
	return t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Table
// ─────────────────────────────────────────────────────────────────────────────

// Table is the full set of state machines, one per event type.
type Table struct {
	types map[schedule.EventType]*TypeTable
}

// NewTable validates defs and builds a Table. Every event type must be
// defined exactly once.
func NewTable(defs []TableDefinition) (*Table, error) {
	t := &Table{types: make(map[schedule.EventType]*TypeTable, len(defs))}
	for _, def := range defs {
		if _, dup := t.types[def.EventType]; dup {
			return nil, NewInvalidTableError("%s: defined more than once", def.EventType)
		}
		tt, err := newTypeTable(def)
		if err != nil {
			return nil, err
		}
		t.types[def.EventType] = tt
	}
	for _, et := range schedule.EventTypes {
		if _, ok := t.types[et]; !ok {
			return nil, NewInvalidTableError("%s: no table defined", et)
		}
	}
	return t, nil
}

// For returns the state machine of eventType.
func (t *Table) For(eventType schedule.EventType) (*TypeTable, bool) {
	tt, ok := t.types[eventType]
	return tt, ok
}

// InitialStatuses maps each event type to its generation status.
func (t *Table) InitialStatuses() map[schedule.EventType]string {
	out := make(map[schedule.EventType]string, len(t.types))
	for et, tt := range t.types {
		out[et] = tt.InitialStatus()
	}
	return out
}

// Definitions returns the table in raw form, ordered by event type rank.
func (t *Table) Definitions() []TableDefinition {
	out := make([]TableDefinition, 0, len(t.types))
	for et, tt := range t.types {
		out = append(out, TableDefinition{EventType: et, Statuses: tt.Statuses(), Transitions: tt.Transitions()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventType.Rank() < out[j].EventType.Rank() })
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// YAML
// ─────────────────────────────────────────────────────────────────────────────

type yamlTable struct {
	Statuses    []StatusDefinition `yaml:"statuses"`
	Transitions []Transition       `yaml:"transitions"`
}

// ParseDefinitions decodes a YAML document keyed by event type.
func ParseDefinitions(data []byte) ([]TableDefinition, error) {
	var raw map[string]yamlTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, NewInvalidTableError("decode tables: %v", err)
	}

	defs := make([]TableDefinition, 0, len(raw))
	for key, rt := range raw {
		et, ok := schedule.ParseEventType(key)
		if !ok {
			return nil, NewInvalidTableError("unknown event type %q", key)
		}
		defs = append(defs, TableDefinition{EventType: et, Statuses: rt.Statuses, Transitions: rt.Transitions})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].EventType.Rank() < defs[j].EventType.Rank() })
	return defs, nil
}

// DefaultDefinitions returns the tables shipped with the engine.
func DefaultDefinitions() []TableDefinition {
	defs, err := ParseDefinitions(defaultTablesYAML)
	if err != nil {
		panic("lifecycle: embedded default tables are invalid: " + err.Error())
	}
	return defs
}

// DefaultTable builds a Table from DefaultDefinitions.
func DefaultTable() *Table {
	t, err := NewTable(DefaultDefinitions())
	if err != nil {
		panic("lifecycle: embedded default tables are invalid: " + err.Error())
	}
	return t
}
