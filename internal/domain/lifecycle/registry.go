package lifecycle

import (
	"context"
	"sync/atomic"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
)

// TableStore loads raw table definitions from a configuration source.
type TableStore interface {
	LoadDefinitions(ctx context.Context) ([]TableDefinition, error)
}

// TablesProvider exposes the currently active Table.
type TablesProvider interface {
	Current() *Table
}

// StaticStore serves a fixed set of definitions, typically read from the
// config file.
type StaticStore struct {
	defs []TableDefinition
}

func NewStaticStore(defs []TableDefinition) *StaticStore {
	return &StaticStore{defs: defs}
}

func (s *StaticStore) LoadDefinitions(_ context.Context) ([]TableDefinition, error) {
	out := make([]TableDefinition, len(s.defs))
	copy(out, s.defs)
	return out, nil
}

// Registry holds the active Table and swaps it whole on reload. Readers
// never observe a partially applied table.
type Registry struct {
	store   TableStore
	current atomic.Pointer[Table]
	loads   atomic.Int64
	logger  logging.Logger
}

// NewRegistry creates a Registry serving initial until the first Load.
func NewRegistry(initial *Table, store TableStore, logger logging.Logger) *Registry {
	if initial == nil {
		initial = DefaultTable()
	}
	r := &Registry{store: store, logger: logger.Named("lifecycle.registry")}
	r.current.Store(initial)
	return r
}

func (r *Registry) Current() *Table { return r.current.Load() }

// Generation counts successful loads.
func (r *Registry) Generation() int64 { return r.loads.Load() }

// Load reads definitions from the store and activates them. A store or
// validation failure leaves the previous table active.
func (r *Registry) Load(ctx context.Context) error {
	defs, err := r.store.LoadDefinitions(ctx)
	if err != nil {
		r.logger.Warn("status table load failed; keeping previous tables", logging.Err(err))
		return err
	}
	return r.Swap(defs)
}

// Swap validates defs and activates them.
func (r *Registry) Swap(defs []TableDefinition) error {
	t, err := NewTable(defs)
	if err != nil {
		r.logger.Warn("status table rejected; keeping previous tables", logging.Err(err))
		return err
	}
	r.current.Store(t)
	gen := r.loads.Add(1)
	r.logger.Info("status tables activated", logging.Int64("generation", gen), logging.Int("event_types", len(defs)))
	return nil
}
