package schedule

import "context"

// QueryOptions filters event queries.
type QueryOptions struct {
	From       Date
	To         Date
	EventTypes []EventType
	Limit      int
}

// QueryOption is a functional option for event queries.
type QueryOption func(*QueryOptions)

// WithDateRange restricts results to scheduled dates in [from, to]. A zero
// bound is open.
func WithDateRange(from, to Date) QueryOption {
	return func(o *QueryOptions) {
		o.From = from
		o.To = to
	}
}

// WithEventTypes restricts results to the given types.
func WithEventTypes(types ...EventType) QueryOption {
	return func(o *QueryOptions) {
		o.EventTypes = append(o.EventTypes, types...)
	}
}

// WithLimit caps the number of results. Zero means unlimited.
func WithLimit(limit int) QueryOption {
	return func(o *QueryOptions) {
		o.Limit = limit
	}
}

// ApplyQueryOptions folds opts into a QueryOptions.
func ApplyQueryOptions(opts ...QueryOption) QueryOptions {
	var options QueryOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Limit < 0 {
		options.Limit = 0
	}
	return options
}

// Matches reports whether e passes the filters, Limit aside.
func (o QueryOptions) Matches(e ContractEvent) bool {
	if !o.From.IsZero() && e.ScheduledDate.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && e.ScheduledDate.After(o.To) {
		return false
	}
	if len(o.EventTypes) == 0 {
		return true
	}
	for _, t := range o.EventTypes {
		if e.EventType == t {
			return true
		}
	}
	return false
}

// StatusPatch is the mutation written by a status transition. Nil pointers
// leave the field unchanged.
type StatusPatch struct {
	Status     string
	AssignedTo *string
	Notes      *string
}

// EventRepository persists ContractEvents. Reads return events with date
// overrides already applied.
type EventRepository interface {
	// InsertBatch stores a freshly generated schedule atomically.
	InsertBatch(ctx context.Context, events []ContractEvent) error
	FindByID(ctx context.Context, id string) (*ContractEvent, error)
	// FindByContract returns the contract's events in Sort order.
	FindByContract(ctx context.Context, contractID string, opts ...QueryOption) ([]ContractEvent, error)
	// UpdateStatus applies patch only if the stored version equals
	// expectedVersion, bumping the version by one. It is a single
	// compare-and-swap; a lost race yields a version conflict error.
	UpdateStatus(ctx context.Context, id string, expectedVersion int, patch StatusPatch) (*ContractEvent, error)
	// FindOverdue returns non-terminal events scheduled before today.
	FindOverdue(ctx context.Context, today Date, limit int) ([]ContractEvent, error)
}

// OverrideRepository stores the sparse date override map.
type OverrideRepository interface {
	SetOverride(ctx context.Context, eventID string, date Date) error
	ClearOverride(ctx context.Context, eventID string) error
}

// TicketRepository reads externally recorded service tickets.
type TicketRepository interface {
	FindByContract(ctx context.Context, contractID string) ([]ServiceTicket, error)
	Upsert(ctx context.Context, ticket ServiceTicket) error
}
