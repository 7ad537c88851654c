package lifecycle

import (
	"context"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// Locker serializes work on a single event across processes. The returned
// release func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, eventID string) (release func(), err error)
}

// TransitionRequest asks to move an event to ToStatus. AssignedTo and Notes
// are written in the same update when non-nil.
type TransitionRequest struct {
	EventID         string  `json:"eventId"`
	ExpectedVersion int     `json:"expectedVersion"`
	ToStatus        string  `json:"toStatus"`
	AssignedTo      *string `json:"assignedTo,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// TransitionResult is the outcome of an accepted transition.
type TransitionResult struct {
	Event          schedule.ContractEvent `json:"event"`
	PreviousStatus string                 `json:"previousStatus"`
	NewVersion     int                    `json:"newVersion"`
}

// Authority is the only writer of event statuses.
type Authority struct {
	repo   schedule.EventRepository
	tables TablesProvider
	locker Locker
	logger logging.Logger
}

// AuthorityOption configures an Authority.
type AuthorityOption func(*Authority)

// WithLocker makes the Authority hold a per-event lock around each
// transition. Only needed when the repository cannot compare-and-swap.
func WithLocker(l Locker) AuthorityOption {
	return func(a *Authority) { a.locker = l }
}

func NewAuthority(repo schedule.EventRepository, tables TablesProvider, logger logging.Logger, opts ...AuthorityOption) *Authority {
	a := &Authority{repo: repo, tables: tables, logger: logger.Named("lifecycle.authority")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Transition applies req. Checks run in a fixed order and stop at the first
// failure: the event must exist, its version must equal ExpectedVersion, and
// (status, ToStatus) must be an edge of its type's table. The write itself is
// a compare-and-swap on the version, so a caller racing past the version
// check still loses with a conflict. Failures are never retried here.
func (a *Authority) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if req.EventID == "" {
		return nil, errors.InvalidParam("eventId is required")
	}
	if req.ToStatus == "" {
		return nil, errors.InvalidParam("toStatus is required")
	}

	if a.locker != nil {
		release, err := a.locker.Lock(ctx, req.EventID)
		if err != nil {
			// contention stays a conflict so callers can retry
			if errors.IsConflict(err) {
				return nil, errors.Wrap(err, errors.CodeUnknown, "event is locked by another caller")
			}
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "acquire event lock")
		}
		defer release()
	}

	current, err := a.repo.FindByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	log := a.logger.With(logging.EventID(current.ID), logging.EventType(string(current.EventType)))

	if current.Version != req.ExpectedVersion {
		log.Info("transition rejected: stale version",
			logging.Version(current.Version), logging.Int("expected_version", req.ExpectedVersion))
		return nil, schedule.NewVersionConflictError(current.ID, req.ExpectedVersion, current.Version)
	}

	if err := a.check(*current, req.ToStatus); err != nil {
		log.Info("transition rejected: no edge",
			logging.Status(current.Status), logging.String("to_status", req.ToStatus))
		return nil, err
	}

	updated, err := a.repo.UpdateStatus(ctx, current.ID, req.ExpectedVersion, schedule.StatusPatch{
		Status:     req.ToStatus,
		AssignedTo: req.AssignedTo,
		Notes:      req.Notes,
	})
	if err != nil {
		return nil, err
	}

	log.Info("event transitioned",
		logging.String("from_status", current.Status), logging.Status(updated.Status), logging.Version(updated.Version))
	return &TransitionResult{Event: *updated, PreviousStatus: current.Status, NewVersion: updated.Version}, nil
}

// Targets lists the statuses e may move to under the active table.
func (a *Authority) Targets(e schedule.ContractEvent) []string {
	tt, ok := a.tables.Current().For(e.EventType)
	if !ok {
		return nil
	}
	return tt.Targets(e.Status)
}

func (a *Authority) check(e schedule.ContractEvent, to string) error {
	if to == schedule.StatusOverdue {
		return NewInvalidTransitionError(e.EventType, e.Status, to)
	}
	tt, ok := a.tables.Current().For(e.EventType)
	if !ok {
		return NewUnknownEventTypeError(e.EventType)
	}
	if !tt.Allows(e.Status, to) {
		return NewInvalidTransitionError(e.EventType, e.Status, to)
	}
	return nil
}
