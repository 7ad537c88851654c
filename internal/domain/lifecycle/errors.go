package lifecycle

import (
	"fmt"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// NewInvalidTransitionError reports a status change with no edge in the
// event type's table. The detail names both statuses for diagnostics.
func NewInvalidTransitionError(eventType schedule.EventType, current, attempted string) *errors.AppError {
	return errors.New(errors.ErrCodeLifecycleInvalidTransition, "status transition not permitted").
		WithDetail(fmt.Sprintf("eventType=%s current=%s attempted=%s", eventType, current, attempted))
}

// NewInvalidTableError reports a malformed status table.
func NewInvalidTableError(format string, args ...interface{}) *errors.AppError {
	return errors.Newf(errors.ErrCodeLifecycleInvalidTable, "invalid status table: "+format, args...)
}

// NewUnknownEventTypeError reports an event whose type has no table.
func NewUnknownEventTypeError(eventType schedule.EventType) *errors.AppError {
	return errors.New(errors.ErrCodeLifecycleUnknownEventType, "no status table for event type").
		WithDetail("eventType=" + string(eventType))
}

// IsInvalidTransition reports whether err rejects a status change.
func IsInvalidTransition(err error) bool {
	return errors.IsCode(err, errors.ErrCodeLifecycleInvalidTransition)
}

// IsInvalidTable reports whether err rejects a status table.
func IsInvalidTable(err error) bool {
	return errors.IsCode(err, errors.ErrCodeLifecycleInvalidTable)
}
