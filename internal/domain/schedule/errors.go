package schedule

import (
	"fmt"

	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// NewConfigurationError reports malformed ContractTerms.
func NewConfigurationError(format string, args ...interface{}) *errors.AppError {
	return errors.Newf(errors.ErrCodeScheduleConfiguration, format, args...)
}

// NewEventNotFoundError reports an unknown event id.
func NewEventNotFoundError(eventID string) *errors.AppError {
	return errors.New(errors.ErrCodeScheduleEventNotFound, "contract event not found").
		WithDetail("eventId=" + eventID)
}

// NewVersionConflictError reports an optimistic-concurrency failure. actual
// is -1 when the store cannot tell which version won.
func NewVersionConflictError(eventID string, expected, actual int) *errors.AppError {
	detail := fmt.Sprintf("eventId=%s expectedVersion=%d", eventID, expected)
	if actual >= 0 {
		detail += fmt.Sprintf(" currentVersion=%d", actual)
	}
	return errors.New(errors.ErrCodeLifecycleVersionConflict, "event was modified concurrently; reload and retry").
		WithDetail(detail)
}

// NewScheduleExistsError reports a second bulk insert for the same events.
func NewScheduleExistsError(contractID string) *errors.AppError {
	return errors.New(errors.ErrCodeScheduleAlreadyExists, "schedule already generated for contract").
		WithDetail("contractId=" + contractID)
}

// IsConfigurationError reports whether err rejects ContractTerms.
func IsConfigurationError(err error) bool {
	return errors.IsCode(err, errors.ErrCodeScheduleConfiguration)
}

// IsVersionConflict reports whether err is an optimistic-concurrency failure.
func IsVersionConflict(err error) bool {
	return errors.IsCode(err, errors.ErrCodeLifecycleVersionConflict)
}
