package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal", errors.CodeInternal, "unexpected failure"},
		{"configuration", errors.ErrCodeScheduleConfiguration, "durationValue must be positive"},
		{"conflict", errors.ErrCodeLifecycleVersionConflict, "stale version"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.ErrCodeScheduleConfiguration, "line %s: customCycleDays required", "L1")
	assert.Equal(t, "line L1: customCycleDays required", ae.Message)
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection refused")
	wrapped := errors.Wrap(root, errors.ErrCodeDatabaseError, "insert failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.ErrCodeDatabaseError, wrapped.Code)
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeLifecycleInvalidTransition, "not permitted")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")

	assert.Equal(t, errors.ErrCodeLifecycleInvalidTransition, outer.Code)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeNotFound, "missing")
	outer := errors.Wrap(inner, errors.CodeInternal, "unexpected")

	assert.Equal(t, errors.CodeInternal, outer.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error()
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[SCH_002] contract event not found",
		errors.New(errors.ErrCodeScheduleEventNotFound, "contract event not found").Error())

	ae := errors.New(errors.ErrCodeLifecycleInvalidTransition, "transition not permitted").
		WithDetail("eventType=service current=completed attempted=scheduled")
	assert.Equal(t,
		"[LFC_001] transition not permitted: eventType=service current=completed attempted=scheduled",
		ae.Error())
}

// ─────────────────────────────────────────────────────────────────────────────
// WithDetail / WithCause
// ─────────────────────────────────────────────────────────────────────────────

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	original := errors.NotFound("event missing")
	detailed := original.WithDetail("id=e1")

	assert.Empty(t, original.Detail)
	assert.Equal(t, "id=e1", detailed.Detail)
	assert.Equal(t, original.Code, detailed.Code)
}

func TestWithCause_AttachesCause(t *testing.T) {
	t.Parallel()

	root := stderrors.New("driver: bad connection")
	ae := errors.New(errors.ErrCodeDatabaseError, "database error").WithCause(root)

	assert.True(t, stderrors.Is(ae, root))
}

func TestNilReceivers(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_NestedChain(t *testing.T) {
	t.Parallel()

	root := errors.New(errors.ErrCodeLifecycleVersionConflict, "stale")
	wrapped := fmt.Errorf("handler: %w", errors.Wrap(root, errors.CodeInternal, "service error"))

	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeLifecycleVersionConflict))
	assert.True(t, errors.IsCode(wrapped, errors.CodeInternal))
	assert.False(t, errors.IsCode(wrapped, errors.CodeNotFound))
	assert.False(t, errors.IsCode(nil, errors.CodeInternal))
}

func TestIsNotFoundAndIsConflict(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeScheduleEventNotFound, "x")))
	assert.False(t, errors.IsNotFound(stderrors.New("x")))

	assert.True(t, errors.IsConflict(errors.New(errors.ErrCodeLifecycleVersionConflict, "x")))
	assert.True(t, errors.IsConflict(errors.Conflict("x")))
	assert.False(t, errors.IsConflict(errors.Internal("x")))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(fmt.Errorf("x: %w", errors.InvalidParam("bad"))))
}

func TestAs_ExtractsAppError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("service: %w", errors.New(errors.ErrCodeScheduleConfiguration, "bad terms"))

	var ae *errors.AppError
	require.True(t, errors.As(wrapped, &ae))
	assert.Equal(t, errors.ErrCodeScheduleConfiguration, ae.Code)
}
