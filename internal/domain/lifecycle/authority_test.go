package lifecycle_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/memory"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/testutil"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

type staticTables struct{ t *lifecycle.Table }

func (s staticTables) Current() *lifecycle.Table { return s.t }

func storedEvent(id string, et schedule.EventType, status string, version int) schedule.ContractEvent {
	d := schedule.MustParseDate("2025-02-05")
	return schedule.ContractEvent{
		ID:            id,
		ContractID:    "c-1",
		LineID:        "L1",
		EventType:     et,
		ScheduledDate: d,
		OriginalDate:  d,
		Status:        status,
		Version:       version,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Authority suite over the in-memory store
// ─────────────────────────────────────────────────────────────────────────────

type AuthoritySuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.EventStore
	authority *lifecycle.Authority
}

func (s *AuthoritySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewEventStore()
	s.authority = lifecycle.NewAuthority(s.store, staticTables{lifecycle.DefaultTable()}, testutil.NewMockLogger())
}

func (s *AuthoritySuite) insert(events ...schedule.ContractEvent) {
	s.Require().NoError(s.store.InsertBatch(s.ctx, events))
}

func (s *AuthoritySuite) transition(id string, version int, to string) (*lifecycle.TransitionResult, error) {
	return s.authority.Transition(s.ctx, lifecycle.TransitionRequest{EventID: id, ExpectedVersion: version, ToStatus: to})
}

func (s *AuthoritySuite) TestServiceWalkThrough() {
	s.insert(storedEvent("e1", schedule.EventTypeService, "scheduled", 1))

	res, err := s.transition("e1", 1, "in_progress")
	s.Require().NoError(err)
	s.Equal(2, res.NewVersion)
	s.Equal("scheduled", res.PreviousStatus)

	res, err = s.transition("e1", 2, "completed")
	s.Require().NoError(err)
	s.Equal(3, res.NewVersion)
	s.Equal("completed", res.Event.Status)

	_, err = s.transition("e1", 3, "scheduled")
	s.True(lifecycle.IsInvalidTransition(err))
	var appErr *errors.AppError
	s.Require().True(errors.As(err, &appErr))
	s.Contains(appErr.Detail, "current=completed")
	s.Contains(appErr.Detail, "attempted=scheduled")

	stored, err := s.store.FindByID(s.ctx, "e1")
	s.Require().NoError(err)
	s.Equal(3, stored.Version)
	s.Equal("completed", stored.Status)
}

func (s *AuthoritySuite) TestStaleCallerGetsConflict() {
	s.insert(storedEvent("e2", schedule.EventTypeService, "in_progress", 4))

	res, err := s.transition("e2", 4, "completed")
	s.Require().NoError(err)
	s.Equal(5, res.NewVersion)

	_, err = s.transition("e2", 4, "cancelled")
	s.True(schedule.IsVersionConflict(err))

	stored, _ := s.store.FindByID(s.ctx, "e2")
	s.Equal("completed", stored.Status)
	s.Equal(5, stored.Version)
}

func (s *AuthoritySuite) TestConflictReportedBeforeInvalidEdge() {
	s.insert(storedEvent("e3", schedule.EventTypeService, "completed", 7))

	// stale and illegal: the caller must be told to reload
	_, err := s.transition("e3", 6, "scheduled")
	s.True(schedule.IsVersionConflict(err))

	// fresh but illegal
	_, err = s.transition("e3", 7, "scheduled")
	s.True(lifecycle.IsInvalidTransition(err))
}

func (s *AuthoritySuite) TestOverdueIsNeverATarget() {
	s.insert(storedEvent("e4", schedule.EventTypeBilling, "pending", 1))

	_, err := s.transition("e4", 1, schedule.StatusOverdue)
	s.True(lifecycle.IsInvalidTransition(err))
}

func (s *AuthoritySuite) TestPatchFieldsWrittenWithStatus() {
	s.insert(storedEvent("e5", schedule.EventTypeSparePart, "scheduled", 1))
	who, note := "tech-3", "courier booked"

	res, err := s.authority.Transition(s.ctx, lifecycle.TransitionRequest{
		EventID: "e5", ExpectedVersion: 1, ToStatus: "dispatched", AssignedTo: &who, Notes: &note,
	})
	s.Require().NoError(err)
	s.Require().NotNil(res.Event.AssignedTo)
	s.Equal("tech-3", *res.Event.AssignedTo)
	s.Equal("courier booked", *res.Event.Notes)
}

func (s *AuthoritySuite) TestRequestValidation() {
	_, err := s.transition("", 1, "completed")
	s.True(errors.IsCode(err, errors.CodeInvalidParam))

	_, err = s.transition("e1", 1, "")
	s.True(errors.IsCode(err, errors.CodeInvalidParam))

	_, err = s.transition("missing", 1, "completed")
	s.True(errors.IsNotFound(err))
}

func (s *AuthoritySuite) TestTargets() {
	e := storedEvent("e6", schedule.EventTypeService, "in_progress", 1)
	s.Equal([]string{"on_hold", "completed", "cancelled"}, s.authority.Targets(e))

	e.EventType = "meeting"
	s.Nil(s.authority.Targets(e))
}

func (s *AuthoritySuite) TestConcurrentSameVersionExactlyOneWins() {
	for round := 0; round < 50; round++ {
		id := fmt.Sprintf("race-%d", round)
		s.insert(storedEvent(id, schedule.EventTypeService, "in_progress", 4))

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
		)
		start := make(chan struct{})
		for _, to := range []string{"completed", "cancelled"} {
			wg.Add(1)
			go func(to string) {
				defer wg.Done()
				<-start
				_, err := s.transition(id, 4, to)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case schedule.IsVersionConflict(err):
					conflicts++
				}
			}(to)
		}
		close(start)
		wg.Wait()

		s.Equal(1, wins, "round %d", round)
		s.Equal(1, conflicts, "round %d", round)
		stored, _ := s.store.FindByID(s.ctx, id)
		s.Equal(5, stored.Version)
	}
}

func TestAuthoritySuite(t *testing.T) {
	suite.Run(t, new(AuthoritySuite))
}

// ─────────────────────────────────────────────────────────────────────────────
// Call-order checks with a mocked repository
// ─────────────────────────────────────────────────────────────────────────────

type mockEventRepository struct {
	mock.Mock
}

func (m *mockEventRepository) InsertBatch(ctx context.Context, events []schedule.ContractEvent) error {
	return m.Called(ctx, events).Error(0)
}

func (m *mockEventRepository) FindByID(ctx context.Context, id string) (*schedule.ContractEvent, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*schedule.ContractEvent)
	return e, args.Error(1)
}

func (m *mockEventRepository) FindByContract(ctx context.Context, contractID string, opts ...schedule.QueryOption) ([]schedule.ContractEvent, error) {
	args := m.Called(ctx, contractID)
	events, _ := args.Get(0).([]schedule.ContractEvent)
	return events, args.Error(1)
}

func (m *mockEventRepository) UpdateStatus(ctx context.Context, id string, expectedVersion int, patch schedule.StatusPatch) (*schedule.ContractEvent, error) {
	args := m.Called(ctx, id, expectedVersion, patch)
	e, _ := args.Get(0).(*schedule.ContractEvent)
	return e, args.Error(1)
}

func (m *mockEventRepository) FindOverdue(ctx context.Context, today schedule.Date, limit int) ([]schedule.ContractEvent, error) {
	args := m.Called(ctx, today, limit)
	events, _ := args.Get(0).([]schedule.ContractEvent)
	return events, args.Error(1)
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	released int
	err      error
}

func (l *fakeLocker) Lock(_ context.Context, eventID string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, eventID)
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

func TestAuthority_RejectionsNeverWrite(t *testing.T) {
	tests := []struct {
		name    string
		stored  schedule.ContractEvent
		version int
		to      string
		check   func(error) bool
	}{
		{"stale version", storedEvent("e", schedule.EventTypeService, "scheduled", 3), 2, "in_progress", schedule.IsVersionConflict},
		{"no edge", storedEvent("e", schedule.EventTypeService, "scheduled", 3), 3, "completed", lifecycle.IsInvalidTransition},
		{"unknown type", storedEvent("e", "meeting", "scheduled", 3), 3, "completed", func(err error) bool {
			return errors.IsCode(err, errors.ErrCodeLifecycleUnknownEventType)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockEventRepository)
			stored := tt.stored
			repo.On("FindByID", mock.Anything, "e").Return(&stored, nil)

			a := lifecycle.NewAuthority(repo, staticTables{lifecycle.DefaultTable()}, testutil.NewMockLogger())
			_, err := a.Transition(context.Background(), lifecycle.TransitionRequest{EventID: "e", ExpectedVersion: tt.version, ToStatus: tt.to})

			require.Error(t, err)
			assert.True(t, tt.check(err))
			repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAuthority_LostRaceSurfacesConflict(t *testing.T) {
	repo := new(mockEventRepository)
	stored := storedEvent("e", schedule.EventTypeBilling, "pending", 2)
	repo.On("FindByID", mock.Anything, "e").Return(&stored, nil)
	repo.On("UpdateStatus", mock.Anything, "e", 2, schedule.StatusPatch{Status: "invoiced"}).
		Return(nil, schedule.NewVersionConflictError("e", 2, -1)).Once()

	a := lifecycle.NewAuthority(repo, staticTables{lifecycle.DefaultTable()}, testutil.NewMockLogger())
	_, err := a.Transition(context.Background(), lifecycle.TransitionRequest{EventID: "e", ExpectedVersion: 2, ToStatus: "invoiced"})

	assert.True(t, schedule.IsVersionConflict(err))
	repo.AssertNumberOfCalls(t, "UpdateStatus", 1)
}

func TestAuthority_WithLocker(t *testing.T) {
	store := memory.NewEventStore()
	require.NoError(t, store.InsertBatch(context.Background(), []schedule.ContractEvent{
		storedEvent("e", schedule.EventTypeBilling, "pending", 1),
	}))
	locker := &fakeLocker{}

	a := lifecycle.NewAuthority(store, staticTables{lifecycle.DefaultTable()}, testutil.NewMockLogger(), lifecycle.WithLocker(locker))
	_, err := a.Transition(context.Background(), lifecycle.TransitionRequest{EventID: "e", ExpectedVersion: 1, ToStatus: "invoiced"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, locker.locked)
	assert.Equal(t, 1, locker.released)

	locker.err = errors.New(errors.ErrCodeCacheError, "redis unavailable")
	_, err = a.Transition(context.Background(), lifecycle.TransitionRequest{EventID: "e", ExpectedVersion: 2, ToStatus: "completed"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestAuthority_LockContentionIsConflict(t *testing.T) {
	store := memory.NewEventStore()
	require.NoError(t, store.InsertBatch(context.Background(), []schedule.ContractEvent{
		storedEvent("e", schedule.EventTypeBilling, "pending", 1),
	}))
	locker := &fakeLocker{err: errors.New(errors.ErrCodeConflict, "lock is held by another owner")}

	a := lifecycle.NewAuthority(store, staticTables{lifecycle.DefaultTable()}, testutil.NewMockLogger(), lifecycle.WithLocker(locker))
	_, err := a.Transition(context.Background(), lifecycle.TransitionRequest{EventID: "e", ExpectedVersion: 1, ToStatus: "invoiced"})

	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.Equal(t, errors.ErrCodeConflict, errors.GetCode(err))
	assert.Equal(t, http.StatusConflict, errors.HTTPStatusForCode(errors.GetCode(err)))

	stored, err := store.FindByID(context.Background(), "e")
	require.NoError(t, err)
	assert.Equal(t, "pending", stored.Status)
}
