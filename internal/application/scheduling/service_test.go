package scheduling

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/lifecycle"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/database/memory"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/testutil"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string][]byte)} }

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[key]
	if !ok {
		return errors.NotFound("miss")
	}
	return json.Unmarshal(data, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.deletes++
	return nil
}

type mapIdempotency struct {
	cache *mapCache
}

func (m mapIdempotency) Load(ctx context.Context, scope, key string, dest interface{}) error {
	return m.cache.Get(ctx, scope+":"+key, dest)
}

func (m mapIdempotency) Save(ctx context.Context, scope, key string, result interface{}, ttl time.Duration) error {
	return m.cache.Set(ctx, scope+":"+key, result, ttl)
}

type recordingMetrics struct {
	mu          sync.Mutex
	generations []string
	eventCounts map[string]int
	transitions []string
	overdue     map[string]int
	cacheHits   int
	cacheMisses int
	published   []string
	tickets     []error
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{eventCounts: make(map[string]int)}
}

func (m *recordingMetrics) ObserveGeneration(mode string, counts map[string]int, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.generations = append(m.generations, mode+":"+outcome)
	for k, v := range counts {
		m.eventCounts[k] += v
	}
}

func (m *recordingMetrics) ObserveTransition(eventType, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, eventType+":"+outcome)
}

func (m *recordingMetrics) SetOverdue(byType map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overdue = byType
}

func (m *recordingMetrics) CacheAccessed(_ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

func (m *recordingMetrics) Published(topic string, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, topic)
}

func (m *recordingMetrics) TicketIngested(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = append(m.tickets, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixture
// ─────────────────────────────────────────────────────────────────────────────

var fixedNow = time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	events  *memory.EventStore
	tickets *memory.TicketStore
	overdue *memory.OverdueStore
	cache   *mapCache
	pub     *mockPublisher
	metrics *recordingMetrics
	log     *testutil.MockLogger
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		events:  memory.NewEventStore(),
		tickets: memory.NewTicketStore(),
		overdue: memory.NewOverdueStore(),
		cache:   newMapCache(),
		pub:     &mockPublisher{},
		metrics: newRecordingMetrics(),
		log:     testutil.NewMockLogger(),
	}
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	base := []Option{
		WithCache(f.cache),
		WithPublisher(f.pub),
		WithMetrics(f.metrics),
		WithOverdueStore(f.overdue),
		WithClock(func() time.Time { return fixedNow }),
	}
	svc, err := NewService(Dependencies{
		Events:    f.events,
		Overrides: f.events,
		Tickets:   f.tickets,
		Tables:    lifecycle.NewRegistry(nil, lifecycle.NewStaticStore(nil), f.log),
		Logger:    f.log,
	}, append(base, opts...)...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// Service events on Feb 5, Mar 5 and Apr 5 plus one prepaid billing event on
// Feb 5.
func testTerms() schedule.ContractTerms {
	return schedule.ContractTerms{
		ContractID:    "c-1",
		StartDate:     schedule.MustParseDate("2025-02-05"),
		DurationValue: 3,
		DurationUnit:  schedule.DurationMonths,
		SelectedLines: []schedule.Line{
			{ID: "L1", Kind: schedule.LineKindService, Quantity: 3, Cycle: schedule.CycleMonthly, UnitPrice: decimal.NewFromInt(1000)},
			{ID: "L2", Kind: schedule.LineKindService, Unlimited: true, UnitPrice: decimal.NewFromInt(10)},
		},
		PaymentMode: schedule.PaymentModePrepaid,
		GrandTotal:  decimal.NewFromInt(3000),
		Currency:    "USD",
	}
}

func (f *fixture) generate(t *testing.T) *GenerateResult {
	t.Helper()
	res, err := f.svc.GenerateSchedule(context.Background(), GenerateCommand{Terms: testTerms()})
	require.NoError(t, err)
	return res
}

func (f *fixture) eventOn(t *testing.T, date string, eventType schedule.EventType) schedule.ContractEvent {
	t.Helper()
	events, err := f.events.FindByContract(context.Background(), "c-1")
	require.NoError(t, err)
	for _, e := range events {
		if e.ScheduledDate.String() == date && e.EventType == eventType {
			return e
		}
	}
	t.Fatalf("no %s event on %s", eventType, date)
	return schedule.ContractEvent{}
}

func (f *fixture) transition(t *testing.T, id string, version int, to string) *lifecycle.TransitionResult {
	t.Helper()
	res, err := f.svc.Transition(context.Background(), lifecycle.TransitionRequest{EventID: id, ExpectedVersion: version, ToStatus: to})
	require.NoError(t, err)
	return res
}

// ─────────────────────────────────────────────────────────────────────────────
// Construction
// ─────────────────────────────────────────────────────────────────────────────

func TestNewService_RequiresDependencies(t *testing.T) {
	store := memory.NewEventStore()
	tables := lifecycle.NewRegistry(nil, lifecycle.NewStaticStore(nil), testutil.NewMockLogger())

	tests := []struct {
		name string
		deps Dependencies
	}{
		{"no events", Dependencies{Overrides: store, Tickets: memory.NewTicketStore(), Tables: tables}},
		{"no overrides", Dependencies{Events: store, Tickets: memory.NewTicketStore(), Tables: tables}},
		{"no tickets", Dependencies{Events: store, Overrides: store, Tables: tables}},
		{"no tables", Dependencies{Events: store, Overrides: store, Tickets: memory.NewTicketStore()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.deps)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInternal))
		})
	}

	svc, err := NewService(Dependencies{Events: store, Overrides: store, Tickets: memory.NewTicketStore(), Tables: tables})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), svc.config)
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{SweepLimit: 10}.withDefaults()
	assert.Equal(t, 10, c.SweepLimit)
	assert.Equal(t, 5*time.Minute, c.ViewCacheTTL)
	assert.Equal(t, 24*time.Hour, c.IdempotencyTTL)
}

// ─────────────────────────────────────────────────────────────────────────────
// GenerateSchedule
// ─────────────────────────────────────────────────────────────────────────────

func TestGenerateSchedule_StoresPublishesAndRecords(t *testing.T) {
	f := newFixture(t)
	res := f.generate(t)

	assert.Equal(t, "c-1", res.ContractID)
	require.Len(t, res.Events, 4)
	assert.Equal(t, 4, f.events.Len())
	assert.False(t, res.Replayed)
	require.Len(t, res.UnlimitedLines, 1)
	assert.Equal(t, "L2", res.UnlimitedLines[0].ID)
	assert.Equal(t, 3, res.Summary.ServiceCount)
	assert.True(t, res.Summary.TotalBillingAmount.Equal(decimal.NewFromInt(3000)))

	for _, e := range res.Events {
		switch e.EventType {
		case schedule.EventTypeService:
			assert.Equal(t, "scheduled", e.Status)
		case schedule.EventTypeBilling:
			assert.Equal(t, "pending", e.Status)
		}
		assert.Equal(t, 1, e.Version)
	}
	assert.True(t, res.Events[0].Overdue, "Feb 5 is before the fixed clock")

	f.pub.AssertCalled(t, "Publish", mock.Anything, TopicEventsGenerated, "c-1", mock.MatchedBy(func(p GeneratedPayload) bool {
		return p.EventCount == 4 && len(p.EventIDs) == 4 && p.PaymentMode == "prepaid"
	}))
	assert.Equal(t, []string{"prepaid:success"}, f.metrics.generations)
	assert.Equal(t, 3, f.metrics.eventCounts["service"])
	assert.Equal(t, 1, f.metrics.eventCounts["billing"])
}

func TestGenerateSchedule_InvalidTerms(t *testing.T) {
	f := newFixture(t)

	terms := testTerms()
	terms.DurationValue = 0
	_, err := f.svc.GenerateSchedule(context.Background(), GenerateCommand{Terms: terms})
	assert.True(t, schedule.IsConfigurationError(err))

	terms = testTerms()
	terms.ContractID = ""
	_, err = f.svc.GenerateSchedule(context.Background(), GenerateCommand{Terms: terms})
	assert.True(t, schedule.IsConfigurationError(err))

	assert.Zero(t, f.events.Len())
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, TopicEventsGenerated, mock.Anything, mock.Anything)
	assert.Equal(t, []string{"prepaid:failure"}, f.metrics.generations)
}

func TestGenerateSchedule_SecondRunWithoutKeyIsRejected(t *testing.T) {
	f := newFixture(t)
	f.generate(t)

	_, err := f.svc.GenerateSchedule(context.Background(), GenerateCommand{Terms: testTerms()})
	assert.True(t, errors.IsCode(err, errors.ErrCodeScheduleAlreadyExists))
	assert.Equal(t, 4, f.events.Len())
}

func TestGenerateSchedule_IdempotencyKeyReplays(t *testing.T) {
	store := mapIdempotency{cache: newMapCache()}
	f := newFixture(t, WithIdempotencyStore(store))
	cmd := GenerateCommand{Terms: testTerms(), IdempotencyKey: "req-1"}

	first, err := f.svc.GenerateSchedule(context.Background(), cmd)
	require.NoError(t, err)
	second, err := f.svc.GenerateSchedule(context.Background(), cmd)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	require.Len(t, second.Events, len(first.Events))
	assert.Equal(t, first.Events[0].ID, second.Events[0].ID)
	assert.Equal(t, 4, f.events.Len())
	f.pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestGenerateSchedule_ConcurrentDuplicatesShareOneRun(t *testing.T) {
	f := newFixture(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.pub.ExpectedCalls = nil
	f.pub.On("Publish", mock.Anything, TopicEventsGenerated, "c-1", mock.Anything).Run(func(mock.Arguments) {
		once.Do(func() { close(entered) })
		<-release
	}).Return(nil)

	cmd := GenerateCommand{Terms: testTerms(), IdempotencyKey: "dup"}
	results := make(chan error, 5)
	go func() {
		_, err := f.svc.GenerateSchedule(context.Background(), cmd)
		results <- err
	}()
	<-entered

	for i := 0; i < 4; i++ {
		go func() {
			_, err := f.svc.GenerateSchedule(context.Background(), cmd)
			results <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 5; i++ {
		assert.NoError(t, <-results)
	}
	assert.Equal(t, 4, f.events.Len())
	f.pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestGenerateSchedule_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.pub.ExpectedCalls = nil
	f.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New(errors.ErrCodeMessagingError, "broker down"))

	res, err := f.svc.GenerateSchedule(context.Background(), GenerateCommand{Terms: testTerms()})
	require.NoError(t, err)
	assert.Len(t, res.Events, 4)
	assert.True(t, f.log.HasMessage("warn", "event publish failed"))
}

func TestPreview_StoresNothing(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Preview(testTerms())
	require.NoError(t, err)
	assert.Len(t, res.Events, 4)
	assert.Zero(t, f.events.Len())
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
