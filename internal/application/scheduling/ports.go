package scheduling

import (
	"context"
	"time"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// Topics the service publishes to.
const (
	TopicEventsGenerated    = "contract.events.generated"
	TopicEventsTransitioned = "contract.events.transitioned"
	TopicEventsOverdue      = "contract.events.overdue"
)

// ---------------------------------------------------------------------------
// Port interfaces
// ---------------------------------------------------------------------------

// CachePort abstracts the view cache. A miss is reported as a NotFound error.
type CachePort interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// EventPublisher abstracts asynchronous event emission.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, payload interface{}) error
}

// IdempotencyStore remembers results by idempotency key across processes.
type IdempotencyStore interface {
	Load(ctx context.Context, scope, key string, dest interface{}) error
	Save(ctx context.Context, scope, key string, result interface{}, ttl time.Duration) error
}

// OverdueStore holds the result of the latest overdue sweep.
type OverdueStore interface {
	Replace(ctx context.Context, snap schedule.OverdueSnapshot) error
	Latest(ctx context.Context, limit int) (schedule.OverdueSnapshot, error)
}

// Metrics records what the service did.
type Metrics interface {
	ObserveGeneration(paymentMode string, eventCounts map[string]int, d time.Duration, err error)
	ObserveTransition(eventType, outcome string, d time.Duration)
	SetOverdue(byType map[string]int)
	CacheAccessed(cache string, hit bool)
	Published(topic string, err error)
	TicketIngested(err error)
}

// ---------------------------------------------------------------------------
// Defaults used when a port is not wired
// ---------------------------------------------------------------------------

type nopCache struct{}

func (nopCache) Get(context.Context, string, interface{}) error {
	return errors.NotFound("cache disabled")
}
func (nopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (nopCache) Delete(context.Context, ...string) error                       { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

type nopIdempotency struct{}

func (nopIdempotency) Load(context.Context, string, string, interface{}) error {
	return errors.NotFound("idempotency store disabled")
}
func (nopIdempotency) Save(context.Context, string, string, interface{}, time.Duration) error {
	return nil
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) ObserveGeneration(string, map[string]int, time.Duration, error) {}
func (NopMetrics) ObserveTransition(string, string, time.Duration)                {}
func (NopMetrics) SetOverdue(map[string]int)                                      {}
func (NopMetrics) CacheAccessed(string, bool)                                     {}
func (NopMetrics) Published(string, error)                                        {}
func (NopMetrics) TicketIngested(error)                                           {}
