package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Idempotency results
// ─────────────────────────────────────────────────────────────────────────────

// IdempotencyStore remembers the result of a request by its idempotency key
// so a retry from any replica replays the first answer.
type IdempotencyStore struct {
	cache *Cache
}

func NewIdempotencyStore(cache *Cache) *IdempotencyStore {
	return &IdempotencyStore{cache: cache}
}

func idempotencyKey(scope, key string) string {
	return "idempotency:" + scope + ":" + key
}

// Load decodes a stored result into dest; ErrCacheMiss when none exists.
func (s *IdempotencyStore) Load(ctx context.Context, scope, key string, dest interface{}) error {
	return s.cache.Get(ctx, idempotencyKey(scope, key), dest)
}

func (s *IdempotencyStore) Save(ctx context.Context, scope, key string, result interface{}, ttl time.Duration) error {
	return s.cache.Set(ctx, idempotencyKey(scope, key), result, ttl)
}

// ─────────────────────────────────────────────────────────────────────────────
// Overdue snapshot
// ─────────────────────────────────────────────────────────────────────────────

// OverdueStore holds the latest overdue sweep: a sorted set of event ids
// scored by scheduled date and a hash of the event bodies.
type OverdueStore struct {
	client *Client
}

func NewOverdueStore(client *Client) *OverdueStore {
	return &OverdueStore{client: client}
}

func (s *OverdueStore) keys() (index, bodies, asOf string) {
	return s.client.Key("overdue", "index"), s.client.Key("overdue", "events"), s.client.Key("overdue", "as_of")
}

// Replace swaps the snapshot in one MULTI/EXEC block.
func (s *OverdueStore) Replace(ctx context.Context, snap schedule.OverdueSnapshot) error {
	rdb, err := s.client.Universal()
	if err != nil {
		return err
	}
	index, bodies, asOf := s.keys()

	members := make([]redis.Z, 0, len(snap.Events))
	fields := make(map[string]interface{}, len(snap.Events))
	for _, e := range snap.Events {
		data, err := json.Marshal(e)
		if err != nil {
			return ErrSerializationFailed.WithCause(err)
		}
		members = append(members, redis.Z{Score: float64(e.ScheduledDate.Time().Unix()), Member: e.ID})
		fields[e.ID] = data
	}

	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, index, bodies)
		if len(members) > 0 {
			pipe.ZAdd(ctx, index, members...)
			pipe.HSet(ctx, bodies, fields)
		}
		pipe.Set(ctx, asOf, snap.AsOf.String(), 0)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "store overdue snapshot")
	}
	return nil
}

// Latest returns up to limit events of the last snapshot, oldest first.
// Before any sweep it returns an empty snapshot with a zero AsOf.
func (s *OverdueStore) Latest(ctx context.Context, limit int) (schedule.OverdueSnapshot, error) {
	var snap schedule.OverdueSnapshot
	rdb, err := s.client.Universal()
	if err != nil {
		return snap, err
	}
	index, bodies, asOf := s.keys()

	raw, err := rdb.Get(ctx, asOf).Result()
	if stderrors.Is(err, redis.Nil) {
		return snap, nil
	}
	if err != nil {
		return snap, errors.Wrap(err, errors.ErrCodeCacheError, "read overdue snapshot")
	}
	if snap.AsOf, err = schedule.ParseDate(raw); err != nil {
		return snap, ErrSerializationFailed.WithCause(err)
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := rdb.ZRange(ctx, index, 0, stop).Result()
	if err != nil {
		return snap, errors.Wrap(err, errors.ErrCodeCacheError, "read overdue index")
	}
	if len(ids) == 0 {
		return snap, nil
	}

	values, err := rdb.HMGet(ctx, bodies, ids...).Result()
	if err != nil {
		return snap, errors.Wrap(err, errors.ErrCodeCacheError, "read overdue events")
	}
	snap.Events = make([]schedule.ContractEvent, 0, len(values))
	for _, v := range values {
		body, ok := v.(string)
		if !ok {
			continue
		}
		var e schedule.ContractEvent
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return snap, ErrSerializationFailed.WithCause(err)
		}
		snap.Events = append(snap.Events, e)
	}
	return snap, nil
}
