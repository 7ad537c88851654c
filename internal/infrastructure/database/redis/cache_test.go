package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

type cachedSummary struct {
	ContractID  string `json:"contractId"`
	TotalEvents int    `json:"totalEvents"`
}

// ─────────────────────────────────────────────────────────────────────────────
// redismock
// ─────────────────────────────────────────────────────────────────────────────

type CacheMockSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache *Cache
}

func (s *CacheMockSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	client := NewClientFromUniversal(db, "test", time.Minute, logging.NewNopLogger())
	s.cache = NewCache(client, logging.NewNopLogger(), WithJitter(0))
}

func (s *CacheMockSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CacheMockSuite) TestGet_Hit() {
	want := cachedSummary{ContractID: "c-1", TotalEvents: 4}
	data, _ := json.Marshal(want)
	s.mock.ExpectGet("test:summary:c-1").SetVal(string(data))

	var got cachedSummary
	s.Require().NoError(s.cache.Get(context.Background(), "summary:c-1", &got))
	s.Equal(want, got)
}

func (s *CacheMockSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:summary:c-1").RedisNil()

	var got cachedSummary
	err := s.cache.Get(context.Background(), "summary:c-1", &got)
	s.True(IsCacheMiss(err))
}

func (s *CacheMockSuite) TestGet_NullMarkerIsMiss() {
	s.mock.ExpectGet("test:summary:c-1").SetVal(nullMarker)

	var got cachedSummary
	s.True(IsCacheMiss(s.cache.Get(context.Background(), "summary:c-1", &got)))
}

func (s *CacheMockSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:summary:c-1").SetErr(stderrors.New("connection reset"))

	var got cachedSummary
	err := s.cache.Get(context.Background(), "summary:c-1", &got)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
	s.False(IsCacheMiss(err))
}

func (s *CacheMockSuite) TestGet_CorruptValue() {
	s.mock.ExpectGet("test:summary:c-1").SetVal("{not json")

	var got cachedSummary
	err := s.cache.Get(context.Background(), "summary:c-1", &got)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheMockSuite) TestDelete_PrefixesEveryKey() {
	s.mock.ExpectDel("test:summary:c-1", "test:timeline:c-1").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "summary:c-1", "timeline:c-1"))
}

func (s *CacheMockSuite) TestDelete_NoKeysIsNoop() {
	s.NoError(s.cache.Delete(context.Background()))
}

func TestCacheMockSuite(t *testing.T) {
	suite.Run(t, new(CacheMockSuite))
}

// ─────────────────────────────────────────────────────────────────────────────
// miniredis
// ─────────────────────────────────────────────────────────────────────────────

func TestCache_SetGetAndTTL(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger(), WithJitter(0))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "summary:c-1", cachedSummary{ContractID: "c-1", TotalEvents: 3}, 5*time.Minute))

	var got cachedSummary
	require.NoError(t, cache.Get(ctx, "summary:c-1", &got))
	assert.Equal(t, 3, got.TotalEvents)
	assert.Equal(t, 5*time.Minute, mr.TTL("test:summary:c-1"))

	mr.FastForward(6 * time.Minute)
	assert.True(t, IsCacheMiss(cache.Get(ctx, "summary:c-1", &got)))
}

func TestCache_SetUsesDefaultTTL(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger(), WithJitter(0))

	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	assert.Equal(t, client.DefaultTTL(), mr.TTL("test:k"))
}

func TestCache_GetOrSet_LoadsOnceAcrossCallers(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())

	var loads atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (interface{}, error) {
		loads.Add(1)
		<-release
		return cachedSummary{ContractID: "c-1", TotalEvents: 7}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]cachedSummary, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, cache.GetOrSet(context.Background(), "summary:c-1", &results[i], time.Minute, loader))
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, r := range results {
		assert.Equal(t, 7, r.TotalEvents)
	}

	// Served from redis afterwards.
	var again cachedSummary
	require.NoError(t, cache.GetOrSet(context.Background(), "summary:c-1", &again, time.Minute, loader))
	assert.Equal(t, int32(1), loads.Load())
}

func TestCache_GetOrSet_NilResultIsCachedAsMiss(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger(), WithNullCacheTTL(10*time.Second))

	var dest cachedSummary
	err := cache.GetOrSet(context.Background(), "summary:none", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.True(t, IsCacheMiss(err))

	val, getErr := mr.Get("test:summary:none")
	require.NoError(t, getErr)
	assert.Equal(t, nullMarker, val)
}

func TestCache_GetOrSet_LoaderErrorNotCached(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, logging.NewNopLogger())
	boom := stderrors.New("db down")

	var dest cachedSummary
	err := cache.GetOrSet(context.Background(), "summary:c-2", &dest, time.Minute, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("test:summary:c-2"))
}
