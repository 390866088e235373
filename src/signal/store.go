package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"evergreen/src/model"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix prefixes every dedup key: evergreen:signal:<market>:<side>.
const RedisKeyPrefix = "evergreen:signal"

// Store remembers the candle timestamp of the last submitted signal per market and side.
type Store interface {
	LastSubmitted(ctx context.Context, market string, side model.OrderSide) (time.Time, bool, error)
	RecordSubmitted(ctx context.Context, market string, side model.OrderSide, ts time.Time) error
}

type storeKey struct {
	market string
	side   model.OrderSide
}

// MemoryStore is process local; a restart forgets every submission.
type MemoryStore struct {
	mu   sync.RWMutex
	last map[storeKey]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[storeKey]time.Time)}
}

func (s *MemoryStore) LastSubmitted(ctx context.Context, market string, side model.OrderSide) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.last[storeKey{market, side}]
	return ts, ok, nil
}

func (s *MemoryStore) RecordSubmitted(ctx context.Context, market string, side model.OrderSide, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[storeKey{market, side}] = ts
	return nil
}

// RedisStore shares dedup state between agent processes and survives restarts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl keeps keys forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func RedisKey(market string, side model.OrderSide) string {
	return fmt.Sprintf("%s:%s:%s", RedisKeyPrefix, market, side)
}

func (s *RedisStore) LastSubmitted(ctx context.Context, market string, side model.OrderSide) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, RedisKey(market, side)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis get signal state: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse signal state %q: %w", raw, err)
	}
	return ts, true, nil
}

func (s *RedisStore) RecordSubmitted(ctx context.Context, market string, side model.OrderSide, ts time.Time) error {
	value := ts.UTC().Format(time.RFC3339Nano)
	if err := s.client.Set(ctx, RedisKey(market, side), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set signal state: %w", err)
	}
	return nil
}

// NewStore builds the store selected by SIGNAL_STORE.
func NewStore(config Config) Store {
	if config.SignalStore == StoreRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		return NewRedisStore(client, 0)
	}
	return NewMemoryStore()
}
