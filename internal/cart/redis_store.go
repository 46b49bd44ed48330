package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "storefront:cart:"

// RedisClient is the subset of *redis.Client the store needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore persists each cart as a JSON array under one key. Every save
// refreshes the TTL, so abandoned carts expire on their own.
type RedisStore struct {
	rdb RedisClient
	ttl time.Duration
}

func NewRedisStore(rdb RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Key(owner string) string {
	return redisKeyPrefix + owner
}

func (s *RedisStore) Load(ctx context.Context, owner string) ([]LineItem, error) {
	raw, err := s.rdb.Get(ctx, s.Key(owner)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []LineItem{}, nil
		}
		return nil, fmt.Errorf("get cart %s: %w", owner, err)
	}

	var items []LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", owner, err)
	}
	return items, nil
}

func (s *RedisStore) Save(ctx context.Context, owner string, items []LineItem) error {
	if len(items) == 0 {
		return s.Delete(ctx, owner)
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", owner, err)
	}
	if err := s.rdb.Set(ctx, s.Key(owner), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set cart %s: %w", owner, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, owner string) error {
	if err := s.rdb.Del(ctx, s.Key(owner)).Err(); err != nil {
		return fmt.Errorf("delete cart %s: %w", owner, err)
	}
	return nil
}
