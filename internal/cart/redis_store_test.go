package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.values[key] = value.([]byte)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewRedisStore(rdb, 24*time.Hour)

	items := []LineItem{{ID: "a", ProductID: "p1", Name: "Mug", Price: decimal.RequireFromString("12.50"), Quantity: 2, Size: "", Color: "White"}}
	require.NoError(t, store.Save(ctx, "user-1", items))

	assert.Equal(t, 24*time.Hour, rdb.ttls["storefront:cart:user-1"])

	got, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.True(t, got[0].Price.Equal(decimal.RequireFromString("12.50")))
}

func TestRedisStoreLoadMissingIsEmpty(t *testing.T) {
	store := NewRedisStore(newFakeRedis(), time.Hour)

	got, err := store.Load(context.Background(), "nobody")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRedisStoreSaveEmptyDeletesKey(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewRedisStore(rdb, time.Hour)
	require.NoError(t, store.Save(ctx, "user-1", []LineItem{{ID: "a", ProductID: "p", Quantity: 1}}))

	require.NoError(t, store.Save(ctx, "user-1", nil))

	_, ok := rdb.values[store.Key("user-1")]
	assert.False(t, ok)
}

func TestRedisStoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("get failure", func(t *testing.T) {
		rdb := newFakeRedis()
		rdb.getErr = errors.New("connection refused")
		_, err := NewRedisStore(rdb, time.Hour).Load(ctx, "user-1")
		require.ErrorContains(t, err, "get cart user-1")
	})

	t.Run("corrupt value", func(t *testing.T) {
		rdb := newFakeRedis()
		rdb.values["storefront:cart:user-1"] = []byte("{not json")
		_, err := NewRedisStore(rdb, time.Hour).Load(ctx, "user-1")
		require.ErrorContains(t, err, "decode cart user-1")
	})

	t.Run("set failure", func(t *testing.T) {
		rdb := newFakeRedis()
		rdb.setErr = errors.New("readonly")
		err := NewRedisStore(rdb, time.Hour).Save(ctx, "user-1", []LineItem{{ID: "a", ProductID: "p", Quantity: 1}})
		require.ErrorContains(t, err, "set cart user-1")
	})
}

func TestEngineReloadsFromRedis(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(newFakeRedis(), time.Hour)

	first := newTestEngine(t, store)
	_, err := first.AddItem(ctx, shirt(2))
	require.NoError(t, err)

	second := newTestEngine(t, store)
	assert.Equal(t, first.Items(), second.Items())
}
