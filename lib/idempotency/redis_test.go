package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// fakeRedis keeps values in a map and ignores expiry.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestReserve(t *testing.T) {
	fake := newFakeRedis()
	store := &RedisStore{Client: fake}
	ctx := context.Background()

	owner, reserved, err := store.Reserve(ctx, "order-42", "req-1", time.Hour)
	assert.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, "req-1", owner)
	assert.Equal(t, time.Hour, fake.ttls[keyPrefix+"order-42"])

	owner, reserved, err = store.Reserve(ctx, "order-42", "req-2", time.Hour)
	assert.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, "req-1", owner)
}

func TestRelease(t *testing.T) {
	store := &RedisStore{Client: newFakeRedis()}
	ctx := context.Background()

	_, _, err := store.Reserve(ctx, "order-42", "req-1", time.Hour)
	assert.NoError(t, err)
	assert.NoError(t, store.Release(ctx, "order-42"))

	owner, reserved, err := store.Reserve(ctx, "order-42", "req-2", time.Hour)
	assert.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, "req-2", owner)
}

func TestReserveError(t *testing.T) {
	fake := newFakeRedis()
	fake.err = errors.New("connection refused")
	store := &RedisStore{Client: fake}

	_, _, err := store.Reserve(context.Background(), "order-42", "req-1", time.Hour)
	assert.EqualError(t, err, "connection refused")
}
