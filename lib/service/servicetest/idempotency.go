package servicetest

import (
	"context"
	"sync"
	"time"
)

// IdempotencyKeys is an in-memory service.IdempotencyStore without expiry.
type IdempotencyKeys struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewIdempotencyKeys() *IdempotencyKeys {
	return &IdempotencyKeys{keys: make(map[string]string)}
}

func (k *IdempotencyKeys) Reserve(ctx context.Context, key, requestID string, ttl time.Duration) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if owner, ok := k.keys[key]; ok {
		return owner, false, nil
	}
	k.keys[key] = requestID
	return requestID, true, nil
}

func (k *IdempotencyKeys) Release(ctx context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, key)
	return nil
}
