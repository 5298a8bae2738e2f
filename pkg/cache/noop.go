package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// noopImpl backs single-process deployments and tests: Get/Set are a plain
// in-memory map and the lock/claim operations are mutex-guarded with real
// expiry semantics, so engine behavior is identical minus the cross-process
// guarantee.
type noopImpl struct {
	mu     sync.Mutex
	values map[string][]byte
	claims map[string]time.Time // key -> expiry
}

// NewNoop returns the in-process Cache implementation.
func NewNoop() Cache {
	return &noopImpl{
		values: make(map[string][]byte),
		claims: make(map[string]time.Time),
	}
}

func (n *noopImpl) Get(_ context.Context, key string) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, ok := n.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return b, nil
}

func (n *noopImpl) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch x := value.(type) {
	case []byte:
		n.values[key] = x
	case string:
		n.values[key] = []byte(x)
	default:
		n.values[key] = []byte(fmt.Sprintf("%v", x))
	}
	return nil
}

func (n *noopImpl) Delete(_ context.Context, key string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.values, key)
	return nil
}

func (n *noopImpl) AcquireLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return n.tryClaim("lock:"+key, ttl), nil
}

func (n *noopImpl) ReleaseLock(_ context.Context, key string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.claims, "lock:"+key)
	return nil
}

func (n *noopImpl) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return n.tryClaim("claim:"+key, ttl), nil
}

func (n *noopImpl) tryClaim(key string, ttl time.Duration) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := time.Now()
	if exp, held := n.claims[key]; held && exp.After(now) {
		return false
	}
	n.claims[key] = now.Add(ttl)
	return true
}

func (n *noopImpl) HealthCheck(_ context.Context) error { return nil }
