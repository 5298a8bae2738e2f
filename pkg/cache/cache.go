// Package cache provides the Valkey/Redis-backed coordination layer shared
// by the engines: plain keyed caching plus the SetNX-based locks and claims
// that make the advisory policy gates safe across processes.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for absent or expired keys.
var ErrNotFound = errors.New("cache: key not found")

// Cache is the coordination surface. Claim and AcquireLock are both
// SET-NX-with-TTL under the hood; Claim never releases (the TTL is the
// semantics, e.g. a remediation cooldown), while locks are released by the
// holder.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// AcquireLock atomically takes a named lock for at most ttl. Returns
	// false when another holder has it.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error

	// Claim atomically marks a key for ttl. Returns false when the key is
	// already claimed and its TTL has not elapsed.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	HealthCheck(ctx context.Context) error
}
