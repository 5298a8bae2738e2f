package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/axops/axops-core/internal/metrics"
)

// valkeyImpl implements Cache against a single-node Valkey/Redis instance.
type valkeyImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewValkey connects to a single Valkey/Redis node and verifies the
// connection before returning.
func NewValkey(addr string, db int, password string, defaultTTL time.Duration) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &valkeyImpl{client: client, ttl: defaultTTL}, nil
}

func (v *valkeyImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheRequestsTotal.WithLabelValues("get", "miss").Inc()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	metrics.CacheRequestsTotal.WithLabelValues("get", "hit").Inc()
	return b, nil
}

func (v *valkeyImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var data []byte
	switch x := value.(type) {
	case []byte:
		data = x
	case string:
		data = []byte(x)
	default:
		j, err := json.Marshal(x)
		if err != nil {
			metrics.CacheRequestsTotal.WithLabelValues("set", "error").Inc()
			return fmt.Errorf("marshal value for key %s: %w", key, err)
		}
		data = j
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	if err := v.client.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("set", "error").Inc()
		return err
	}
	metrics.CacheRequestsTotal.WithLabelValues("set", "success").Inc()
	return nil
}

func (v *valkeyImpl) Delete(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, key).Err(); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	metrics.CacheRequestsTotal.WithLabelValues("delete", "success").Inc()
	return nil
}

func (v *valkeyImpl) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := fmt.Sprintf("lock:%s", key)

	// SET with NX and PX gives atomic take-if-absent with expiry.
	set, err := v.client.SetNX(ctx, lockKey, "locked", ttl).Result()
	if err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("acquire_lock", "error").Inc()
		return false, err
	}
	if set {
		metrics.CacheRequestsTotal.WithLabelValues("acquire_lock", "success").Inc()
	} else {
		metrics.CacheRequestsTotal.WithLabelValues("acquire_lock", "conflict").Inc()
	}
	return set, nil
}

func (v *valkeyImpl) ReleaseLock(ctx context.Context, key string) error {
	lockKey := fmt.Sprintf("lock:%s", key)
	if err := v.client.Del(ctx, lockKey).Err(); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("release_lock", "error").Inc()
		return err
	}
	metrics.CacheRequestsTotal.WithLabelValues("release_lock", "success").Inc()
	return nil
}

func (v *valkeyImpl) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimKey := fmt.Sprintf("claim:%s", key)
	set, err := v.client.SetNX(ctx, claimKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("claim", "error").Inc()
		return false, err
	}
	if set {
		metrics.CacheRequestsTotal.WithLabelValues("claim", "success").Inc()
	} else {
		metrics.CacheRequestsTotal.WithLabelValues("claim", "held").Inc()
	}
	return set, nil
}

// HealthCheck pings the Valkey instance.
func (v *valkeyImpl) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ctx = c
	}
	return v.client.Ping(ctx).Err()
}
