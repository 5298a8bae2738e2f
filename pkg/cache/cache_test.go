package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewNoop()

	_, err := c.Get(ctx, "missing")
	assert.Error(t, err)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	b, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), b)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.Error(t, err)
}

func TestNoopLocks(t *testing.T) {
	ctx := context.Background()
	c := NewNoop()

	ok, err := c.AcquireLock(ctx, "correlate", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "correlate", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock must be exclusive while held")

	require.NoError(t, c.ReleaseLock(ctx, "correlate"))
	ok, err = c.AcquireLock(ctx, "correlate", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoopClaimExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewNoop()

	ok, err := c.Claim(ctx, "cooldown:RULE_1", 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Claim(ctx, "cooldown:RULE_1", 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "claim must hold until its TTL elapses")

	time.Sleep(30 * time.Millisecond)
	ok, err = c.Claim(ctx, "cooldown:RULE_1", 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok, "claim must be available after expiry")
}
