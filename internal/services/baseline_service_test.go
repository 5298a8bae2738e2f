package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axops/axops-core/pkg/cache"
	"github.com/axops/axops-core/pkg/logger"
)

func TestCacheBaselineProvider(t *testing.T) {
	coord := cache.NewNoop()
	ctx := context.Background()
	require.NoError(t, coord.Set(ctx, "baseline:p95:cpu_usage:gauge:system:prod", "87.5", time.Hour))
	require.NoError(t, coord.Set(ctx, "baseline:p95:weird:gauge:system:prod", "not-a-number", time.Hour))

	provider := NewCacheBaselineProvider(coord, logger.NewNop())

	p95, err := provider.GetPercentile95(ctx, "cpu_usage", "gauge", "system", "prod")
	require.NoError(t, err)
	require.NotNil(t, p95)
	assert.Equal(t, 87.5, *p95)

	p95, err = provider.GetPercentile95(ctx, "memory_usage", "gauge", "system", "prod")
	require.NoError(t, err)
	assert.Nil(t, p95, "absent key means no baseline")

	p95, err = provider.GetPercentile95(ctx, "weird", "gauge", "system", "prod")
	require.NoError(t, err)
	assert.Nil(t, p95, "malformed value treated as absent")
}
