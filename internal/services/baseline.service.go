package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/axops/axops-core/internal/logging"
	"github.com/axops/axops-core/pkg/cache"
	corelogger "github.com/axops/axops-core/pkg/logger"
)

// CacheBaselineProvider answers P95 baseline queries from the coordination
// cache. The statistics pipeline that computes the percentiles writes them
// under baseline:p95:<metric>:<type>:<class>:<env>; a missing key means no
// baseline exists yet.
type CacheBaselineProvider struct {
	cache  cache.Cache
	logger logging.Logger
}

func NewCacheBaselineProvider(coord cache.Cache, logger corelogger.Logger) *CacheBaselineProvider {
	return &CacheBaselineProvider{cache: coord, logger: logging.FromCoreLogger(logger)}
}

func (p *CacheBaselineProvider) GetPercentile95(ctx context.Context, metricName, metricType, metricClass, environment string) (*float64, error) {
	key := baselineKey(metricName, metricType, metricClass, environment)

	raw, err := p.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("baseline lookup %s: %w", key, err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		p.logger.Warn("malformed baseline value, treating as absent", "key", key, "value", string(raw))
		return nil, nil
	}
	return &value, nil
}

func baselineKey(metricName, metricType, metricClass, environment string) string {
	return fmt.Sprintf("baseline:p95:%s:%s:%s:%s", metricName, metricType, metricClass, environment)
}
