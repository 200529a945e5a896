package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/room-scheduling-api/internal/models"
)

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	repo := newCacheRepoFake()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var out []string
	hit, err := cache.Get(ctx, "calendar:k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "calendar:k", []string{"a", "b"}, 0))
	hit, err = cache.Get(ctx, "calendar:k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, out)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)
}

func TestCacheServiceInvalidateDerived(t *testing.T) {
	repo := newCacheRepoFake()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, cacheKey(cacheNamespaceSearch, "x"), 1, 0))
	require.NoError(t, cache.Set(ctx, cacheKey(cacheNamespaceCalendar, "y"), 2, 0))
	require.NoError(t, cache.Set(ctx, "other:z", 3, 0))

	cache.InvalidateDerived(ctx)

	assert.Len(t, repo.values, 1)
	assert.Contains(t, repo.values, "other:z")
}

func TestCacheServiceDisabledAndNil(t *testing.T) {
	ctx := context.Background()
	disabled := NewCacheService(newCacheRepoFake(), nil, 0, nil, false)
	hit, err := disabled.Get(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, disabled.Set(ctx, "k", 1, 0))

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	nilCache.InvalidateDerived(ctx)
}

func TestCacheKeyIsStable(t *testing.T) {
	a := cacheKey(cacheNamespaceSearch, map[string]int{"a": 1, "b": 2})
	b := cacheKey(cacheNamespaceSearch, map[string]int{"b": 2, "a": 1})
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "rooms:search:"))
	assert.NotEqual(t, a, cacheKey(cacheNamespaceCalendar, map[string]int{"a": 1, "b": 2}))
}

func TestMetricsServiceSnapshot(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest("GET", "/rooms", 200, 20*time.Millisecond)
	metrics.ObserveHTTPRequest("GET", "/rooms", 200, 40*time.Millisecond)
	metrics.RecordScheduleConflict("room")
	metrics.RecordExportJob(models.ExportFormatCSV, models.ExportStatusFinished)
	metrics.RecordExportJob(models.ExportFormatPDF, models.ExportStatusFailed)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.RequestsTotal)
	assert.InDelta(t, 30.0, snapshot.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(1), snapshot.ScheduleConflicts["room"])
	assert.Equal(t, uint64(1), snapshot.ExportsFinished)
	assert.Equal(t, uint64(1), snapshot.ExportsFailed)

	var nilMetrics *MetricsService
	nilMetrics.RecordScheduleConflict("room")
	assert.Equal(t, models.SystemMetrics{}, nilMetrics.Snapshot())
}
