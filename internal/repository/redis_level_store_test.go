package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NodeFlow/internal/domain/models"
	"NodeFlow/pkg/cache"
)

func testLevelStore() *RedisLevelStore {
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(16))
	return NewRedisLevelStore(mem, time.Hour).(*RedisLevelStore)
}

func TestLevelStoreRoundTrip(t *testing.T) {
	s := testLevelStore()
	ctx := context.Background()

	levels := &models.DailyLevels{
		Date:           "2025-06-02",
		PriorDayHigh:   21500,
		PriorDayLow:    21300,
		OvernightHigh:  21480,
		OvernightLow:   21340,
		PointOfControl: 21400,
		ValueAreaHigh:  21450,
		ValueAreaLow:   21350,
	}
	require.NoError(t, s.Save(ctx, levels))

	got, err := s.Lookup(ctx, "2025-06-02")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *levels, *got)
}

func TestLevelStoreMissReturnsNil(t *testing.T) {
	s := testLevelStore()

	got, err := s.Lookup(context.Background(), "2025-06-03")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLevelStoreRejectsMissingDate(t *testing.T) {
	s := testLevelStore()

	err := s.Save(context.Background(), &models.DailyLevels{})
	require.Error(t, err)
}
