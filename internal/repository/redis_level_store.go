package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"NodeFlow/internal/domain/models"
	"NodeFlow/internal/domain/repository"
	"NodeFlow/pkg/cache"
)

// RedisLevelStore keeps the per-date DailyLevels snapshot so restarts
// inside a session skip the historical recomputation.
type RedisLevelStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewRedisLevelStore creates a level store with the given snapshot TTL.
func NewRedisLevelStore(c cache.Service, ttl time.Duration) repository.LevelStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisLevelStore{cache: c, ttl: ttl}
}

func levelKey(date string) string {
	return cache.GenerateKey("levels", date)
}

// Lookup returns the snapshot for the date, or (nil, nil) on a miss.
func (s *RedisLevelStore) Lookup(ctx context.Context, date string) (*models.DailyLevels, error) {
	var levels models.DailyLevels
	err := s.cache.Get(ctx, levelKey(date), &levels)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup levels %s: %w", date, err)
	}
	return &levels, nil
}

func (s *RedisLevelStore) Save(ctx context.Context, levels *models.DailyLevels) error {
	if levels == nil || levels.Date == "" {
		return fmt.Errorf("levels snapshot missing date")
	}
	if err := s.cache.Set(ctx, levelKey(levels.Date), levels, s.ttl); err != nil {
		return fmt.Errorf("save levels %s: %w", levels.Date, err)
	}
	return nil
}
