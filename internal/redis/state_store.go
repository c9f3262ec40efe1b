package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"voltlog/internal/models"
)

const latestStateKey = "voltlog:vehicle:latest"

// StateStore caches the newest accepted sample so dashboards can read current
// vehicle state without touching the sample table. Best-effort: the ingest
// path logs and continues when the cache is down.
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore returns a redis-backed latest-state cache.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{client: client, ttl: ttl}
}

// Publish overwrites the cached latest state.
func (s *StateStore) Publish(ctx context.Context, sample *models.TelemetrySample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, latestStateKey, data, s.ttl).Err()
}

// Latest returns the cached state, or nil when the cache is empty or expired.
func (s *StateStore) Latest(ctx context.Context) (*models.TelemetrySample, error) {
	result, err := s.client.Get(ctx, latestStateKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sample models.TelemetrySample
	if err := json.Unmarshal([]byte(result), &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}
