package providers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/carebridge-health/platform/pkg/common/logger"
	"github.com/carebridge-health/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

const snapshotKey = "providers:snapshot"

// Cache holds an immutable JSON snapshot of the provider directory in
// Redis. Readers always unmarshal a fresh slice, so concurrent ranking
// calls observe a consistent candidate set and never share mutable
// state.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) GetSnapshot(ctx context.Context) ([]models.Provider, error) {
	if c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var providers []models.Provider
	if err := json.Unmarshal(raw, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

func (c *Cache) SetSnapshot(ctx context.Context, providers []models.Provider) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(providers)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey, raw, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, snapshotKey).Err(); err != nil {
		logger.Log.WithError(err).Warn("failed to invalidate provider snapshot")
	}
}
