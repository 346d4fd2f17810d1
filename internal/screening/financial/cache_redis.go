package financial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

const redisKeyPrefix = "screener:ratios:"

// RedisCache shares provider answers across instances. Entries expire after ttl.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (*models.FinancialRatios, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+symbol).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("redis get ratios: %w", err)
	}
	var ratios models.FinancialRatios
	if err := json.Unmarshal(raw, &ratios); err != nil {
		return nil, fmt.Errorf("decode cached ratios: %w", sentinel.ErrBadData)
	}
	return &ratios, nil
}

func (c *RedisCache) Set(ctx context.Context, symbol string, ratios *models.FinancialRatios) error {
	if ratios == nil {
		return nil
	}
	raw, err := json.Marshal(ratios)
	if err != nil {
		return fmt.Errorf("encode ratios: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+symbol, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set ratios: %w", err)
	}
	return nil
}
