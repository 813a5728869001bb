package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheRepository caches short code -> destination. Destinations never
// change after creation, so entries only go away on delete or expiry.
type CacheRepository interface {
	Get(ctx context.Context, code string) (string, error)
	Set(ctx context.Context, code, originalURL string, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, code string) (string, error) {
	url, err := r.redis.Client.Get(ctx, r.key(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cache: %w", err)
	}
	return url, nil
}

func (r *cacheRepository) Set(ctx context.Context, code, originalURL string, ttl time.Duration) error {
	return r.redis.Client.Set(ctx, r.key(code), originalURL, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, code string) error {
	return r.redis.Client.Del(ctx, r.key(code)).Err()
}

func (r *cacheRepository) key(code string) string {
	return "alias:" + code
}
