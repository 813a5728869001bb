package repository

import (
	"context"
	"fmt"
	"time"
)

// VisitLatch remembers request IDs that were already counted so a retried
// request is not counted twice.
type VisitLatch interface {
	Acquire(ctx context.Context, requestID string) (bool, error)
}

type visitLatch struct {
	redis *RedisDB
	ttl   time.Duration
}

func NewVisitLatch(redis *RedisDB, ttl time.Duration) VisitLatch {
	return &visitLatch{redis: redis, ttl: ttl}
}

// Acquire returns true the first time it sees requestID within the TTL.
func (l *visitLatch) Acquire(ctx context.Context, requestID string) (bool, error) {
	ok, err := l.redis.Client.SetNX(ctx, "visit:req:"+requestID, 1, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire visit latch: %w", err)
	}
	return ok, nil
}
