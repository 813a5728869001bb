package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doaamohamed88/shortLinks/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

type sessionRepository struct {
	redis *RedisDB
}

func NewSessionRepository(redis *RedisDB) SessionRepository {
	return &sessionRepository{redis: redis}
}

func (r *sessionRepository) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}
	return r.redis.Client.Set(ctx, r.key(session.ID), data, ttl).Err()
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.redis.Client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.redis.Client.Del(ctx, r.key(id)).Err()
}

func (r *sessionRepository) key(id string) string {
	return "session:" + id
}
