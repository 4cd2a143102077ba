package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/internal/model"
)

var ErrNotFound = errors.New("session not found")

const keyPrefix = "session:"

// RedisSession stores per-chat view state: filters, page and pending input.
type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func (s *RedisSession) GetSession(ctx context.Context, key string) (model.Session, error) {
	res, err := s.redis.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("redis.Get: %w", err)
	}

	var chatSession model.Session
	if err = json.Unmarshal(res, &chatSession); err != nil {
		return model.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	return chatSession, nil
}

// SetSession stores the session and restarts its expiration.
func (s *RedisSession) SetSession(ctx context.Context, key string, chatSession model.Session) error {
	data, err := json.Marshal(chatSession)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err = s.redis.Set(ctx, keyPrefix+key, data, s.cfg.SessionExpiration).Err(); err != nil {
		return fmt.Errorf("redis.Set: %w", err)
	}

	return nil
}

func (s *RedisSession) DeleteSession(ctx context.Context, key string) error {
	return s.redis.Del(ctx, keyPrefix+key).Err()
}
