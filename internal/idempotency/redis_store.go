package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "idempotency:"

// Store remembers which keys were already processed.
type Store interface {
	// MarkProcessed records key for ttl and reports whether this call was the first to do so.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisStore shares processed markers across processes through Redis.
type RedisStore struct {
	client redis.UniversalClient
	log    *slog.Logger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
	}
}

func (s *RedisStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	first, err := s.client.SetNX(ctx, redisKeyPrefix+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		s.log.Error("failed to mark update as processed", slog.String("key", key), slog.Any("error", err))
		return false, err
	}

	return first, nil
}
