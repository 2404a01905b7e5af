package savestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisTTL - срок жизни сохранения в Redis, если не задан другой.
const DefaultRedisTTL = 30 * 24 * time.Hour

// RedisStore хранит сохранения как строки с TTL:
//
//	story_save:{owner}:{token} -> JSON записи
//	story_save_latest:{owner}  -> token
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger.Named("RedisSaveStore")}
}

func saveKey(owner, token string) string { return fmt.Sprintf("story_save:%s:%s", owner, token) }
func latestKey(owner string) string      { return fmt.Sprintf("story_save_latest:%s", owner) }

func (s *RedisStore) Save(ctx context.Context, owner string, rec Record) (string, error) {
	data, err := Encode(rec)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, saveKey(owner, token), data, s.ttl)
	pipe.Set(ctx, latestKey(owner), token, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to store save in redis", zap.String("owner", owner), zap.Error(err))
		return "", fmt.Errorf("store save in redis: %w", err)
	}
	s.logger.Debug("Save stored", zap.String("owner", owner), zap.String("token", token), zap.Duration("ttl", s.ttl))
	return token, nil
}

func (s *RedisStore) Load(ctx context.Context, owner, token string) (Record, error) {
	data, err := s.client.Get(ctx, saveKey(owner, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to read save from redis", zap.String("token", token), zap.Error(err))
		return Record{}, fmt.Errorf("read save from redis: %w", err)
	}
	return Decode(data)
}

func (s *RedisStore) Latest(ctx context.Context, owner string) (string, error) {
	token, err := s.client.Get(ctx, latestKey(owner)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read latest save from redis: %w", err)
	}
	return token, nil
}
