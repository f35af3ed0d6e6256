package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore Redis 存储，每个 Slot 对应一个字符串键
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore 创建 Redis 存储，ttl 为 0 表示不过期
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Slot 返回绑定 key 的存储槽
func (s *RedisStore) Slot(key string) Slot {
	return &redisSlot{store: s, key: key}
}

type redisSlot struct {
	store *RedisStore
	key   string
}

func (r *redisSlot) Key() string { return r.key }

func (r *redisSlot) Get(ctx context.Context) ([]byte, error) {
	data, err := r.store.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", r.key, err)
	}
	return data, nil
}

func (r *redisSlot) Set(ctx context.Context, value []byte) error {
	if err := r.store.client.Set(ctx, r.key, value, r.store.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", r.key, err)
	}
	r.store.logger.Debug("Redis 已写入", zap.String("key", r.key), zap.Int("bytes", len(value)))
	return nil
}

func (r *redisSlot) Delete(ctx context.Context) error {
	if err := r.store.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", r.key, err)
	}
	return nil
}
