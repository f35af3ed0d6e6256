// Package kvstore 提供单键存储能力：会话历史只依赖 Get/Set/Delete 一个键
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusbot/campusbot-go/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("kvstore: key not found")

// Slot 绑定到一个固定键的存储
type Slot interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, value []byte) error
	Delete(ctx context.Context) error
	Key() string
}

// Store 按键创建 Slot
type Store interface {
	Slot(key string) Slot
}

// NewStore 根据 storage.driver 创建存储，redis 驱动需要传入客户端
func NewStore(cfg config.StorageConfig, redisClient *redis.Client, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(logger), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("redis 存储需要 Redis 客户端")
		}
		return NewRedisStore(redisClient, cfg.TTL(), logger), nil
	case "file":
		return NewFileStore(cfg.Dir, logger)
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", cfg.Driver)
	}
}

// ScopedKey 拼接访客维度的存储键
func ScopedKey(prefix, visitorID string) string {
	if visitorID == "" {
		return prefix
	}
	return prefix + ":" + visitorID
}
