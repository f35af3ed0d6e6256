package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/campusbot/campusbot-go/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// exerciseSlot 各实现共用的行为检查
func exerciseSlot(t *testing.T, slot Slot) {
	t.Helper()
	ctx := context.Background()

	_, err := slot.Get(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, slot.Set(ctx, []byte(`[{"sender":"user"}]`)))
	got, err := slot.Get(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `[{"sender":"user"}]`, string(got))

	require.NoError(t, slot.Set(ctx, []byte(`[]`)))
	got, err = slot.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, `[]`, string(got))

	require.NoError(t, slot.Delete(ctx))
	_, err = slot.Get(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	// 删除不存在的键不报错
	require.NoError(t, slot.Delete(ctx))
}

func TestMemorySlot(t *testing.T) {
	store := NewMemoryStore(zap.NewNop())
	exerciseSlot(t, store.Slot("edubot:a"))
}

func TestMemorySlotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(zap.NewNop())

	require.NoError(t, store.Slot("a").Set(ctx, []byte("1")))
	_, err := store.Slot("b").Get(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 1, store.Count())

	// 返回值是副本
	v, err := store.Slot("a").Get(ctx)
	require.NoError(t, err)
	v[0] = '9'
	v2, _ := store.Slot("a").Get(ctx)
	require.Equal(t, "1", string(v2))
}

func TestRedisSlot(t *testing.T) {
	_, client := newRedis(t)
	store := NewRedisStore(client, 0, zap.NewNop())
	exerciseSlot(t, store.Slot("edubot:b"))
}

func TestRedisSlotTTL(t *testing.T) {
	mr, client := newRedis(t)
	store := NewRedisStore(client, time.Hour, zap.NewNop())
	slot := store.Slot("edubot:ttl")

	require.NoError(t, slot.Set(context.Background(), []byte("[]")))
	require.Equal(t, time.Hour, mr.TTL("edubot:ttl"))

	mr.FastForward(2 * time.Hour)
	_, err := slot.Get(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSlotUnavailable(t *testing.T) {
	mr, client := newRedis(t)
	slot := NewRedisStore(client, 0, zap.NewNop()).Slot("edubot:down")
	mr.Close()

	err := slot.Set(context.Background(), []byte("[]"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestFileSlot(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested"), zap.NewNop())
	require.NoError(t, err)
	exerciseSlot(t, store.Slot("edubot-conversations-v2:../visitor"))
}

func TestFileSlotNameIsSanitized(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Slot("a/../b:c").Set(context.Background(), []byte("[]")))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a___b_c.json", entries[0].Name())
}

func TestNewStoreDrivers(t *testing.T) {
	_, client := newRedis(t)

	s, err := NewStore(config.StorageConfig{Driver: "memory"}, nil, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(config.StorageConfig{Driver: "redis", TTLHours: 1}, client, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &RedisStore{}, s)

	_, err = NewStore(config.StorageConfig{Driver: "redis"}, nil, zap.NewNop())
	require.Error(t, err)

	s, err = NewStore(config.StorageConfig{Driver: "file", Dir: t.TempDir()}, nil, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)

	_, err = NewStore(config.StorageConfig{Driver: "bolt"}, nil, zap.NewNop())
	require.Error(t, err)
}

func TestScopedKey(t *testing.T) {
	require.Equal(t, "edubot-conversations-v2:abc", ScopedKey("edubot-conversations-v2", "abc"))
	require.Equal(t, "edubot-conversations-v2", ScopedKey("edubot-conversations-v2", ""))
}
