package kvstore

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore 内存存储，进程退出即丢失
type MemoryStore struct {
	values map[string][]byte
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		logger: logger,
	}
}

// Slot 返回绑定 key 的存储槽
func (s *MemoryStore) Slot(key string) Slot {
	return &memorySlot{store: s, key: key}
}

// Count 当前键数量
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

type memorySlot struct {
	store *MemoryStore
	key   string
}

func (m *memorySlot) Key() string { return m.key }

func (m *memorySlot) Get(_ context.Context) ([]byte, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	v, ok := m.store.values[m.key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memorySlot) Set(_ context.Context, value []byte) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.values[m.key] = append([]byte(nil), value...)
	m.store.logger.Debug("内存存储已写入", zap.String("key", m.key), zap.Int("bytes", len(value)))
	return nil
}

func (m *memorySlot) Delete(_ context.Context) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	delete(m.store.values, m.key)
	return nil
}
