// Package conversation 管理有容量上限的对话历史
package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/campusbot/campusbot-go/internal/apperr"
	"github.com/campusbot/campusbot-go/internal/kvstore"
	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/campusbot/campusbot-go/pkg/metrics"
	"go.uber.org/zap"
)

// Store 对话历史。每次修改都是“读取完整序列、修改、写回完整序列”；
// 持久化失败只记录日志，不影响内存状态。
// 存储槽读取失败时 synced 为 false，此时不会写回，避免用不完整的序列覆盖已保存的历史
type Store struct {
	slot     kvstore.Slot
	capacity int
	turns    []model.Turn
	synced   bool
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewStore 创建对话历史，capacity 小于 1 时按 1 处理
func NewStore(slot kvstore.Slot, capacity int, logger *zap.Logger) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		slot:     slot,
		capacity: capacity,
		logger:   logger.With(zap.String("key", slot.Key())),
	}
}

// Capacity 容量上限
func (s *Store) Capacity() int {
	return s.capacity
}

// Len 当前条数
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Append 追加一条记录，超出容量时从最旧的开始淘汰，然后写回存储槽
func (s *Store) Append(ctx context.Context, turn model.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turn)
	if !s.synced {
		if err := s.sync(ctx); err != nil {
			s.truncate()
			s.report(apperr.Persistence("get", err))
			return
		}
	}
	s.truncate()

	s.persist(ctx)
}

// Synced 是否已成功读取过存储槽
func (s *Store) Synced() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.synced
}

// Sync 重新读取存储槽，尚未写回的记录接在已保存的历史之后。
// 读取失败时返回错误，内存状态不变
func (s *Store) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.synced {
		return nil
	}
	if err := s.sync(ctx); err != nil {
		s.report(apperr.Persistence("get", err))
		return err
	}
	s.truncate()
	if len(s.turns) > 0 {
		s.persist(ctx)
	}
	return nil
}

// Recent 返回最近 n 条，按时间顺序
func (s *Store) Recent(n int) []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return []model.Turn{}
	}
	if n > len(s.turns) {
		n = len(s.turns)
	}
	return append([]model.Turn(nil), s.turns[len(s.turns)-n:]...)
}

// All 返回全部记录
func (s *Store) All() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Turn(nil), s.turns...)
}

// Clear 清空内存并删除存储槽
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	// 之后的写入以空序列为准
	s.synced = true
	if err := s.slot.Delete(ctx); err != nil {
		s.report(apperr.Persistence("delete", err))
	}
}

// LoadAll 从存储槽恢复历史；数据损坏或存储不可用时返回空序列并记录，不返回错误。
// 存储不可用时保持未同步状态，下次 Append 或 Sync 会重新读取
func (s *Store) LoadAll(ctx context.Context) []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	s.synced = false

	if err := s.sync(ctx); err != nil {
		s.report(apperr.Persistence("get", err))
		return []model.Turn{}
	}
	s.truncate()

	s.logger.Debug("历史记录已加载", zap.Int("count", len(s.turns)))
	return append([]model.Turn(nil), s.turns...)
}

// sync 读取存储槽并把内存中未写回的记录接在后面，只有读取失败才返回错误。
// 数据损坏视为空历史，调用方需持有锁
func (s *Store) sync(ctx context.Context) error {
	data, err := s.slot.Get(ctx)
	if errors.Is(err, kvstore.ErrNotFound) {
		s.synced = true
		return nil
	}
	if err != nil {
		return err
	}

	stored, dropped, err := decode(data)
	if err != nil {
		s.report(apperr.Parse("decode history", err))
		stored = nil
	}
	if dropped > 0 {
		s.logger.Warn("丢弃无效的历史记录", zap.Int("dropped", dropped))
	}

	s.turns = append(stored, s.turns...)
	s.synced = true
	return nil
}

// truncate 超出容量时从最旧的开始淘汰，调用方需持有锁
func (s *Store) truncate() {
	if over := len(s.turns) - s.capacity; over > 0 {
		s.turns = append([]model.Turn(nil), s.turns[over:]...)
	}
}

// persist 调用方需持有锁
func (s *Store) persist(ctx context.Context) {
	data, err := encode(s.turns)
	if err != nil {
		s.report(apperr.Parse("encode history", err))
		return
	}
	if err := s.slot.Set(ctx, data); err != nil {
		s.report(apperr.Persistence("set", err))
	}
}

func (s *Store) report(err *apperr.Error) {
	metrics.RecordPersistenceError(err.Op)
	s.logger.Warn("对话历史持久化失败，继续使用内存数据", zap.Error(err))
}
