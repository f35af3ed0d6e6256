package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/campusbot/campusbot-go/internal/conversation"
	"github.com/campusbot/campusbot-go/internal/intent"
	"github.com/campusbot/campusbot-go/internal/kvstore"
	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidVisitor 访客 ID 为空或包含非法字符
var ErrInvalidVisitor = errors.New("访客 ID 无效")

// DefaultLoadTimeout 读取已保存历史的默认超时
const DefaultLoadTimeout = 3 * time.Second

var visitorIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidVisitorID 访客 ID 只允许字母、数字、下划线和短横线
func ValidVisitorID(visitorID string) bool {
	return visitorIDPattern.MatchString(visitorID)
}

// NewVisitorID 生成新的访客 ID
func NewVisitorID() string {
	return uuid.New().String()
}

// ConversationOptions 对话服务配置
type ConversationOptions struct {
	Capacity    int
	KeyPrefix   string
	IdleTTL     time.Duration // 超过该时间未使用的访客从内存中释放，0 表示不释放
	LoadTimeout time.Duration // 读取已保存历史的超时，0 使用 DefaultLoadTimeout
	Reply       ReplyOptions
}

type visitorEntry struct {
	replies  *ReplyService
	lastUsed time.Time
}

// ConversationService 按访客管理对话历史和回复服务。
// 每个访客的历史在首次访问时从存储中加载一次
type ConversationService struct {
	kv         kvstore.Store
	classifier *intent.Classifier
	catalog    *intent.Registry
	opts       ConversationOptions
	visitors   map[string]*visitorEntry
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewConversationService 创建对话服务
func NewConversationService(
	kv kvstore.Store,
	catalog *intent.Registry,
	opts ConversationOptions,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		kv:         kv,
		classifier: intent.NewClassifier(catalog),
		catalog:    catalog,
		opts:       opts,
		visitors:   make(map[string]*visitorEntry),
		logger:     logger,
	}
}

// ForVisitor 获取访客的回复服务，不存在时创建并加载历史。
// 加载不受调用方取消影响；加载失败的历史在下次访问或写入前重新读取
func (c *ConversationService) ForVisitor(ctx context.Context, visitorID string) (*ReplyService, error) {
	if !ValidVisitorID(visitorID) {
		return nil, ErrInvalidVisitor
	}

	loadCtx, cancel := c.loadContext(ctx)
	defer cancel()

	c.mu.Lock()
	entry, ok := c.visitors[visitorID]
	if ok {
		entry.lastUsed = time.Now()
	}
	c.mu.Unlock()

	if ok {
		if store := entry.replies.Store(); !store.Synced() {
			_ = store.Sync(loadCtx)
		}
		return entry.replies, nil
	}

	// 存储 I/O 不持有全局锁
	slot := c.kv.Slot(kvstore.ScopedKey(c.opts.KeyPrefix, visitorID))
	store := conversation.NewStore(slot, c.opts.Capacity, c.logger)
	loaded := store.LoadAll(loadCtx)
	replies := NewReplyService(store, c.classifier, c.catalog, c.opts.Reply, c.logger.With(zap.String("visitorId", visitorID)))

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.visitors[visitorID]; ok {
		existing.lastUsed = time.Now()
		return existing.replies, nil
	}
	c.visitors[visitorID] = &visitorEntry{replies: replies, lastUsed: time.Now()}

	c.logger.Debug("访客对话已加载",
		zap.String("visitorId", visitorID),
		zap.Int("turns", len(loaded)),
		zap.Bool("synced", store.Synced()))
	return replies, nil
}

func (c *ConversationService) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.opts.LoadTimeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// Chat 处理访客消息
func (c *ConversationService) Chat(ctx context.Context, visitorID, text string, notify ComposingNotifier) (string, error) {
	replies, err := c.ForVisitor(ctx, visitorID)
	if err != nil {
		return "", err
	}
	return replies.Handle(ctx, text, notify)
}

// History 访客的全部历史
func (c *ConversationService) History(ctx context.Context, visitorID string) ([]model.Turn, error) {
	replies, err := c.ForVisitor(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return replies.Store().All(), nil
}

// Clear 清空访客历史
func (c *ConversationService) Clear(ctx context.Context, visitorID string) error {
	replies, err := c.ForVisitor(ctx, visitorID)
	if err != nil {
		return err
	}
	replies.Store().Clear(ctx)
	c.logger.Info("访客历史已清空", zap.String("visitorId", visitorID))
	return nil
}

// Release 从内存中释放访客，历史仍保留在存储中
func (c *ConversationService) Release(visitorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.visitors, visitorID)
}

// EvictIdle 释放空闲超过 IdleTTL 的访客，返回释放数量
func (c *ConversationService) EvictIdle(now time.Time) int {
	if c.opts.IdleTTL <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for visitorID, entry := range c.visitors {
		if now.Sub(entry.lastUsed) > c.opts.IdleTTL {
			delete(c.visitors, visitorID)
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Info("释放空闲访客", zap.Int("count", evicted))
	}
	return evicted
}

// RunEviction 周期性释放空闲访客，直到 ctx 结束
func (c *ConversationService) RunEviction(ctx context.Context, interval time.Duration) {
	if c.opts.IdleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.EvictIdle(now)
		}
	}
}

// ActiveCount 内存中的访客数
func (c *ConversationService) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.visitors)
}
