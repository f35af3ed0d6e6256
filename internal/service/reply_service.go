package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/campusbot/campusbot-go/internal/apperr"
	"github.com/campusbot/campusbot-go/internal/client"
	"github.com/campusbot/campusbot-go/internal/config"
	"github.com/campusbot/campusbot-go/internal/conversation"
	"github.com/campusbot/campusbot-go/internal/intent"
	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/campusbot/campusbot-go/pkg/metrics"
	"go.uber.org/zap"
)

// ErrEmptyMessage 用户消息去除空白后为空，不做任何处理
var ErrEmptyMessage = errors.New("消息内容为空")

// HistoryWindow 发送给后端的最近历史条数
const HistoryWindow = 10

// lastResortReply 目录异常时仍保证返回非空回复
const lastResortReply = "Sorry, I could not understand that."

// 回复来源
const (
	PathBackend  = "backend"
	PathFallback = "fallback"
)

// Backend 远程聊天后端
type Backend interface {
	Chat(ctx context.Context, message string, history []model.HistoryEntry) (string, error)
}

// ComposingNotifier 通知调用方“正在输入”状态
type ComposingNotifier func(composing bool)

// Sleeper 可被 ctx 打断的等待
type Sleeper func(ctx context.Context, d time.Duration) error

// ReplyOptions 回复服务的可注入依赖，零值使用默认实现
type ReplyOptions struct {
	Backend     Backend // nil 表示不调用远程后端
	Rand        intent.RandSource
	Sleep       Sleeper
	TypingDelay config.DelayConfig
	Now         func() time.Time
}

// ReplyService 处理一条用户消息：优先远程后端，失败或未启用时走本地关键词分类
type ReplyService struct {
	store      *conversation.Store
	classifier *intent.Classifier
	catalog    *intent.Registry
	backend    Backend
	rand       intent.RandSource
	randMu     sync.Mutex
	sleep      Sleeper
	delayMin   time.Duration
	delayMax   time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewReplyService 创建回复服务
func NewReplyService(
	store *conversation.Store,
	classifier *intent.Classifier,
	catalog *intent.Registry,
	opts ReplyOptions,
	logger *zap.Logger,
) *ReplyService {
	s := &ReplyService{
		store:      store,
		classifier: classifier,
		catalog:    catalog,
		backend:    opts.Backend,
		rand:       opts.Rand,
		sleep:      opts.Sleep,
		now:        opts.Now,
		logger:     logger,
	}
	s.delayMin, s.delayMax = opts.TypingDelay.Bounds()
	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.sleep == nil {
		s.sleep = SleepContext
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Store 对话历史
func (s *ReplyService) Store() *conversation.Store {
	return s.store
}

// Handle 处理用户消息并返回回复。空消息返回 ErrEmptyMessage 且不记录任何内容；
// 其余情况总是返回非空回复，后端和持久化的失败只记录日志
func (s *ReplyService) Handle(ctx context.Context, userText string, notify ComposingNotifier) (string, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if notify == nil {
		notify = func(bool) {}
	}

	// 客户端断开后仍写完历史
	persistCtx := context.WithoutCancel(ctx)

	userTurn, _ := model.NewTurn(model.RoleUser, text, s.now())
	s.store.Append(persistCtx, userTurn)

	notify(true)
	defer notify(false)

	reply, path, category := s.generate(ctx, text)

	replyTurn, err := model.NewTurn(model.RoleAssistant, reply, s.now())
	if err != nil {
		reply = lastResortReply
		replyTurn, _ = model.NewTurn(model.RoleAssistant, reply, s.now())
	}
	s.store.Append(persistCtx, replyTurn)

	label := string(category)
	if label == "" {
		label = "remote"
	}
	metrics.RecordReply(path, label)
	s.logger.Info("回复已生成", zap.String("path", path), zap.String("category", label))
	return replyTurn.Text, nil
}

// generate 返回回复、来源和分类（后端回复的分类为空）
func (s *ReplyService) generate(ctx context.Context, text string) (string, string, intent.Category) {
	if s.backend == nil {
		s.thinkingDelay(ctx)
		reply, category := s.fallback(text)
		return reply, PathFallback, category
	}

	history := model.ToHistory(s.store.Recent(HistoryWindow))
	reply, err := s.backend.Chat(ctx, text, history)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = apperr.Parse(client.ReasonEmptyReply, errors.New("empty reply"))
	}
	if err == nil {
		return reply, PathBackend, ""
	}

	reason := client.FailureReason(err)
	metrics.RecordBackendFailure(reason)
	s.logger.Warn("后端调用失败，使用本地回复",
		zap.String("reason", reason),
		zap.Error(err))

	reply, category := s.fallback(text)
	return reply, PathFallback, category
}

// fallback 本地分类并随机选择回复
func (s *ReplyService) fallback(text string) (string, intent.Category) {
	category := s.classifier.Classify(text)

	replies, err := s.catalog.RepliesFor(category)
	if err != nil {
		s.logger.Error("分类目录缺少回复", zap.String("category", string(category)), zap.Error(err))
		category = intent.Default
		replies, _ = s.catalog.RepliesFor(category)
	}

	s.randMu.Lock()
	reply := intent.Pick(replies, s.rand)
	s.randMu.Unlock()

	if reply == "" {
		return lastResortReply, category
	}
	return reply, category
}

// thinkingDelay 模拟思考的随机延迟，ctx 结束时提前返回
func (s *ReplyService) thinkingDelay(ctx context.Context) {
	d := s.delayMin
	if span := s.delayMax - s.delayMin; span > 0 {
		s.randMu.Lock()
		d += time.Duration(s.rand.Intn(int(span/time.Millisecond)+1)) * time.Millisecond
		s.randMu.Unlock()
	}
	if d <= 0 {
		return
	}
	if err := s.sleep(ctx, d); err != nil {
		s.logger.Debug("模拟延迟被中断", zap.Error(err))
	}
}

// SleepContext 等待 d 或 ctx 结束
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
