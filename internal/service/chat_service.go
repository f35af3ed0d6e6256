package service

import (
	"context"
	"errors"
	"time"

	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatService 把访客的 WebSocket 消息交给对话服务，并把输入状态和回复推回连接
type ChatService struct {
	conversations *ConversationService
	sessions      *SessionService
	logger        *zap.Logger
}

// NewChatService 创建聊天服务
func NewChatService(conversations *ConversationService, sessions *SessionService, logger *zap.Logger) *ChatService {
	return &ChatService{
		conversations: conversations,
		sessions:      sessions,
		logger:        logger,
	}
}

// HandleVisitorMessage 处理访客消息，回复通过 AI_RESPONSE 推送
func (s *ChatService) HandleVisitorMessage(ctx context.Context, visitorID string, content string) error {
	s.logger.Info("处理访客消息",
		zap.String("visitorId", visitorID),
		zap.Int("length", len(content)))

	notify := func(composing bool) {
		s.push(visitorID, model.ChatMessage{
			MessageID: uuid.New().String(),
			Type:      model.TypeTyping,
			Typing:    composing,
			Timestamp: time.Now(),
		})
	}

	reply, err := s.conversations.Chat(ctx, visitorID, content, notify)
	if errors.Is(err, ErrEmptyMessage) {
		return nil
	}
	if err != nil {
		s.logger.Error("处理访客消息失败",
			zap.String("visitorId", visitorID),
			zap.Error(err))
		return err
	}

	s.push(visitorID, model.ChatMessage{
		MessageID: uuid.New().String(),
		Type:      model.TypeAIResponse,
		Content:   reply,
		Sender:    "bot",
		Timestamp: time.Now(),
	})
	return nil
}

// SendHistory 推送访客历史；没有历史时推送欢迎语
func (s *ChatService) SendHistory(ctx context.Context, visitorID, welcome string) error {
	turns, err := s.conversations.History(ctx, visitorID)
	if err != nil {
		return err
	}

	msg := model.ChatMessage{
		MessageID: uuid.New().String(),
		Type:      model.TypeHistory,
		Turns:     turns,
		Timestamp: time.Now(),
	}
	if len(turns) == 0 {
		msg.Content = welcome
		msg.Sender = "bot"
	}
	return s.sessions.SendToVisitor(visitorID, msg)
}

// ClearHistory 清空历史并推送欢迎语
func (s *ChatService) ClearHistory(ctx context.Context, visitorID, welcome string) error {
	if err := s.conversations.Clear(ctx, visitorID); err != nil {
		return err
	}
	return s.SendHistory(ctx, visitorID, welcome)
}

// push 访客已断开时只记录日志
func (s *ChatService) push(visitorID string, msg model.ChatMessage) {
	if err := s.sessions.SendToVisitor(visitorID, msg); err != nil {
		s.logger.Debug("推送失败",
			zap.String("visitorId", visitorID),
			zap.String("type", msg.Type),
			zap.Error(err))
	}
}
