package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/campusbot/campusbot-go/pkg/metrics"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrVisitorOffline = fmt.Errorf("访客不在线")
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHeartbeatTimeout  = 60 * time.Second
)

// SessionService 访客 WebSocket 会话管理
type SessionService struct {
	visitorSessions  map[string]*model.VisitorSession // visitorId -> session
	sessionToVisitor map[string]string                // sessionId -> visitorId
	mu               sync.RWMutex
	timeout          time.Duration
	stop             chan struct{}
	done             chan struct{}
	closeOnce        sync.Once
	logger           *zap.Logger
}

// NewSessionService 创建会话管理服务，interval 为心跳检测周期
func NewSessionService(interval, timeout time.Duration, logger *zap.Logger) *SessionService {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}
	s := &SessionService{
		visitorSessions:  make(map[string]*model.VisitorSession),
		sessionToVisitor: make(map[string]string),
		timeout:          timeout,
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
		logger:           logger,
	}

	// 启动心跳检测
	go s.heartbeatChecker(interval)

	return s
}

// RegisterVisitor 注册访客会话，同一访客重复连接时关闭旧连接
func (s *SessionService) RegisterVisitor(visitorID string, conn *websocket.Conn, sessionID string, clientIP string) *model.VisitorSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.visitorSessions[visitorID]; ok {
		s.logger.Info("访客重新连接，关闭旧连接",
			zap.String("visitorId", visitorID),
			zap.String("oldSessionId", existing.SessionID))
		existing.Close()
		delete(s.sessionToVisitor, existing.SessionID)
	}

	session := &model.VisitorSession{
		VisitorID:     visitorID,
		Conn:          conn,
		SessionID:     sessionID,
		ClientIP:      clientIP,
		LastHeartbeat: time.Now(),
	}

	s.visitorSessions[visitorID] = session
	s.sessionToVisitor[sessionID] = visitorID
	metrics.WebSocketSessions.Set(float64(len(s.visitorSessions)))

	s.logger.Info("访客会话注册成功",
		zap.String("visitorId", visitorID),
		zap.String("sessionId", sessionID))
	return session
}

// SendToVisitor 向指定访客发送消息
func (s *SessionService) SendToVisitor(visitorID string, message interface{}) error {
	s.mu.RLock()
	session, ok := s.visitorSessions[visitorID]
	s.mu.RUnlock()

	if !ok {
		s.logger.Warn("访客不在线，消息发送失败", zap.String("visitorId", visitorID))
		return ErrVisitorOffline
	}

	if err := session.WriteMessage(message); err != nil {
		s.logger.Error("消息发送失败",
			zap.String("visitorId", visitorID),
			zap.Error(err))
		s.RemoveBySessionID(session.SessionID)
		return err
	}
	return nil
}

// UpdateHeartbeat 更新心跳时间
func (s *SessionService) UpdateHeartbeat(visitorID string) bool {
	s.mu.RLock()
	session, ok := s.visitorSessions[visitorID]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	session.UpdateHeartbeat()
	s.logger.Debug("心跳已更新", zap.String("visitorId", visitorID))
	return true
}

// RemoveBySessionID 根据 sessionId 移除会话；访客已用新连接替换时不影响新会话
func (s *SessionService) RemoveBySessionID(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	visitorID, ok := s.sessionToVisitor[sessionID]
	if !ok {
		return
	}
	delete(s.sessionToVisitor, sessionID)
	if current, ok := s.visitorSessions[visitorID]; ok && current.SessionID == sessionID {
		delete(s.visitorSessions, visitorID)
	}
	metrics.WebSocketSessions.Set(float64(len(s.visitorSessions)))

	s.logger.Info("访客会话已移除",
		zap.String("visitorId", visitorID),
		zap.String("sessionId", sessionID))
}

// IsOnline 访客是否有活动连接
func (s *SessionService) IsOnline(visitorID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.visitorSessions[visitorID]
	return ok
}

// GetOnlineCount 获取在线访客数
func (s *SessionService) GetOnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visitorSessions)
}

// Close 停止心跳检测并关闭所有连接
func (s *SessionService) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		defer s.mu.Unlock()
		for visitorID, session := range s.visitorSessions {
			session.Close()
			delete(s.visitorSessions, visitorID)
			delete(s.sessionToVisitor, session.SessionID)
		}
		metrics.WebSocketSessions.Set(0)
	})
}

// heartbeatChecker 心跳检测器
func (s *SessionService) heartbeatChecker(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

// sweep 检查一轮心跳，清理连续丢失 MaxMissedBeats 次的会话
func (s *SessionService) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for visitorID, session := range s.visitorSessions {
		missed, expired := session.CheckHeartbeat(now, s.timeout)
		switch {
		case expired:
			s.logger.Info("清理无效会话",
				zap.String("visitorId", visitorID),
				zap.Int("missedBeats", missed))
			session.Close()
			delete(s.visitorSessions, visitorID)
			delete(s.sessionToVisitor, session.SessionID)
			removed++
		case missed > 0:
			s.logger.Warn("访客心跳丢失",
				zap.String("visitorId", visitorID),
				zap.Int("missedBeats", missed))
		}
	}
	metrics.WebSocketSessions.Set(float64(len(s.visitorSessions)))
	return removed
}
