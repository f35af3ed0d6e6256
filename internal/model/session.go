package model

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNoConnection 会话没有可写的连接
var ErrNoConnection = errors.New("会话没有连接")

// MaxMissedBeats 连续丢失心跳达到该次数后清理会话
const MaxMissedBeats = 3

// VisitorSession 访客的 WebSocket 会话
type VisitorSession struct {
	VisitorID     string
	Conn          *websocket.Conn
	SessionID     string
	ClientIP      string
	LastHeartbeat time.Time
	MissedBeats   int
	mu            sync.RWMutex // 保护会话字段和连接写入
}

// UpdateHeartbeat 更新心跳时间
func (s *VisitorSession) UpdateHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastHeartbeat = time.Now()
	s.MissedBeats = 0
}

// CheckHeartbeat 超过 timeout 未收到心跳则累计一次丢失，返回是否应清理
func (s *VisitorSession) CheckHeartbeat(now time.Time, timeout time.Duration) (missed int, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.LastHeartbeat) > timeout {
		s.MissedBeats++
	}
	return s.MissedBeats, s.MissedBeats >= MaxMissedBeats
}

// WriteMessage 向 WebSocket 写入消息（线程安全）
func (s *VisitorSession) WriteMessage(message interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Conn == nil {
		return ErrNoConnection
	}
	return s.Conn.WriteJSON(message)
}

// Close 关闭连接
func (s *VisitorSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}
