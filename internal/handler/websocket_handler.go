package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/campusbot/campusbot-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket 处理器
type WebSocketHandler struct {
	sessionService *service.SessionService
	chatService    *service.ChatService
	welcome        string
	upgrader       websocket.Upgrader
	logger         *zap.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器；allowedOrigins 为空时接受任意来源
func NewWebSocketHandler(
	sessionService *service.SessionService,
	chatService *service.ChatService,
	welcome string,
	allowedOrigins []string,
	logger *zap.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		sessionService: sessionService,
		chatService:    chatService,
		welcome:        welcome,
		upgrader:       websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		logger:         logger,
	}
}

// originChecker 只放行白名单中的 Origin，没有 Origin 头的非浏览器客户端直接放行
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	if len(allowedOrigins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// HandleWebSocket WebSocket 连接入口
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	visitorID := c.Query("vid")
	if !service.ValidVisitorID(visitorID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vid"})
		return
	}

	// 升级为 WebSocket 连接
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket 升级失败",
			zap.String("origin", c.GetHeader("Origin")),
			zap.Error(err))
		return
	}
	defer conn.Close()

	// 注册会话
	sessionID := uuid.New().String()
	h.sessionService.RegisterVisitor(visitorID, conn, sessionID, c.ClientIP())
	defer h.sessionService.RemoveBySessionID(sessionID)

	h.logger.Info("WebSocket 连接建立",
		zap.String("visitorId", visitorID),
		zap.String("sessionId", sessionID))

	// 连接断开时取消进行中的回复，已开始的历史写入仍会完成
	ctx, cancel := context.WithCancel(c.Request.Context())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
	}()

	if err := h.chatService.SendHistory(ctx, visitorID, h.welcome); err != nil {
		h.logger.Warn("推送历史失败", zap.String("visitorId", visitorID), zap.Error(err))
	}

	// 消息循环
	for {
		var msg model.ChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket 读取错误", zap.Error(err))
			}
			break
		}

		h.handleMessage(ctx, &inflight, visitorID, &msg)
	}

	h.logger.Info("WebSocket 连接断开", zap.String("visitorId", visitorID))
}

// handleMessage 处理访客消息
func (h *WebSocketHandler) handleMessage(ctx context.Context, inflight *sync.WaitGroup, visitorID string, msg *model.ChatMessage) {
	switch msg.Type {
	case model.TypeChat:
		// 异步处理，读循环继续接收心跳
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			h.chatService.HandleVisitorMessage(ctx, visitorID, msg.Content)
		}()

	case model.TypeClear:
		if err := h.chatService.ClearHistory(ctx, visitorID, h.welcome); err != nil {
			h.logger.Warn("清空历史失败", zap.String("visitorId", visitorID), zap.Error(err))
		}

	case model.TypeHeartbeat:
		h.sessionService.UpdateHeartbeat(visitorID)
		h.sessionService.SendToVisitor(visitorID, model.ChatMessage{
			MessageID: msg.MessageID,
			Type:      model.TypeHeartbeat,
			Timestamp: time.Now(),
		})

	default:
		h.logger.Warn("未知消息类型",
			zap.String("visitorId", visitorID),
			zap.String("type", msg.Type))
	}
}
