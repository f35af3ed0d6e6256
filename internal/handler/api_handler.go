package handler

import (
	"errors"
	"net/http"

	"github.com/campusbot/campusbot-go/internal/config"
	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/campusbot/campusbot-go/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WidgetSettings 组件展示用的配置
type WidgetSettings struct {
	Welcome      string
	QuickActions []config.QuickActionConfig
	ServiceName  string
}

// APIHandler 组件的 HTTP 接口
type APIHandler struct {
	conversations  *service.ConversationService
	sessionService *service.SessionService
	settings       WidgetSettings
	logger         *zap.Logger
}

// NewAPIHandler 创建 API 处理器
func NewAPIHandler(
	conversations *service.ConversationService,
	sessionService *service.SessionService,
	settings WidgetSettings,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		conversations:  conversations,
		sessionService: sessionService,
		settings:       settings,
		logger:         logger,
	}
}

// CreateSession 分配访客 ID；请求中带有效 visitorId 时沿用
func (h *APIHandler) CreateSession(c *gin.Context) {
	var req struct {
		VisitorID string `json:"visitorId"`
	}
	// 允许空请求体
	_ = c.ShouldBindJSON(&req)

	visitorID := req.VisitorID
	if !service.ValidVisitorID(visitorID) {
		visitorID = service.NewVisitorID()
	}

	turns, err := h.conversations.History(c.Request.Context(), visitorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建会话失败"})
		return
	}

	h.logger.Info("访客会话", zap.String("visitorId", visitorID), zap.Int("turns", len(turns)))
	c.JSON(http.StatusOK, gin.H{
		"visitorId": visitorID,
		"welcome":   h.settings.Welcome,
		"turns":     turns,
	})
}

// Chat 同步聊天接口
func (h *APIHandler) Chat(c *gin.Context) {
	var req model.WidgetChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply, err := h.conversations.Chat(c.Request.Context(), req.VisitorID, req.Message, nil)
	switch {
	case errors.Is(err, service.ErrInvalidVisitor):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visitorId"})
		return
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "消息不能为空"})
		return
	case err != nil:
		h.logger.Error("聊天失败", zap.String("visitorId", req.VisitorID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "聊天失败"})
		return
	}

	c.JSON(http.StatusOK, model.WidgetChatResponse{Reply: reply})
}

// History 获取访客历史
func (h *APIHandler) History(c *gin.Context) {
	visitorID := c.Query("vid")
	turns, err := h.conversations.History(c.Request.Context(), visitorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"visitorId": visitorID, "turns": turns})
}

// ClearHistory 清空访客历史
func (h *APIHandler) ClearHistory(c *gin.Context) {
	visitorID := c.Query("vid")
	if err := h.conversations.Clear(c.Request.Context(), visitorID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// QuickActions 快捷问题和欢迎语
func (h *APIHandler) QuickActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"welcome":      h.settings.Welcome,
		"quickActions": h.settings.QuickActions,
	})
}

// Health 健康检查
func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "UP",
		"service":         h.settings.ServiceName,
		"online_visitors": h.sessionService.GetOnlineCount(),
		"active_visitors": h.conversations.ActiveCount(),
	})
}
