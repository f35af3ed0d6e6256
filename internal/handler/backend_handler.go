package handler

import (
	"net/http"

	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/campusbot/campusbot-go/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BackendHandler campus-backend 的 HTTP 接口
type BackendHandler struct {
	responder   *service.ResponderService
	serviceName string
	logger      *zap.Logger
}

// NewBackendHandler 创建后端处理器
func NewBackendHandler(responder *service.ResponderService, serviceName string, logger *zap.Logger) *BackendHandler {
	return &BackendHandler{
		responder:   responder,
		serviceName: serviceName,
		logger:      logger,
	}
}

// Chat 聊天接口；请求体无法解析时按空消息处理
func (h *BackendHandler) Chat(c *gin.Context) {
	var req model.BackendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("请求体无效，按空消息处理", zap.Error(err))
	}

	result := h.responder.Respond(req.Message, len(req.History))
	reply := result.Reply

	c.JSON(http.StatusOK, model.BackendChatResponse{
		Reply:         &reply,
		HistoryLength: result.HistoryLength,
		Language:      result.Language,
		IntentMatched: result.IntentMatched,
	})
}

// Intents 已加载的意图列表
func (h *BackendHandler) Intents(c *gin.Context) {
	intents := h.responder.Intents()
	c.JSON(http.StatusOK, gin.H{
		"intents": intents,
		"count":   len(intents),
	})
}

// Health 健康检查
func (h *BackendHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":                  true,
		"service":             h.serviceName,
		"endpoints":           []string{"POST /chat", "GET /intents"},
		"intents_loaded":      len(h.responder.Intents()),
		"languages_supported": []string{"en", "hi"},
	})
}
