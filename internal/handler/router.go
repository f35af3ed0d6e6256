package handler

import (
	"github.com/campusbot/campusbot-go/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter 创建带公共中间件的路由
func NewRouter(logger *zap.Logger, allowedOrigins ...string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(logger), middleware.CORS(allowedOrigins...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// RegisterWidgetRoutes 注册组件网关路由
func RegisterWidgetRoutes(r *gin.Engine, api *APIHandler, ws *WebSocketHandler) {
	// WebSocket 端点
	r.GET("/ws", ws.HandleWebSocket)

	// HTTP API
	r.POST("/api/session", api.CreateSession)
	r.POST("/api/chat", api.Chat)
	r.GET("/api/history", api.History)
	r.DELETE("/api/history", api.ClearHistory)
	r.GET("/api/quick-actions", api.QuickActions)
	r.GET("/api/health", api.Health)
}

// RegisterBackendRoutes 注册 campus-backend 路由
func RegisterBackendRoutes(r *gin.Engine, h *BackendHandler) {
	r.GET("/", h.Health)
	r.GET("/intents", h.Intents)
	r.POST("/chat", h.Chat)
}
