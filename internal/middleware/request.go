package middleware

import (
	"strconv"
	"time"

	"github.com/campusbot/campusbot-go/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// RequestID 缺少 X-Request-Id 时生成一个，并写入响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set(requestIDHeader, requestID)
		c.Next()
	}
}

// RequestIDFrom 取出当前请求的 ID
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDHeader)
}

// AccessLog 记录请求日志和 HTTP 指标
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, path, strconv.Itoa(status), duration.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("requestId", RequestIDFrom(c)),
		}
		if status >= 500 {
			logger.Error("请求失败", fields...)
			return
		}
		logger.Debug("请求完成", fields...)
	}
}
