// Package metrics 提供 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RepliesTotal 按来源(backend/fallback)和分类统计回复数
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_replies_total",
			Help: "Total replies produced, by path and category",
		},
		[]string{"path", "category"},
	)

	// BackendFailuresTotal 后端调用失败次数
	BackendFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_backend_failures_total",
			Help: "Remote chat backend failures that fell back to local replies",
		},
		[]string{"reason"},
	)

	// BackendDuration 后端调用耗时
	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusbot_backend_duration_seconds",
			Help:    "Remote chat backend call duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	// PersistenceErrorsTotal 会话历史持久化失败次数
	PersistenceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_persistence_errors_total",
			Help: "Conversation history persistence failures",
		},
		[]string{"op"},
	)

	// RequestsTotal HTTP 请求数
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration HTTP 请求耗时
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// WebSocketSessions 当前在线 WebSocket 会话数
	WebSocketSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusbot_websocket_sessions",
			Help: "Number of active widget WebSocket sessions",
		},
	)
)

// RecordReply 记录一次回复
func RecordReply(path, category string) {
	RepliesTotal.WithLabelValues(path, category).Inc()
}

// RecordBackendCall 记录一次后端调用
func RecordBackendCall(status string, seconds float64) {
	BackendDuration.WithLabelValues(status).Observe(seconds)
}

// RecordBackendFailure 记录后端失败原因
func RecordBackendFailure(reason string) {
	BackendFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordPersistenceError 记录持久化失败
func RecordPersistenceError(op string) {
	PersistenceErrorsTotal.WithLabelValues(op).Inc()
}

// RecordRequest 记录 HTTP 请求
func RecordRequest(method, path, status string, seconds float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
