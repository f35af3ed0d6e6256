package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/campusbot/campusbot-go/internal/apperr"
	"github.com/campusbot/campusbot-go/internal/model"
	"github.com/campusbot/campusbot-go/pkg/metrics"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// 失败原因，同时作为 apperr.Error 的 Op
const (
	ReasonRequest    = "request"
	ReasonTimeout    = "timeout"
	ReasonNetwork    = "network"
	ReasonStatus     = "status"
	ReasonDecode     = "decode"
	ReasonEmptyReply = "empty_reply"
)

// BackendClient 远程聊天后端客户端
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBackendClient 创建后端客户端，timeout 限制整个请求耗时
func NewBackendClient(baseURL string, timeout time.Duration, logger *zap.Logger) *BackendClient {
	return &BackendClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ChatURL 后端 /chat 地址
func (c *BackendClient) ChatURL() string {
	return c.baseURL + "/chat"
}

// Chat 调用后端 /chat 接口，返回非空 reply；任何失败都返回 *apperr.Error
func (c *BackendClient) Chat(ctx context.Context, message string, history []model.HistoryEntry) (string, error) {
	start := time.Now()
	reply, err := c.chat(ctx, message, history)

	status := "ok"
	if err != nil {
		status = FailureReason(err)
	}
	metrics.RecordBackendCall(status, time.Since(start).Seconds())
	return reply, err
}

func (c *BackendClient) chat(ctx context.Context, message string, history []model.HistoryEntry) (string, error) {
	if history == nil {
		history = []model.HistoryEntry{}
	}
	reqBody := model.BackendChatRequest{Message: message, History: history}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperr.Backend(ReasonRequest, fmt.Errorf("序列化请求失败: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ChatURL(), bytes.NewReader(jsonData))
	if err != nil {
		return "", apperr.Backend(ReasonRequest, fmt.Errorf("创建请求失败: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("调用聊天后端", zap.String("url", req.URL.String()), zap.Int("history", len(history)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", apperr.Backend(ReasonTimeout, err)
		}
		return "", apperr.Backend(ReasonNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return "", apperr.Backend(ReasonTimeout, err)
		}
		return "", apperr.Backend(ReasonNetwork, fmt.Errorf("读取响应失败: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Backend(ReasonStatus, fmt.Errorf("后端返回错误: %d", resp.StatusCode))
	}

	var chatResp model.BackendChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", apperr.Parse(ReasonDecode, fmt.Errorf("解析响应失败: %w", err))
	}
	if chatResp.Reply == nil || strings.TrimSpace(*chatResp.Reply) == "" {
		return "", apperr.Parse(ReasonEmptyReply, errors.New("响应缺少 reply 字段"))
	}

	return *chatResp.Reply, nil
}

// FailureReason 从错误中取出失败原因
func FailureReason(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Op != "" {
		return e.Op
	}
	if isTimeout(err) {
		return ReasonTimeout
	}
	return ReasonNetwork
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
