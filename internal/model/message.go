package model

import "time"

// WebSocket 消息类型
const (
	TypeChat       = "CHAT"
	TypeClear      = "CLEAR"
	TypeHeartbeat  = "HEARTBEAT"
	TypeHistory    = "HISTORY"
	TypeTyping     = "TYPING"
	TypeAIResponse = "AI_RESPONSE"
	TypeError      = "ERROR"
)

// ChatMessage WebSocket 聊天消息
type ChatMessage struct {
	MessageID string    `json:"messageId"`
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Sender    string    `json:"sender,omitempty"` // user, bot
	Typing    bool      `json:"typing,omitempty"`
	Turns     []Turn    `json:"turns,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BackendChatRequest 远程后端 /chat 请求体
type BackendChatRequest struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
}

// BackendChatResponse 远程后端 /chat 响应体，只关心 reply
type BackendChatResponse struct {
	Reply         *string `json:"reply"`
	HistoryLength int     `json:"historyLength"`
	Language      string  `json:"language,omitempty"`
	IntentMatched bool    `json:"intentMatched"`
}

// WidgetChatRequest 组件同步聊天请求
type WidgetChatRequest struct {
	VisitorID string `json:"visitorId"`
	Message   string `json:"message"`
}

// WidgetChatResponse 组件同步聊天响应
type WidgetChatResponse struct {
	Reply string `json:"reply"`
}
