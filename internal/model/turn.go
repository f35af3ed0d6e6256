package model

import (
	"errors"
	"strings"
	"time"
)

// Role 发言方
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrEmptyText 消息去除空白后为空
var ErrEmptyText = errors.New("消息内容不能为空")

// Turn 一条对话记录，创建后不可修改
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTurn 创建对话记录，text 去除首尾空白后不能为空
func NewTurn(role Role, text string, at time.Time) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyText
	}
	return Turn{Role: role, Text: text, CreatedAt: at}, nil
}

// HistoryEntry 发送给后端的历史格式
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToHistory 转换为后端历史格式，保持时间顺序
func ToHistory(turns []Turn) []HistoryEntry {
	entries := make([]HistoryEntry, len(turns))
	for i, t := range turns {
		entries[i] = HistoryEntry{Role: t.Role, Content: t.Text}
	}
	return entries
}
