package conversation

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/campusbot/campusbot-go/internal/model"
)

// 持久化格式中的发送方
const (
	senderUser = "user"
	senderBot  = "bot"
)

// record 持久化格式：{sender, text, timestamp(毫秒)}
type record struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func toRecord(t model.Turn) record {
	sender := senderBot
	if t.Role == model.RoleUser {
		sender = senderUser
	}
	return record{Sender: sender, Text: t.Text, Timestamp: t.CreatedAt.UnixMilli()}
}

// toTurn 未知发送方或空文本返回 false
func (r record) toTurn() (model.Turn, bool) {
	var role model.Role
	switch r.Sender {
	case senderUser:
		role = model.RoleUser
	case senderBot, string(model.RoleAssistant):
		role = model.RoleAssistant
	default:
		return model.Turn{}, false
	}
	if strings.TrimSpace(r.Text) == "" {
		return model.Turn{}, false
	}
	return model.Turn{Role: role, Text: r.Text, CreatedAt: time.UnixMilli(r.Timestamp).UTC()}, true
}

func encode(turns []model.Turn) ([]byte, error) {
	records := make([]record, len(turns))
	for i, t := range turns {
		records[i] = toRecord(t)
	}
	return json.Marshal(records)
}

// decode 返回有效记录和被丢弃的条数
func decode(data []byte) ([]model.Turn, int, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, 0, err
	}

	turns := make([]model.Turn, 0, len(records))
	dropped := 0
	for _, r := range records {
		t, ok := r.toTurn()
		if !ok {
			dropped++
			continue
		}
		turns = append(turns, t)
	}
	return turns, dropped, nil
}
