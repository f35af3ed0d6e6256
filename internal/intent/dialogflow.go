package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// DialogflowIntent Dialogflow 导出的意图文件
type DialogflowIntent struct {
	Name      string `json:"name"`
	Responses []struct {
		Messages []struct {
			Lang   string          `json:"lang"`
			Speech json.RawMessage `json:"speech"`
		} `json:"messages"`
	} `json:"responses"`
}

// SpeechByLang 取第一个 response 中各语言的回复，同一语言只用第一条非空消息
func (d *DialogflowIntent) SpeechByLang() map[string][]string {
	out := make(map[string][]string)
	if len(d.Responses) == 0 {
		return out
	}
	for _, msg := range d.Responses[0].Messages {
		if _, seen := out[msg.Lang]; seen || msg.Lang == "" {
			continue
		}
		if speech := decodeSpeech(msg.Speech); len(speech) > 0 {
			out[msg.Lang] = speech
		}
	}
	return out
}

// speech 可能是字符串或字符串数组
func decodeSpeech(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return nonBlank(list)
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return nonBlank([]string{single})
	}
	return nil
}

func nonBlank(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoadDialogflowIntents 读取目录下的意图文件，按意图名索引，跳过 usersays 文件
func LoadDialogflowIntents(dir string, logger *zap.Logger) (map[string]*DialogflowIntent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取意图目录失败: %w", err)
	}

	intents := make(map[string]*DialogflowIntent)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.Contains(name, "_usersays_") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("读取意图文件失败", zap.String("file", name), zap.Error(err))
			continue
		}

		var di DialogflowIntent
		if err := json.Unmarshal(data, &di); err != nil {
			logger.Warn("解析意图文件失败", zap.String("file", name), zap.Error(err))
			continue
		}
		if di.Name == "" {
			di.Name = strings.TrimSuffix(name, ".json")
		}
		intents[di.Name] = &di
	}

	logger.Info("Dialogflow 意图加载完成", zap.Int("count", len(intents)))
	return intents, nil
}

// ApplyDialogflow 用导出意图中的回复覆盖已注册分类的回复
func ApplyDialogflow(registry *Registry, intents map[string]*DialogflowIntent, names map[Category]string) int {
	applied := 0
	for category, dfName := range names {
		di, ok := intents[dfName]
		if !ok {
			continue
		}
		for lang, speech := range di.SpeechByLang() {
			if registry.SetReplies(category, lang, speech) {
				applied++
			}
		}
	}
	return applied
}
