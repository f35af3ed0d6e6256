package service

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/campusbot/campusbot-go/internal/intent"
	"go.uber.org/zap"
)

// EmptyMessageReply 空消息的固定回复
const EmptyMessageReply = "Please type a message."

// ResponderResult campus-backend 的 /chat 结果
type ResponderResult struct {
	Reply         string
	HistoryLength int
	Language      string
	IntentMatched bool
	Category      intent.Category
}

// ResponderService campus-backend 的回复逻辑：校园意图优先，其次闲聊，最后按语言兜底
type ResponderService struct {
	intents   *intent.Classifier
	smalltalk *intent.Classifier
	loaded    []string
	rand      intent.RandSource
	randMu    sync.Mutex
	logger    *zap.Logger
}

// NewResponderService 创建回复服务，loaded 为已加载的 Dialogflow 意图名
func NewResponderService(
	campus *intent.Registry,
	smalltalk *intent.Registry,
	loaded []string,
	src intent.RandSource,
	logger *zap.Logger,
) *ResponderService {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	names := append([]string(nil), loaded...)
	sort.Strings(names)

	return &ResponderService{
		intents:   intent.NewClassifier(campus),
		smalltalk: intent.NewClassifier(smalltalk),
		loaded:    names,
		rand:      src,
		logger:    logger,
	}
}

// DetectLanguage 包含天城文字符时判定为印地语，否则为英语
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.In(r, unicode.Devanagari) {
			return "hi"
		}
	}
	return "en"
}

// Respond 生成回复，historyLength 原样回传
func (s *ResponderService) Respond(message string, historyLength int) ResponderResult {
	message = strings.TrimSpace(message)
	if message == "" {
		return ResponderResult{Reply: EmptyMessageReply, HistoryLength: historyLength}
	}

	lang := DetectLanguage(message)
	result := ResponderResult{HistoryLength: historyLength, Language: lang}

	if def, ok := s.intents.Match(message); ok {
		result.Reply = s.pick(def.RepliesIn(lang))
		result.IntentMatched = true
		result.Category = def.Category
	} else if def, ok := s.smalltalk.Match(message); ok {
		result.Reply = s.pick(def.RepliesIn(lang))
		result.Category = def.Category
	}

	if result.Reply == "" {
		reply, ok := intent.DefaultReplies[lang]
		if !ok {
			reply = intent.DefaultReplies["en"]
		}
		result.Reply = reply
		result.Category = intent.Default
	}

	s.logger.Debug("生成回复",
		zap.String("language", lang),
		zap.String("category", string(result.Category)),
		zap.Bool("intentMatched", result.IntentMatched))
	return result
}

// Intents 已加载的 Dialogflow 意图名
func (s *ResponderService) Intents() []string {
	return append([]string(nil), s.loaded...)
}

func (s *ResponderService) pick(replies []string) string {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return intent.Pick(replies, s.rand)
}
