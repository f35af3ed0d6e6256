package intent

import (
	"fmt"
	"sync"

	"github.com/campusbot/campusbot-go/internal/apperr"
	"go.uber.org/zap"
)

// Registry 分类注册中心，按注册顺序决定匹配优先级
type Registry struct {
	order       []Category
	definitions map[Category]*Definition
	fallback    *Definition
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewRegistry 创建分类注册中心
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		definitions: make(map[Category]*Definition),
		logger:      logger,
	}
}

// Register 注册参与匹配的分类
func (r *Registry) Register(def *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.Category == "" {
		return fmt.Errorf("category name cannot be empty")
	}
	if len(def.Keywords) == 0 {
		return fmt.Errorf("category %s has no keywords", def.Category)
	}
	if _, exists := r.definitions[def.Category]; exists {
		return fmt.Errorf("category already registered: %s", def.Category)
	}
	if err := def.compile(); err != nil {
		return err
	}

	r.definitions[def.Category] = def
	r.order = append(r.order, def.Category)
	r.logger.Debug("分类已注册",
		zap.String("category", string(def.Category)),
		zap.Int("keywords", len(def.Keywords)),
		zap.Int("replies", len(def.Replies)))
	return nil
}

// SetFallback 设置兜底分类，不参与关键词匹配
func (r *Registry) SetFallback(def *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.Category == "" {
		return fmt.Errorf("category name cannot be empty")
	}
	if _, exists := r.definitions[def.Category]; exists {
		return fmt.Errorf("category already registered: %s", def.Category)
	}
	r.fallback = def
	r.definitions[def.Category] = def
	return nil
}

// Get 获取分类定义
func (r *Registry) Get(category Category) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[category]
	if !ok {
		return nil, apperr.Config("lookup category", fmt.Errorf("category not found: %s", category))
	}
	return def, nil
}

// RepliesFor 返回分类的候选回复，未知分类返回 ConfigError
func (r *Registry) RepliesFor(category Category) ([]string, error) {
	def, err := r.Get(category)
	if err != nil {
		return nil, err
	}
	if len(def.Replies) == 0 {
		return nil, apperr.Config("replies for", fmt.Errorf("category %s has no replies", category))
	}
	return def.Replies, nil
}

// SetReplies 替换分类某语言的回复，en 替换默认回复；分类不存在或回复为空时忽略
func (r *Registry) SetReplies(category Category, lang string, replies []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.definitions[category]
	if !ok || len(replies) == 0 {
		return false
	}
	if lang == "en" {
		def.Replies = replies
		return true
	}
	if def.Localized == nil {
		def.Localized = make(map[string][]string)
	}
	def.Localized[lang] = replies
	return true
}

// Ordered 按优先级返回参与匹配的分类定义
func (r *Registry) Ordered() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, len(r.order))
	for i, c := range r.order {
		defs[i] = r.definitions[c]
	}
	return defs
}

// Fallback 兜底分类
func (r *Registry) Fallback() *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}

// Names 所有分类名，匹配顺序在前，兜底分类在最后
func (r *Registry) Names() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := append([]Category(nil), r.order...)
	if r.fallback != nil {
		names = append(names, r.fallback.Category)
	}
	return names
}

// Validate 启动时校验：兜底分类存在，每个分类至少一条回复，required 分类都已注册
func (r *Registry) Validate(required ...Category) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.fallback == nil {
		return apperr.Config("validate catalog", fmt.Errorf("fallback category not set"))
	}
	for _, c := range required {
		if _, ok := r.definitions[c]; !ok {
			return apperr.Config("validate catalog", fmt.Errorf("required category missing: %s", c))
		}
	}
	for c, def := range r.definitions {
		if len(def.Replies) == 0 {
			return apperr.Config("validate catalog", fmt.Errorf("category %s has no replies", c))
		}
		for lang, replies := range def.Localized {
			if len(replies) == 0 {
				return apperr.Config("validate catalog", fmt.Errorf("category %s has no %s replies", c, lang))
			}
		}
	}
	return nil
}

// Count 获取分类数量（含兜底分类）
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.definitions)
}
