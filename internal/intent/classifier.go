package intent

import (
	"strings"
)

// RandSource 随机数来源，*rand.Rand 满足该接口
type RandSource interface {
	Intn(n int) int
}

// Classifier 关键词分类器，创建后只读
type Classifier struct {
	ordered  []*Definition
	fallback Category
}

// NewClassifier 基于注册中心当前内容创建分类器
func NewClassifier(registry *Registry) *Classifier {
	c := &Classifier{
		ordered:  registry.Ordered(),
		fallback: Default,
	}
	if fb := registry.Fallback(); fb != nil {
		c.fallback = fb.Category
	}
	return c
}

// Classify 返回第一个命中的分类，全部未命中返回兜底分类，不会失败
func (c *Classifier) Classify(text string) Category {
	if def, ok := c.Match(text); ok {
		return def.Category
	}
	return c.fallback
}

// Match 按优先级查找第一个命中的分类定义
func (c *Classifier) Match(text string) (*Definition, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	normalized := Normalize(text)
	for _, def := range c.ordered {
		if def.Matches(normalized) {
			return def, true
		}
	}
	return nil, false
}

// Pick 从候选中均匀随机选择一条，候选为空返回空串
func Pick(candidates []string, src RandSource) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[src.Intn(len(candidates))]
}
