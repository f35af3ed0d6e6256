package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Category 意图分类
type Category string

// 组件内置的封闭分类集合
const (
	Greeting    Category = "greeting"
	Fee         Category = "fee"
	Scholarship Category = "scholarship"
	Exam        Category = "exam"
	Admission   Category = "admission"
	Hostel      Category = "hostel"
	Default     Category = "default"
)

// PriorityOrder 组件分类的匹配优先级，Default 不参与匹配
var PriorityOrder = []Category{Greeting, Fee, Scholarship, Exam, Admission, Hostel}

// Definition 分类定义：关键词 + 候选回复
type Definition struct {
	Category    Category            `json:"category"`
	Description string              `json:"description,omitempty"`
	Keywords    []string            `json:"keywords"`
	Replies     []string            `json:"replies"`             // 默认语言（en）回复
	Localized   map[string][]string `json:"localized,omitempty"` // 其他语言回复，key 为语言代码

	pattern *regexp.Regexp
}

// compile 将关键词编译为不区分词边界的交替正则
func (d *Definition) compile() error {
	if len(d.Keywords) == 0 {
		d.pattern = nil
		return nil
	}

	alternatives := make([]string, 0, len(d.Keywords))
	for _, kw := range d.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return fmt.Errorf("category %s has an empty keyword", d.Category)
		}
		alternatives = append(alternatives, regexp.QuoteMeta(kw))
	}

	re, err := regexp.Compile("(" + strings.Join(alternatives, "|") + ")")
	if err != nil {
		return fmt.Errorf("compile keywords of %s: %w", d.Category, err)
	}
	d.pattern = re
	return nil
}

// Matches 判断已归一化（小写）的文本是否命中关键词，子串命中也算
func (d *Definition) Matches(normalized string) bool {
	return d.pattern != nil && d.pattern.MatchString(normalized)
}

// RepliesIn 返回指定语言的回复，没有则退回默认语言
func (d *Definition) RepliesIn(lang string) []string {
	if replies, ok := d.Localized[lang]; ok && len(replies) > 0 {
		return replies
	}
	return d.Replies
}

// Normalize 归一化输入：仅转小写，天城文等其他文字保持不变
func Normalize(text string) string {
	return strings.ToLower(text)
}
