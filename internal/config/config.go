package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/campusbot/campusbot-go/internal/apperr"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server       ServerConfig        `yaml:"server"`
	Redis        RedisConfig         `yaml:"redis"`
	Storage      StorageConfig       `yaml:"storage"`
	Backend      BackendConfig       `yaml:"backend"`
	MaxMessages  int                 `yaml:"maxMessages"`
	TypingDelay  DelayConfig         `yaml:"typingDelay"`
	Welcome      string              `yaml:"welcome"`
	QuickActions []QuickActionConfig `yaml:"quickActions"`
	Intents      IntentsConfig       `yaml:"intents"`
	Log          LogConfig           `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Name           string   `yaml:"name"`
	AllowedOrigins []string `yaml:"allowedOrigins"` // 为空时允许任意来源
	IdleMinutes    int      `yaml:"idleMinutes"`    // 访客空闲多久后从内存释放，0 表示不释放
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig 会话历史存储配置
type StorageConfig struct {
	Driver    string `yaml:"driver"` // memory, redis, file
	KeyPrefix string `yaml:"keyPrefix"`
	Dir       string `yaml:"dir"`      // file 驱动的目录
	TTLHours  int    `yaml:"ttlHours"` // redis 驱动的过期时间，0 表示不过期
}

// BackendConfig 远程聊天后端配置
type BackendConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIBaseURL string `yaml:"apiBaseUrl"`
	TimeoutMS  int    `yaml:"timeout"`
}

// DelayConfig 本地兜底回复的模拟“思考”延迟（毫秒）
type DelayConfig struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// QuickActionConfig 快捷问题按钮
type QuickActionConfig struct {
	Label string `yaml:"label" json:"label"`
	Text  string `yaml:"text" json:"text"`
}

// IntentsConfig campus-backend 的意图导出目录
type IntentsConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

const (
	DefaultMaxMessages = 50
	DefaultTimeoutMS   = 10000
	DefaultKeyPrefix   = "edubot-conversations-v2"
	DefaultWelcome     = "Hello! I'm your campus assistant. How can I help you today?"
)

// Default 返回默认配置，LoadConfig 在此基础上覆盖
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, Name: "campus-widget", IdleMinutes: 30},
		Redis:  RedisConfig{Host: "127.0.0.1", Port: 6379},
		Storage: StorageConfig{
			Driver:    "memory",
			KeyPrefix: DefaultKeyPrefix,
			Dir:       ".campusbot",
			TTLHours:  24,
		},
		Backend: BackendConfig{
			Enabled:    true,
			APIBaseURL: "http://localhost:3001",
			TimeoutMS:  DefaultTimeoutMS,
		},
		MaxMessages: DefaultMaxMessages,
		TypingDelay: DelayConfig{Min: 800, Max: 1500},
		Welcome:     DefaultWelcome,
		QuickActions: []QuickActionConfig{
			{Label: "Fees", Text: "What are the fee deadlines?"},
			{Label: "Scholarship", Text: "Scholarship forms and eligibility?"},
			{Label: "Exam Dates", Text: "Upcoming exam dates?"},
			{Label: "Timetable", Text: "Timetable for this semester"},
			{Label: "Results", Text: "Latest results"},
			{Label: "Hostel", Text: "Hostel admission process"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig 加载配置文件
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	return Parse(data)
}

// Parse 解析 YAML 配置并校验，缺省字段使用默认值
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.MaxMessages <= 0 {
		return apperr.Config("validate", fmt.Errorf("maxMessages 必须大于 0, 当前 %d", c.MaxMessages))
	}
	if c.TypingDelay.Min < 0 || c.TypingDelay.Max < c.TypingDelay.Min {
		return apperr.Config("validate", fmt.Errorf("typingDelay 无效: min=%d max=%d", c.TypingDelay.Min, c.TypingDelay.Max))
	}
	if c.Backend.TimeoutMS < 0 {
		return apperr.Config("validate", fmt.Errorf("backend.timeout 不能为负数"))
	}
	if c.Server.IdleMinutes < 0 {
		return apperr.Config("validate", fmt.Errorf("server.idleMinutes 不能为负数"))
	}
	switch c.Storage.Driver {
	case "memory", "redis", "file":
	default:
		return apperr.Config("validate", fmt.Errorf("未知的 storage.driver: %q", c.Storage.Driver))
	}
	if strings.TrimSpace(c.Storage.KeyPrefix) == "" {
		return apperr.Config("validate", fmt.Errorf("storage.keyPrefix 不能为空"))
	}
	return nil
}

// BackendActive 后端开关打开且配置了地址时才走远程调用
func (b BackendConfig) BackendActive() bool {
	return b.Enabled && strings.TrimSpace(b.APIBaseURL) != ""
}

// Timeout 远程调用超时
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMS <= 0 {
		return DefaultTimeoutMS * time.Millisecond
	}
	return time.Duration(b.TimeoutMS) * time.Millisecond
}

// Bounds 延迟窗口
func (d DelayConfig) Bounds() (time.Duration, time.Duration) {
	return time.Duration(d.Min) * time.Millisecond, time.Duration(d.Max) * time.Millisecond
}

// IdleTTL 访客空闲释放时间
func (s ServerConfig) IdleTTL() time.Duration {
	return time.Duration(s.IdleMinutes) * time.Minute
}

// TTL Redis 过期时间
func (s StorageConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}
