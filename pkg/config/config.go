package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// MailboxConfig 收件箱（POP3 / IMAP）配置
type MailboxConfig struct {
	Protocol string        `yaml:"protocol"` // pop3 或 imap
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	TLS      bool          `yaml:"tls"`
	Folder   string        `yaml:"folder"` // 仅 IMAP 使用
	Timeout  time.Duration `yaml:"timeout"`
}

// SMTPConfig 发件配置
type SMTPConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	From        string        `yaml:"from"`
	ImplicitTLS bool          `yaml:"implicit_tls"` // true: 465 直连 TLS；false: STARTTLS
	Timeout     time.Duration `yaml:"timeout"`
}

// LLMConfig 文本生成服务配置（OpenAI 兼容接口）
type LLMConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Language string        `yaml:"language"` // 提示词语言：en | ko
	Timeout  time.Duration `yaml:"timeout"`
}

// ReplyConfig 自动回复策略
type ReplyConfig struct {
	Enabled          bool     `yaml:"enabled"`
	SendFailedDrafts bool     `yaml:"send_failed_drafts"`
	Cc               []string `yaml:"cc"`
	Bcc              []string `yaml:"bcc"`
}

// MQConfig 消息队列配置，URL 为空时不发布事件
type MQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// RedisConfig Redis配置，Addr 为空时不加运行锁
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// MetricsConfig 指标暴露配置，Addr 为空时不监听
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// OverrideMailboxFromEnv 从环境变量覆盖收件箱配置
// POP3_SERVER / IMAP_SERVER 切换了协议而没给 MAILBOX_PORT 时，端口清零，由 mailbox 按协议和 TLS 取默认值
func OverrideMailboxFromEnv(cfg *MailboxConfig) {
	before := mailboxProtocol(cfg.Protocol)
	if host := os.Getenv("POP3_SERVER"); host != "" {
		cfg.Protocol = "pop3"
		cfg.Host = host
	}
	if host := os.Getenv("IMAP_SERVER"); host != "" {
		cfg.Protocol = "imap"
		cfg.Host = host
	}
	if mailboxProtocol(cfg.Protocol) != before && os.Getenv("MAILBOX_PORT") == "" {
		cfg.Port = 0
	}
	if port := os.Getenv("MAILBOX_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("EMAIL_ACCOUNT"); user != "" {
		cfg.Username = user
	}
	if password := os.Getenv("EMAIL_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

func mailboxProtocol(p string) string {
	if p = strings.ToLower(strings.TrimSpace(p)); p == "" {
		return "pop3"
	}
	return p
}

// OverrideSMTPFromEnv 从环境变量覆盖 SMTP 配置
// 账号密码与收件箱共用 EMAIL_ACCOUNT / EMAIL_PASSWORD
func OverrideSMTPFromEnv(cfg *SMTPConfig) {
	if host := os.Getenv("SMTP_SERVER"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("EMAIL_ACCOUNT"); user != "" {
		cfg.Username = user
		if cfg.From == "" {
			cfg.From = user
		}
	}
	if password := os.Getenv("EMAIL_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideLLMFromEnv 从环境变量覆盖文本生成服务配置
func OverrideLLMFromEnv(cfg *LLMConfig) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		cfg.BaseURL = url
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.Model = model
	}
	if lang := os.Getenv("PROMPT_LANGUAGE"); lang != "" {
		cfg.Language = lang
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideMetricsFromEnv 从环境变量覆盖指标配置
func OverrideMetricsFromEnv(cfg *MetricsConfig) {
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
}

// SplitList 把逗号分隔的环境变量值拆成列表，空项丢弃
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
