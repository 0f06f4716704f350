package config

import (
	"errors"
	"fmt"
	"strings"

	"mailtriage/pkg/config"
)

// Config 是 mailtriage 的完整运行配置
type Config struct {
	Mailbox config.MailboxConfig `yaml:"mailbox"`
	SMTP    config.SMTPConfig    `yaml:"smtp"`
	LLM     config.LLMConfig     `yaml:"llm"`
	Reply   config.ReplyConfig   `yaml:"reply"`
	MQ      config.MQConfig      `yaml:"mq"`
	Redis   config.RedisConfig   `yaml:"redis"`
	Metrics config.MetricsConfig `yaml:"metrics"`
}

// Load 读取 CONFIG_DIR 下的配置文件，再用环境变量覆盖
func Load() (*Config, error) {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")
	return LoadFrom(env, configDir)
}

// LoadFrom 同 Load，但显式指定环境和目录
func LoadFrom(env, configDir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideMailboxFromEnv(&cfg.Mailbox)
	config.OverrideSMTPFromEnv(&cfg.SMTP)
	config.OverrideLLMFromEnv(&cfg.LLM)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMetricsFromEnv(&cfg.Metrics)

	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	return &cfg, nil
}

// Validate 检查运行一轮所必需的配置项，一次报告全部缺失
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	require("mailbox.host", c.Mailbox.Host)
	require("mailbox.username", c.Mailbox.Username)
	require("mailbox.password", c.Mailbox.Password)
	require("llm.api_key", c.LLM.APIKey)

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", ")))
	}
	if c.Reply.Enabled {
		if err := c.ValidateSMTP(); err != nil {
			errs = append(errs, err)
		}
	}
	switch strings.ToLower(c.Mailbox.Protocol) {
	case "", "pop3", "imap":
	default:
		errs = append(errs, fmt.Errorf("mailbox.protocol must be pop3 or imap, got %q", c.Mailbox.Protocol))
	}
	return errors.Join(errs...)
}

// ValidateSMTP 只检查发件配置（send-test 使用）
func (c *Config) ValidateSMTP() error {
	var missing []string
	if strings.TrimSpace(c.SMTP.Host) == "" {
		missing = append(missing, "smtp.host")
	}
	if strings.TrimSpace(c.SMTP.From) == "" {
		missing = append(missing, "smtp.from")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
