// Package mailbox 按从 1 开始的序号读取 POP3 或 IMAP 收件箱中的原始邮件
package mailbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailtriage/pkg/config"
)

const defaultTimeout = 30 * time.Second

// Session 一个已认证的收件箱连接，序号从 1 开始
type Session interface {
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context, index int) ([]byte, error)
	Close() error
}

// Opener 打开 Session
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// New 按 cfg.Protocol 返回对应的 Opener，默认 pop3
func New(cfg config.MailboxConfig, logger *zap.Logger) (Opener, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	switch strings.ToLower(cfg.Protocol) {
	case "", "pop3":
		if cfg.Port == 0 {
			cfg.Port = 110
			if cfg.TLS {
				cfg.Port = 995
			}
		}
		return &POP3Opener{cfg: cfg, logger: logger}, nil
	case "imap":
		if cfg.Port == 0 {
			cfg.Port = 143
			if cfg.TLS {
				cfg.Port = 993
			}
		}
		if cfg.Folder == "" {
			cfg.Folder = "INBOX"
		}
		return &IMAPOpener{cfg: cfg, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported mailbox protocol %q", cfg.Protocol)
	}
}
