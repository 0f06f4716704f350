package sender

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"mailtriage/pkg/config"
)

const defaultSMTPTimeout = 30 * time.Second

// SMTPTransport 每封邮件建立一个 SMTP 会话
type SMTPTransport struct {
	cfg    config.SMTPConfig
	tlsCfg *tls.Config // 为空时按 Host 校验证书
	logger *zap.Logger
}

func NewSMTPTransport(cfg config.SMTPConfig, logger *zap.Logger) *SMTPTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	if cfg.Port == 0 {
		cfg.Port = 587
		if cfg.ImplicitTLS {
			cfg.Port = 465
		}
	}
	return &SMTPTransport{cfg: cfg, logger: logger}
}

// SendEnvelope 建连、升级 TLS、认证后提交 msg，任何路径都会关闭连接
func (t *SMTPTransport) SendEnvelope(ctx context.Context, from string, to []string, msg []byte) error {
	if len(to) == 0 {
		return fmt.Errorf("smtp: no recipients")
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if !t.cfg.ImplicitTLS {
		if err := client.StartTLS(t.tlsConfig()); err != nil {
			return fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}

	if t.cfg.Username != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("SMTP DATA rejected: %w", err)
	}

	// 服务器已接受 DATA，QUIT 失败不影响结果
	if err := client.Quit(); err != nil {
		t.logger.Debug("SMTP QUIT failed after delivery", zap.Error(err))
	}
	return nil
}

func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))

	if t.cfg.ImplicitTLS {
		d := &tls.Dialer{Config: t.tlsConfig()}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("TLS dial to %s: %w", addr, err)
		}
		return conn, nil
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial to %s: %w", addr, err)
	}
	return conn, nil
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	if t.tlsCfg == nil {
		return &tls.Config{ServerName: t.cfg.Host}
	}
	c := t.tlsCfg.Clone()
	if c.ServerName == "" {
		c.ServerName = t.cfg.Host
	}
	return c
}
