package mailbox

import (
	"context"
	"fmt"

	"github.com/knadh/go-pop3"
	"go.uber.org/zap"

	"mailtriage/pkg/config"
)

// POP3Opener 打开 POP3 会话，只取信不删信
type POP3Opener struct {
	cfg    config.MailboxConfig
	logger *zap.Logger
}

func (o *POP3Opener) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := pop3.New(pop3.Opt{
		Host:        o.cfg.Host,
		Port:        o.cfg.Port,
		TLSEnabled:  o.cfg.TLS,
		DialTimeout: o.cfg.Timeout,
	})

	conn, err := client.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connecting to POP3 %s:%d: %w", o.cfg.Host, o.cfg.Port, err)
	}

	if err := conn.Auth(o.cfg.Username, o.cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("POP3 login failed for %s: %w", o.cfg.Username, err)
	}

	o.logger.Debug("POP3 session opened",
		zap.String("host", o.cfg.Host),
		zap.Int("port", o.cfg.Port),
	)
	return &pop3Session{conn: conn}, nil
}

type pop3Session struct {
	conn *pop3.Conn
}

func (s *pop3Session) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count, _, err := s.conn.Stat()
	if err != nil {
		return 0, fmt.Errorf("POP3 STAT: %w", err)
	}
	return count, nil
}

func (s *pop3Session) Fetch(ctx context.Context, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := s.conn.RetrRaw(index)
	if err != nil {
		return nil, fmt.Errorf("POP3 RETR %d: %w", index, err)
	}
	return buf.Bytes(), nil
}

// Close 发送 QUIT 并结束连接
func (s *pop3Session) Close() error {
	return s.conn.Quit()
}
