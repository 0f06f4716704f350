package mailbox

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"mailtriage/pkg/config"
)

// IMAPOpener 在指定文件夹上打开 IMAP 会话
// 用 BODY.PEEK 取正文，不改动 \Seen 标记
type IMAPOpener struct {
	cfg    config.MailboxConfig
	logger *zap.Logger
}

func (o *IMAPOpener) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(o.cfg.Host, strconv.Itoa(o.cfg.Port))

	var client *imapclient.Client
	var err error
	if o.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(o.cfg.Username, o.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, fmt.Errorf("IMAP login failed for %s: %w", o.cfg.Username, err)
	}

	data, err := client.Select(o.cfg.Folder, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, fmt.Errorf("selecting %s: %w", o.cfg.Folder, err)
	}

	o.logger.Debug("IMAP session opened",
		zap.String("addr", addr),
		zap.String("folder", o.cfg.Folder),
		zap.Uint32("messages", data.NumMessages),
	)
	return &imapSession{client: client, count: int(data.NumMessages)}, nil
}

type imapSession struct {
	client *imapclient.Client
	count  int
}

// Count 返回 SELECT 报告的邮件数
func (s *imapSession) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.count, nil
}

func (s *imapSession) Fetch(ctx context.Context, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 1 || index > s.count {
		return nil, fmt.Errorf("message %d out of range 1..%d", index, s.count)
	}

	section := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := s.client.Fetch(imap.SeqSetNum(uint32(index)), &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message %d not found", index)
	}
	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message %d: %w", index, err)
	}
	raw := buf.FindBodySection(section)

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching message %d: %w", index, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("message %d has no body", index)
	}
	return raw, nil
}

// Close 登出并断开连接，只返回 LOGOUT 的结果
func (s *imapSession) Close() error {
	err := s.client.Logout().Wait()
	_ = s.client.Close()
	return err
}
