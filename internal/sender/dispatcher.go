// Package sender 组装纯文本外发邮件并交给 SMTP 传输
package sender

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"mailtriage/pkg/metrics"
	"mailtriage/pkg/trace"
	"mailtriage/pkg/util"
)

const replyPrefix = "Re:"

// Transport 将组装好的邮件投递给信封收件人
type Transport interface {
	SendEnvelope(ctx context.Context, from string, to []string, msg []byte) error
}

// Dispatcher 以固定账户发信，不重试
type Dispatcher struct {
	from      string
	transport Transport
	logger    *zap.Logger
	now       func() time.Time
}

func NewDispatcher(from string, transport Transport, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		from:      from,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}
}

// ReplySubject 主题不以 "Re:" 开头时加上 "Re: " 前缀，区分大小写
func ReplySubject(subject string) string {
	if strings.HasPrefix(subject, replyPrefix) {
		return subject
	}
	return replyPrefix + " " + subject
}

// SendReply 以 originalSubject 的回复形式发送 body
func (d *Dispatcher) SendReply(ctx context.Context, to, originalSubject, body string, cc, bcc []string) bool {
	ok := d.Send(ctx, to, ReplySubject(originalSubject), body, cc, bcc)
	if ok {
		metrics.IncrementReplies("sent")
	} else {
		metrics.IncrementReplies("failed")
	}
	return ok
}

// Send 返回服务器是否接受了邮件，失败会记录日志
func (d *Dispatcher) Send(ctx context.Context, to, subject, body string, cc, bcc []string) bool {
	logger := d.logger.With(
		zap.String("trace_id", trace.FromContext(ctx)),
		zap.String("to", to),
		zap.String("subject", subject),
	)

	if toAddress(to).Address == "" {
		logger.Error("Refusing to send without a primary recipient")
		return false
	}

	msg, err := d.compose(to, subject, body, cc)
	if err != nil {
		logger.Error("Failed to compose message", zap.Error(err))
		return false
	}

	rcpts := envelopeRecipients(to, cc, bcc)
	start := time.Now()
	err = d.transport.SendEnvelope(ctx, toAddress(d.from).Address, rcpts, msg)
	if err != nil {
		metrics.RecordSendDuration("failed", time.Since(start))
		_, errType := util.ClassifyError(err)
		logger.Error("Failed to send message",
			zap.String("error_type", errType),
			zap.Int("recipients", len(rcpts)),
			zap.Error(err),
		)
		return false
	}

	metrics.RecordSendDuration("sent", time.Since(start))
	logger.Info("Message sent", zap.Int("recipients", len(rcpts)))
	return true
}

// compose 构造 UTF-8 的 text/plain 邮件，Bcc 不写入头部
func (d *Dispatcher) compose(to, subject, body string, cc []string) ([]byte, error) {
	var h gomail.Header
	h.SetDate(d.now())
	h.SetAddressList("From", []*gomail.Address{toAddress(d.from)})
	h.SetAddressList("To", []*gomail.Address{toAddress(to)})
	if len(cc) > 0 {
		list := make([]*gomail.Address, 0, len(cc))
		for _, a := range cc {
			list = append(list, toAddress(a))
		}
		h.SetAddressList("Cc", list)
	}
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "UTF-8"})

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}
	return buf.Bytes(), nil
}

func toAddress(s string) *gomail.Address {
	if addr, err := gomail.ParseAddress(s); err == nil {
		return addr
	}
	return &gomail.Address{Address: strings.TrimSpace(s)}
}

// envelopeRecipients 合并 to、cc 和 bcc 的裸地址，去掉空项
func envelopeRecipients(to string, cc, bcc []string) []string {
	all := make([]string, 0, 1+len(cc)+len(bcc))
	for _, list := range [][]string{{to}, cc, bcc} {
		for _, a := range list {
			if a = toAddress(a).Address; a != "" {
				all = append(all, a)
			}
		}
	}
	return all
}
