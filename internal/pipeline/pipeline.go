// Package pipeline 对收件箱执行一轮分诊：取信、解码、分类，需要时撰写并发送回复
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	mqcontracts "mailtriage/contracts/mq"
	"mailtriage/internal/mail"
	"mailtriage/internal/mailbox"
	"mailtriage/internal/triage"
	"mailtriage/pkg/config"
	"mailtriage/pkg/logger"
	"mailtriage/pkg/metrics"
	"mailtriage/pkg/trace"
	"mailtriage/pkg/util"
)

// 回复状态，写入 Outcome 和分诊事件
const (
	ReplyNone    = "none"
	ReplySent    = "sent"
	ReplyFailed  = "failed"
	ReplySkipped = "skipped"
)

type Classifier interface {
	Classify(ctx context.Context, msg mail.Message) (triage.Result, error)
}

type Drafter interface {
	Draft(ctx context.Context, msg mail.Message, r triage.Result) (string, error)
}

type Dispatcher interface {
	SendReply(ctx context.Context, to, originalSubject, body string, cc, bcc []string) bool
}

// EventPublisher 每处理一封邮件接收一个事件，可选
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Outcome 单封邮件的处理结果，仅用于日志、指标和事件
type Outcome struct {
	Index       int
	Subject     string
	From        string
	MessageID   string
	Result      triage.Result
	Fallback    bool
	ReplyStatus string
	DraftFailed bool
	Err         error
}

// Summary 一次 Run 的汇总
// Failed 统计 Outcome 带任何错误的邮件，包括回退结果
type Summary struct {
	Total        int
	Processed    int
	Failed       int
	Fallbacks    int
	RepliesSent  int
	ReplyFailed  int
	ReplySkipped int
}

func (s *Summary) add(o Outcome) {
	s.Processed++
	if o.Err != nil {
		s.Failed++
	}
	if o.Fallback {
		s.Fallbacks++
	}
	switch o.ReplyStatus {
	case ReplySent:
		s.RepliesSent++
	case ReplyFailed:
		s.ReplyFailed++
	case ReplySkipped:
		s.ReplySkipped++
	}
}

// BatchError 表示收件箱本身出错，后续邮件未读取
type BatchError struct {
	Stage string // open、count 或 fetch
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	if e.Stage == "fetch" {
		return fmt.Sprintf("mailbox %s %d: %v", e.Stage, e.Index, e.Err)
	}
	return fmt.Sprintf("mailbox %s: %v", e.Stage, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

type Pipeline struct {
	opener     mailbox.Opener
	classifier Classifier
	drafter    Drafter
	dispatcher Dispatcher
	publisher  EventPublisher
	reply      config.ReplyConfig
	logger     *zap.Logger
	now        func() time.Time
}

func New(opener mailbox.Opener, classifier Classifier, drafter Drafter, dispatcher Dispatcher, reply config.ReplyConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		opener:     opener,
		classifier: classifier,
		drafter:    drafter,
		dispatcher: dispatcher,
		reply:      reply,
		logger:     logger,
		now:        time.Now,
	}
}

// WithPublisher 设置分诊事件的发布目标，nil 表示不发布
func (p *Pipeline) WithPublisher(pub EventPublisher) *Pipeline {
	p.publisher = pub
	return p
}

// Run 按序号处理收件箱中的每封邮件
// 单封邮件出错不会中断批次，收件箱出错时返回 *BatchError
func (p *Pipeline) Run(ctx context.Context) (summary Summary, err error) {
	log := logger.WithTrace(ctx, p.logger)

	session, err := p.opener.Open(ctx)
	if err != nil {
		return summary, &BatchError{Stage: "open", Err: err}
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("Failed to close mailbox session", zap.Error(cerr))
		}
	}()

	count, err := session.Count(ctx)
	if err != nil {
		return summary, &BatchError{Stage: "count", Err: err}
	}
	summary.Total = count
	log.Info("Mailbox opened", zap.Int("messages", count))

	for i := 1; i <= count; i++ {
		raw, err := session.Fetch(ctx, i)
		if err != nil {
			return summary, &BatchError{Stage: "fetch", Index: i, Err: err}
		}
		summary.add(p.ProcessOne(ctx, raw, i))
	}

	log.Info("Triage pass finished",
		zap.Int("total", summary.Total),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int("fallbacks", summary.Fallbacks),
		zap.Int("replies_sent", summary.RepliesSent),
		zap.Int("replies_failed", summary.ReplyFailed),
		zap.Int("replies_skipped", summary.ReplySkipped),
	)
	return summary, nil
}

// ProcessOne 处理一封原始邮件，panic 会被恢复并写入 Outcome.Err
func (p *Pipeline) ProcessOne(ctx context.Context, raw []byte, index int) (out Outcome) {
	out = Outcome{Index: index, Result: triage.DefaultResult(), ReplyStatus: ReplyNone}
	log := logger.WithTrace(ctx, p.logger).With(zap.Int("index", index))

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic processing message %d: %v", index, r)
			log.Error("Recovered from panic while processing message",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}

		status := "success"
		if out.Err != nil {
			status = "failed"
		}
		metrics.IncrementMessagesProcessed(status)
		p.publish(ctx, out)
	}()

	msg, decodeErr := mail.Parse(raw)
	out.Subject, out.From, out.MessageID = msg.Subject, msg.From, msg.MessageID
	log = log.With(zap.String("subject", msg.Subject), zap.String("from", msg.From))
	if decodeErr != nil {
		log.Warn("Message partially decoded", zap.String("error_type", "decode_error"), zap.Error(decodeErr))
	}
	log.Info("Message decoded", zap.Int("body_len", len(msg.Body)))
	if mail.RequestsResponse(msg.Body) {
		log.Info("Message explicitly asks for a response")
	}

	result, err := p.classifier.Classify(ctx, msg)
	out.Result = result
	if err != nil {
		out.Fallback = true
		out.Err = err
	}
	metrics.IncrementClassification(string(result.Urgency()), out.Fallback)
	log.Info("Message classified",
		zap.Int("priority", result.Priority()),
		zap.String("urgency", string(result.Urgency())),
		zap.Bool("needs_reply", result.NeedsReply()),
		zap.Strings("required_actions", result.RequiredActions()),
		zap.String("main_purpose", result.MainPurpose()),
		zap.Bool("fallback", out.Fallback),
	)

	if !result.NeedsReply() {
		return out
	}

	if !p.reply.Enabled {
		out.ReplyStatus = ReplySkipped
		metrics.IncrementReplies(ReplySkipped)
		log.Info("Reply needed but auto-reply is disabled")
		return out
	}

	to := mail.ReplyAddress(msg.From)
	if !strings.Contains(to, "@") {
		out.ReplyStatus = ReplySkipped
		metrics.IncrementReplies(ReplySkipped)
		log.Warn("Reply needed but sender has no usable address, not sending")
		return out
	}

	body, err := p.drafter.Draft(ctx, msg, result)
	if err != nil {
		out.DraftFailed = true
		out.Err = err
		if !p.reply.SendFailedDrafts {
			out.ReplyStatus = ReplySkipped
			metrics.IncrementReplies(ReplySkipped)
			_, errType := util.ClassifyError(err)
			log.Warn("Reply draft failed, not sending", zap.String("error_type", errType))
			return out
		}
	}

	if p.dispatcher.SendReply(ctx, to, msg.Subject, body, p.reply.Cc, p.reply.Bcc) {
		out.ReplyStatus = ReplySent
		log.Info("Reply sent", zap.String("to", to))
	} else {
		out.ReplyStatus = ReplyFailed
		if out.Err == nil {
			out.Err = fmt.Errorf("reply to %s was not delivered", to)
		}
		log.Warn("Reply not delivered", zap.String("to", to))
	}
	return out
}

func (p *Pipeline) publish(ctx context.Context, out Outcome) {
	if p.publisher == nil {
		return
	}
	payload := mqcontracts.TriageCompletedPayload{
		TraceID:         trace.FromContext(ctx),
		Index:           out.Index,
		MessageID:       out.MessageID,
		Subject:         out.Subject,
		From:            out.From,
		Priority:        out.Result.Priority(),
		Urgency:         string(out.Result.Urgency()),
		NeedsReply:      out.Result.NeedsReply(),
		RequiredActions: out.Result.RequiredActions(),
		MainPurpose:     out.Result.MainPurpose(),
		Fallback:        out.Fallback,
		ReplyStatus:     out.ReplyStatus,
		ProcessedAt:     p.now().UTC(),
	}
	if err := p.publisher.Publish(ctx, mqcontracts.RoutingKeyTriageCompleted, payload); err != nil {
		p.logger.Warn("Failed to publish triage event",
			zap.Int("index", out.Index),
			zap.Error(err),
		)
	}
}
