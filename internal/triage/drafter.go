package triage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailtriage/internal/mail"
	"mailtriage/pkg/util"
)

// Drafter 调用生成服务撰写回复正文
type Drafter struct {
	gen     Generator
	prompts *Prompts
	logger  *zap.Logger
}

func NewDrafter(gen Generator, prompts *Prompts, logger *zap.Logger) *Drafter {
	if prompts == nil {
		prompts = PromptsEN
	}
	return &Drafter{gen: gen, prompts: prompts, logger: logger}
}

// FailedText 出错时 Draft 返回的占位文本
func (d *Drafter) FailedText() string {
	return d.prompts.DraftFailed
}

// Draft 原样返回生成的回复，失败时返回 FailedText 和错误
func (d *Drafter) Draft(ctx context.Context, msg mail.Message, r Result) (string, error) {
	prompt := fmt.Sprintf(d.prompts.DraftUser,
		msg.From, msg.Subject, msg.Body,
		r.Priority(), r.Urgency(), r.MainPurpose(),
	)

	text, err := d.gen.Complete(ctx, d.prompts.DraftSystem, prompt)
	if err != nil {
		_, errType := util.ClassifyError(err)
		d.logger.Warn("Reply drafting failed",
			zap.String("subject", msg.Subject),
			zap.String("error_type", errType),
			zap.Error(err),
		)
		return d.prompts.DraftFailed, fmt.Errorf("draft reply: %w", err)
	}

	return text, nil
}
