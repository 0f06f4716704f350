package triage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailtriage/internal/mail"
	"mailtriage/pkg/util"
)

// Generator 请求/响应式的文本生成服务
type Generator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Classifier 调用生成服务对邮件分诊
type Classifier struct {
	gen     Generator
	prompts *Prompts
	logger  *zap.Logger
}

func NewClassifier(gen Generator, prompts *Prompts, logger *zap.Logger) *Classifier {
	if prompts == nil {
		prompts = PromptsEN
	}
	return &Classifier{gen: gen, prompts: prompts, logger: logger}
}

// Classify 总是返回可用的 Result
// err 非空时结果为 FallbackResult，该邮件不能自动回复
func (c *Classifier) Classify(ctx context.Context, msg mail.Message) (Result, error) {
	prompt := fmt.Sprintf(c.prompts.ClassifyUser, msg.From, msg.Subject, msg.Body)

	text, err := c.gen.Complete(ctx, c.prompts.ClassifySystem, prompt)
	if err != nil {
		_, errType := util.ClassifyError(err)
		c.logger.Warn("Classification failed, using fallback result",
			zap.String("subject", msg.Subject),
			zap.String("error_type", errType),
			zap.Error(err),
		)
		return FallbackResult(), fmt.Errorf("classify: %w", err)
	}

	return Extract(text), nil
}
