package mq

import "time"

// RoutingKeyTriageCompleted 每封邮件处理结束后发布
const RoutingKeyTriageCompleted = "mail.triage.completed"

// TriageCompletedPayload 邮件分类（及可选回复）完成事件的 payload
type TriageCompletedPayload struct {
	TraceID         string    `json:"trace_id,omitempty"`
	Index           int       `json:"index"`
	MessageID       string    `json:"message_id,omitempty"`
	Subject         string    `json:"subject"`
	From            string    `json:"from"`
	Priority        int       `json:"priority"`
	Urgency         string    `json:"urgency"`
	NeedsReply      bool      `json:"needs_reply"`
	RequiredActions []string  `json:"required_actions"`
	MainPurpose     string    `json:"main_purpose"`
	Fallback        bool      `json:"fallback"`
	ReplyStatus     string    `json:"reply_status"` // none, sent, failed, skipped
	ProcessedAt     time.Time `json:"processed_at"`
}
