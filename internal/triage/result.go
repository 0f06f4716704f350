package triage

// Urgency 邮件的紧急程度分档
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

const (
	minPriority     = 1
	maxPriority     = 5
	defaultPriority = 3

	analysisFailed = "analysis failed"
)

// Result 单封邮件的结构化分诊结果
// 只能通过 DefaultResult 或 FallbackResult 构造，并经由 setter 修改，
// 保证优先级在 1 到 5 之间且 actions 非空
type Result struct {
	priority        int
	urgency         Urgency
	needsReply      bool
	requiredActions []string
	mainPurpose     string
}

// DefaultResult 提取不到任何字段时的结果
func DefaultResult() Result {
	return Result{
		priority:        defaultPriority,
		urgency:         UrgencyMedium,
		requiredActions: []string{},
	}
}

// FallbackResult 生成服务不可用时的替代结果
// NeedsReply 为 false，不会自动回复
func FallbackResult() Result {
	r := DefaultResult()
	r.requiredActions = []string{analysisFailed}
	r.mainPurpose = analysisFailed
	return r
}

func (r Result) Priority() int { return r.priority }

func (r Result) Urgency() Urgency { return r.urgency }

func (r Result) NeedsReply() bool { return r.needsReply }

// RequiredActions 返回副本，修改请用 SetRequiredActions
func (r Result) RequiredActions() []string {
	out := make([]string, len(r.requiredActions))
	copy(out, r.requiredActions)
	return out
}

func (r Result) MainPurpose() string { return r.mainPurpose }

// SetPriority 将 p 限制在 1 到 5 之间
func (r *Result) SetPriority(p int) {
	switch {
	case p < minPriority:
		p = minPriority
	case p > maxPriority:
		p = maxPriority
	}
	r.priority = p
}

// SetUrgency 忽略未知的紧急程度
func (r *Result) SetUrgency(u Urgency) {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		r.urgency = u
	}
}

func (r *Result) SetNeedsReply(v bool) { r.needsReply = v }

func (r *Result) SetRequiredActions(actions []string) {
	r.requiredActions = make([]string, len(actions))
	copy(r.requiredActions, actions)
}

func (r *Result) SetMainPurpose(p string) { r.mainPurpose = p }
