package triage

import (
	"strings"
)

type field int

const (
	fieldPriority field = iota
	fieldUrgency
	fieldNeedsReply
	fieldActions
	fieldPurpose
)

// matcher 把响应中的一行路由到 Result 的某个字段
// parse 返回该行是否真的带值，不带值时字段留给后续行
type matcher struct {
	field    field
	keywords []string
	parse    func(r *Result, line, value string) bool
}

// 按顺序匹配标签，先命中关键词的行决定该行归属，先解析成功的行决定字段值
// 关键词均为小写，含英文和韩文
var matchers = []matcher{
	{fieldPriority, []string{"priority", "우선순위"}, parsePriority},
	{fieldUrgency, []string{"urgency", "긴급도"}, parseUrgency},
	{fieldNeedsReply, []string{"needs reply", "reply needed", "reply required", "답장 필요"}, parseNeedsReply},
	{fieldActions, []string{"actions", "조치사항"}, parseActions},
	{fieldPurpose, []string{"purpose", "목적"}, parsePurpose},
}

var (
	highMarkers   = []string{"high", "상"}
	lowMarkers    = []string{"low", "하"}
	mediumMarkers = []string{"medium", "중"}
	yesMarkers    = []string{"yes", "예"}
)

// Extract 将自由格式的分析文本解析为 Result，不会失败，找不到的字段保持默认值
func Extract(text string) Result {
	r := DefaultResult()
	set := make(map[field]bool, len(matchers))

	for _, line := range strings.Split(text, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		label, value := splitLabel(line)

		for _, m := range matchers {
			if !containsAny(label, m.keywords) {
				continue
			}
			if !set[m.field] && m.parse(&r, line, value) {
				set[m.field] = true
			}
			break
		}
	}

	return r
}

// splitLabel 在第一个冒号处拆分 "label: value"，没有冒号时整行既是标签也是值
func splitLabel(line string) (label, value string) {
	if i := strings.Index(line, ":"); i >= 0 {
		return line[:i], line[i+1:]
	}
	return line, line
}

// afterLastColon 取最后一个冒号之后的内容，用于 actions 和 purpose 行
func afterLastColon(line string) string {
	if i := strings.LastIndex(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return strings.TrimSpace(line)
}

func parsePriority(r *Result, _, value string) bool {
	for _, c := range value {
		if c >= '0' && c <= '9' {
			r.SetPriority(int(c - '0'))
			return true
		}
	}
	return false
}

func parseUrgency(r *Result, _, value string) bool {
	switch {
	case containsAny(value, highMarkers):
		r.SetUrgency(UrgencyHigh)
	case containsAny(value, lowMarkers):
		r.SetUrgency(UrgencyLow)
	case containsAny(value, mediumMarkers):
		r.SetUrgency(UrgencyMedium)
	default:
		return false
	}
	return true
}

func parseNeedsReply(r *Result, _, value string) bool {
	r.SetNeedsReply(containsAny(value, yesMarkers))
	return true
}

func parseActions(r *Result, line, _ string) bool {
	var actions []string
	for _, a := range strings.Split(afterLastColon(line), ",") {
		// 丢弃空项（结尾或连续的逗号）
		if a = strings.TrimSpace(a); a != "" {
			actions = append(actions, a)
		}
	}
	r.SetRequiredActions(actions)
	return true
}

func parsePurpose(r *Result, line, _ string) bool {
	r.SetMainPurpose(afterLastColon(line))
	return true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
