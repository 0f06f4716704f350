package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_EmptyResponseIsDefault(t *testing.T) {
	r := Extract("")
	assert.Equal(t, DefaultResult(), r)
	assert.Equal(t, 3, r.Priority())
	assert.Equal(t, UrgencyMedium, r.Urgency())
	assert.False(t, r.NeedsReply())
	assert.NotNil(t, r.RequiredActions())
	assert.Empty(t, r.RequiredActions())
	assert.Empty(t, r.MainPurpose())
}

func TestExtract_EnglishResponse(t *testing.T) {
	text := `Here is my analysis.

1. Priority: 4
2. Urgency: High
3. Needs reply: Yes
4. Required actions: confirm budget, schedule call
5. Purpose: Request for budget approval`

	r := Extract(text)
	assert.Equal(t, 4, r.Priority())
	assert.Equal(t, UrgencyHigh, r.Urgency())
	assert.True(t, r.NeedsReply())
	assert.Equal(t, []string{"confirm budget", "schedule call"}, r.RequiredActions())
	assert.Equal(t, "request for budget approval", r.MainPurpose())
}

func TestExtract_KoreanResponse(t *testing.T) {
	text := `우선순위: 5
긴급도: 하
답장 필요 여부: 예
조치사항: 일정 확인, 회신
목적: 회의 일정 조율`

	r := Extract(text)
	assert.Equal(t, 5, r.Priority())
	assert.Equal(t, UrgencyLow, r.Urgency())
	assert.True(t, r.NeedsReply())
	assert.Equal(t, []string{"일정 확인", "회신"}, r.RequiredActions())
	assert.Equal(t, "회의 일정 조율", r.MainPurpose())
}

func TestExtract_Urgency(t *testing.T) {
	cases := []struct {
		text string
		want Urgency
	}{
		{"urgency: high", UrgencyHigh},
		{"**Urgency**: LOW", UrgencyLow},
		{"Urgency is high", UrgencyHigh},
		{"urgency: medium", UrgencyMedium},
		{"urgency: unclear", UrgencyMedium},
		{"priority: 2", UrgencyMedium},
		{"urgency (high/medium/low): low", UrgencyLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Extract(tc.text).Urgency(), tc.text)
	}
}

func TestExtract_PriorityAlwaysInRange(t *testing.T) {
	cases := map[string]int{
		"priority: 0":                 1,
		"priority: 9":                 5,
		"priority: 42":                4,
		"priority: none":              3,
		"priority (1-5): 2":           2,
		"Priority 5 (highest)":        5,
		"no priority line here at all": 3,
	}
	for text, want := range cases {
		p := Extract(text).Priority()
		assert.Equal(t, want, p, text)
		assert.GreaterOrEqual(t, p, 1)
		assert.LessOrEqual(t, p, 5)
	}
}

func TestExtract_FirstMatchWins(t *testing.T) {
	text := `Priority: 2
Priority: 5
Urgency: low
Urgency: high
Purpose: first
Purpose: second`

	r := Extract(text)
	assert.Equal(t, 2, r.Priority())
	assert.Equal(t, UrgencyLow, r.Urgency())
	assert.Equal(t, "first", r.MainPurpose())
}

func TestExtract_UnparsedLineDoesNotClaimField(t *testing.T) {
	text := `Priority: to be decided
Priority: 4`
	assert.Equal(t, 4, Extract(text).Priority())
}

func TestExtract_LabelDecidesRouting(t *testing.T) {
	// 值里出现 "priority"，但标签是 actions
	r := Extract("Required actions: answer the priority request, file it")
	assert.Equal(t, 3, r.Priority())
	assert.Equal(t, []string{"answer the priority request", "file it"}, r.RequiredActions())
}

func TestExtract_NeedsReplyOnlyOnAffirmative(t *testing.T) {
	assert.False(t, Extract("Needs reply: no").NeedsReply())
	assert.False(t, Extract("Needs reply (yes/no): no").NeedsReply())
	assert.True(t, Extract("Reply needed: yes, today").NeedsReply())
}

func TestExtract_ActionsDropEmptyTokens(t *testing.T) {
	r := Extract("Actions: call back, , send invoice,")
	assert.Equal(t, []string{"call back", "send invoice"}, r.RequiredActions())
}

func TestExtract_ActionsAfterLastColon(t *testing.T) {
	r := Extract("Required actions: note: reply by 10")
	assert.Equal(t, []string{"reply by 10"}, r.RequiredActions())
}

func TestResult_SettersKeepInvariants(t *testing.T) {
	r := DefaultResult()
	r.SetPriority(-3)
	assert.Equal(t, 1, r.Priority())
	r.SetUrgency("urgent")
	assert.Equal(t, UrgencyMedium, r.Urgency())
	r.SetRequiredActions(nil)
	assert.NotNil(t, r.RequiredActions())

	actions := []string{"a"}
	r.SetRequiredActions(actions)
	actions[0] = "mutated"
	assert.Equal(t, []string{"a"}, r.RequiredActions())
}

func TestFallbackResult(t *testing.T) {
	r := FallbackResult()
	assert.Equal(t, 3, r.Priority())
	assert.Equal(t, UrgencyMedium, r.Urgency())
	assert.False(t, r.NeedsReply())
	assert.Equal(t, []string{"analysis failed"}, r.RequiredActions())
	assert.Equal(t, "analysis failed", r.MainPurpose())
}
