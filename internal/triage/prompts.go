package triage

import "strings"

// Prompts 某一语言下发给生成服务的提示词，格式串参数按旁注顺序传入
type Prompts struct {
	ClassifySystem string
	ClassifyUser   string // 发件人、主题、正文
	DraftSystem    string
	DraftUser      string // 发件人、主题、正文、优先级、紧急程度、目的
	DraftFailed    string
}

// PromptsEN 英文提示词
var PromptsEN = &Prompts{
	ClassifySystem: "You are an expert at triaging email: you judge how important a message is and what has to be done about it.",
	ClassifyUser: `Analyze the following email.

From: %s
Subject: %s
Body:
%s

Evaluate each item and answer with one line per item, written as "label: value":
Priority: 1-5 (5 is the highest)
Urgency: high / medium / low
Needs reply: yes / no
Required actions: comma-separated list
Purpose: the main intent of the email in one sentence`,
	DraftSystem: "You are an expert at writing professional email replies.",
	DraftUser: `Write a reply to the following email.

Original email:
From: %s
Subject: %s
Body:
%s

Analysis:
Priority: %d
Urgency: %s
Purpose: %s

When writing the reply:
1. Keep a professional, courteous tone.
2. Respond to every important point of the original email.
3. Ask for any missing information you need.
4. State clear next steps or actions.

Return only the reply body.`,
	DraftFailed: "An error occurred while generating the reply.",
}

// PromptsKO 韩文提示词，标签与提取器识别的韩文关键词一致
var PromptsKO = &Prompts{
	ClassifySystem: "당신은 이메일을 분석하고 중요도와 필요한 조치를 판단하는 전문가입니다.",
	ClassifyUser: `다음 이메일을 분석해주세요:

발신자: %s
제목: %s
본문:
%s

다음 항목들을 "항목: 값" 형식으로 한 줄씩 평가해주세요:
우선순위: 1-5 (5가 가장 높음)
긴급도: 상 / 중 / 하
답장 필요 여부: 예 / 아니오
조치사항: 쉼표로 구분된 목록
목적: 이메일의 주요 의도나 목적`,
	DraftSystem: "당신은 전문적인 이메일 답장을 작성하는 전문가입니다.",
	DraftUser: `다음 이메일에 대한 답장을 작성해주세요:

원본 이메일:
발신자: %s
제목: %s
본문:
%s

분석 결과:
우선순위: %d
긴급도: %s
주요 목적: %s

다음 사항을 고려하여 답장을 작성해주세요:
1. 전문적이고 공손한 톤 유지
2. 원본 이메일의 모든 중요 포인트에 대한 응답 포함
3. 필요한 경우 추가 정보 요청
4. 명확한 다음 단계나 조치사항 제시

답장 본문만 작성해주세요.`,
	DraftFailed: "답장 생성 중 오류가 발생했습니다.",
}

// PromptsFor 按语言代码返回提示词，非 "ko" 一律使用英文
func PromptsFor(lang string) *Prompts {
	if strings.EqualFold(strings.TrimSpace(lang), "ko") {
		return PromptsKO
	}
	return PromptsEN
}
