// Package mail 将从收件箱取回的原始 RFC 5322 邮件解码为主题、发件人和纯文本正文
package mail

import (
	"strings"

	gomail "github.com/emersion/go-message/mail"
)

// Message 解码后的入站邮件，没有纯文本部分时 Body 为空字符串
type Message struct {
	Subject   string
	From      string // 头部原值，含显示名
	MessageID string
	Body      string
}

var responseHints = []string{"please respond", "asap"}

// RequestsResponse 判断正文是否明确要求回复
func RequestsResponse(body string) bool {
	lower := strings.ToLower(body)
	for _, hint := range responseHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// ReplyAddress 去掉 From 头中的显示名，只保留地址
func ReplyAddress(from string) string {
	from = strings.TrimSpace(from)
	if addr, err := gomail.ParseAddress(from); err == nil {
		return addr.Address
	}
	// net/mail 解析失败的头（显示名含未加引号的特殊字符）通常仍带尖括号地址
	if start := strings.LastIndex(from, "<"); start >= 0 {
		if end := strings.Index(from[start:], ">"); end > 0 {
			return strings.TrimSpace(from[start+1 : start+end])
		}
	}
	return from
}
