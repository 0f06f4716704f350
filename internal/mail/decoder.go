package mail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
)

func init() {
	// 导入 charset 已注册 message.CharsetReader，这里补充常见的旧编码
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
	charset.RegisterEncoding("euc-kr", korean.EUCKR)
	charset.RegisterEncoding("ks_c_5601-1987", korean.EUCKR)
}

var errFound = errors.New("plain text part found")

// Decode 解码原始邮件，不会失败，读不出的字段留空
func Decode(raw []byte) Message {
	msg, _ := Parse(raw)
	return msg
}

// Parse 与 Decode 相同，但返回解析错误用于日志
// 即使 err 非空，返回的 Message 也可用
func Parse(raw []byte) (Message, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !isRecoverable(err) {
		return Message{}, fmt.Errorf("reading message: %w", err)
	}

	h := gomail.Header{Header: entity.Header}
	msg := Message{
		Subject: headerText(h, "Subject"),
		From:    headerText(h, "From"),
	}
	if id, idErr := h.MessageID(); idErr == nil {
		msg.MessageID = id
	}

	body, err := extractBody(entity)
	if err != nil {
		return msg, fmt.Errorf("reading body: %w", err)
	}
	msg.Body = body
	return msg, nil
}

// headerText 按声明的字符集解码 RFC 2047 编码字，失败时回退到原始值
func headerText(h gomail.Header, key string) string {
	if v, err := h.Text(key); err == nil {
		return v
	}
	return h.Get(key)
}

func extractBody(e *message.Entity) (string, error) {
	if !isMultipart(e) {
		b, err := io.ReadAll(e.Body)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	var body string
	err := e.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil && !isRecoverable(err) {
			return err
		}
		if !isInlinePlainText(part) {
			return nil
		}
		b, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			return readErr
		}
		body = string(b)
		return errFound
	})
	if errors.Is(err, errFound) {
		return body, nil
	}
	return "", err
}

func isMultipart(e *message.Entity) bool {
	mediaType, _, _ := e.Header.ContentType()
	return strings.HasPrefix(mediaType, "multipart/")
}

// isInlinePlainText 类型为 text/plain（缺省时即为此类型）且不是附件
func isInlinePlainText(e *message.Entity) bool {
	mediaType := "text/plain"
	if e.Header.Get("Content-Type") != "" {
		mediaType, _, _ = e.Header.ContentType()
	}
	if mediaType != "text/plain" {
		return false
	}
	return !strings.Contains(strings.ToLower(e.Header.Get("Content-Disposition")), "attachment")
}

func isRecoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
