package util

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"net/url"
	"strings"

	"mailtriage/pkg/circuitbreaker"
)

// statusCoder 由带 HTTP 状态码的错误实现（如生成服务的 APIError）
type statusCoder interface {
	HTTPStatus() int
}

// ClassifyError 判断错误类型，用于日志字段和指标标签
// 返回值：(是否可重试, 错误类型)
func ClassifyError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return true, "circuit_open"
	}

	// context 超时
	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	// 生成服务 HTTP 错误
	var sc statusCoder
	if errors.As(err, &sc) {
		switch code := sc.HTTPStatus(); {
		case code == 401 || code == 403:
			return false, "auth_error"
		case code == 429:
			return true, "rate_limited"
		case code >= 500:
			return true, "service_error"
		default:
			return false, "request_error"
		}
	}

	// SMTP / POP3 协议错误码
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch {
		case protoErr.Code == 535 || protoErr.Code == 530:
			return false, "auth_error"
		case protoErr.Code >= 400 && protoErr.Code < 500:
			return true, "transient_reject"
		default:
			return false, "permanent_reject"
		}
	}

	// URL errors 先于 net.Error 判断（*url.Error 同样实现 net.Error）
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "authentication") || strings.Contains(errStr, "login"):
		return false, "auth_error"
	case strings.Contains(errStr, "json:") || strings.Contains(errStr, "decode"):
		return false, "decode_error"
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout"):
		return true, "network_error"
	}

	// 默认：未知错误，保守处理
	return false, "unknown_error"
}
