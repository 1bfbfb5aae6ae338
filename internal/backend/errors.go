package backend

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	// KindNetwork：没有拿到响应（DNS/连接/超时/取消）。
	KindNetwork Kind = "network"
	// KindUnauthorized：后端返回 401/403。
	KindUnauthorized Kind = "unauthorized"
	// KindValidation：请求发出前即被本地校验拒绝。
	KindValidation Kind = "validation"
	// KindServer：其它非 2xx，或 2xx 但 success=false。
	KindServer Kind = "server"
	// KindDecode：2xx 但响应体不是 JSON。
	KindDecode Kind = "decode"
)

const networkMessage = "Unable to reach the StreamMall API"

type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	// Message 来自响应体的 msg/message 字段，或本地校验信息。
	Message string
	// Fallback 由调用点提供，Message 为空时展示。
	Fallback string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("backend")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Validation 构造一个未发出请求的校验错误。
func Validation(op string, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// withFallback 为 *Error 补充调用点的兜底文案；不覆盖已有值。
func withFallback(err error, fallback string) error {
	var e *Error
	if errors.As(err, &e) && e != nil && e.Fallback == "" {
		e.Fallback = fallback
	}
	return err
}

// UserMessage 将错误转换为页面可展示的文案。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return "Something went wrong"
	}
	switch e.Kind {
	case KindNetwork:
		return networkMessage
	case KindUnauthorized:
		if e.Message != "" {
			return e.Message
		}
		return "Your session has expired, please sign in again"
	case KindValidation:
		return e.Message
	case KindServer:
		if e.Message != "" {
			return e.Message
		}
		if e.Fallback != "" {
			return e.Fallback
		}
		if e.StatusCode != 0 {
			return fmt.Sprintf("Request failed (HTTP %d)", e.StatusCode)
		}
		return "Request failed"
	case KindDecode:
		if e.Fallback != "" {
			return e.Fallback
		}
		return "Unexpected response from the StreamMall API"
	default:
		return "Something went wrong"
	}
}
