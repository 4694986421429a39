package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 业务错误分类，决定对外的 HTTP 状态码
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorizationDenied
	KindConflict
	KindNotFound
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// HTTPStatus 错误分类对应的 HTTP 状态码
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorizationDenied:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error 带分类与业务码的错误
// Field 非空时表示字段级校验错误
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is 按 Kind + Code 匹配，WithField / WithMessage 派生出的错误仍能匹配原哨兵
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithField 返回绑定到指定字段的副本
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// WithMessage 返回替换提示文案的副本
func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// ── 构造函数 ──

func Validation(code int, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Denied(code int, message string) *Error {
	return &Error{Kind: KindAuthorizationDenied, Code: code, Message: message}
}

func Conflict(code int, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func NotFound(code int, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Unauthenticated(code int, message string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: code, Message: message}
}

// As 从错误链中提取 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 返回错误链中第一个 *Error 的分类
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// ── 通用错误 ──

var (
	// ErrInvalidParams 请求参数校验失败
	ErrInvalidParams = Validation(10001, "参数校验失败")
	// ErrUnauthenticated 未认证或 Token 无效
	ErrUnauthenticated = Unauthenticated(10002, "未认证")
	// ErrForbiddenRole 角色不满足接口要求
	ErrForbiddenRole = Denied(10003, "无权限访问")
	// ErrForbiddenUnverified 账号未通过验证
	ErrForbiddenUnverified = Denied(10006, "账号尚未通过验证，暂不能执行此操作")
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = Conflict(10009, "数据已被其他操作修改，请刷新后重试")
)
