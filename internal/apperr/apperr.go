package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindFetch    Kind = "fetch"    // 传输失败、超时、非 2xx
	KindParse    Kind = "parse"    // 页面锚点缺失或日历字段缺失
	KindStore    Kind = "store"    // 数据库错误
	KindPlatform Kind = "platform" // 聊天平台拒绝调用
)

// Error 带类别和上下文的错误
type Error struct {
	Kind    Kind
	Op      string // 出错的操作，如 fetch_item
	Context string // url / show / chat 等定位信息
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	if e.Context != "" {
		msg += " [" + e.Context + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, ctx string, err error) *Error {
	return &Error{Kind: kind, Op: op, Context: ctx, Err: err}
}

func Fetch(op, ctx string, err error) error    { return newError(KindFetch, op, ctx, err) }
func Parse(op, ctx string, err error) error    { return newError(KindParse, op, ctx, err) }
func Store(op, ctx string, err error) error    { return newError(KindStore, op, ctx, err) }
func Platform(op, ctx string, err error) error { return newError(KindPlatform, op, ctx, err) }

// KindOf 返回错误链上第一个 *Error 的类别，没有则返回空
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 判断错误链上是否带有指定类别
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
