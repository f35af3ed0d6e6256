// Package apperr 定义错误分类：配置、后端、持久化、解析
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindConfig      Kind = "CONFIG"
	KindBackend     Kind = "BACKEND"
	KindPersistence Kind = "PERSISTENCE"
	KindParse       Kind = "PARSE"
)

// Error 带类别的错误，Op 描述出错的操作
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is 同类别的 *Error 视为相等，便于 errors.Is(err, &Error{Kind: KindBackend})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Config 启动期配置错误
func Config(op string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

// Backend 远程后端错误，总是触发本地兜底
func Backend(op string, err error) *Error {
	return &Error{Kind: KindBackend, Op: op, Err: err}
}

// Persistence 历史持久化错误，会话继续在内存中进行
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// Parse 持久化数据或后端响应无法解析
func Parse(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// KindOf 返回错误类别，非 *Error 返回空
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
