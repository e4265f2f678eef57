package pipeline

import (
	"errors"
	"fmt"
)

// Kind 流水线失败类别
type Kind string

const (
	KindNetwork Kind = "network" // 拉取失败：网络、HTTP 状态、读文件
	KindParse   Kind = "parse"   // 取得数据但无法解码为表格
	KindShape   Kind = "shape"   // 表格结构不符合预期：无中心列、无有效行
)

var (
	ErrNetwork = errors.New("network failure")
	ErrParse   = errors.New("parse failure")
	ErrShape   = errors.New("unexpected sheet shape")
)

// UserMessagePrefix 展示给用户的统一错误前缀
const UserMessagePrefix = "Failed to load or parse Google Sheet: "

// Error 带阶段与类别的流水线错误
//
// 可用 errors.Is(err, ErrNetwork) 等判断类别，也可以 errors.Is 到底层原因。
type Error struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is 能按类别匹配
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrParse:
		return e.Kind == KindParse
	case ErrShape:
		return e.Kind == KindShape
	}
	return false
}

func newError(stage string, kind Kind, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Err: err}
}

// KindOf 返回错误类别，非流水线错误返回空
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// UserMessage 在展示边界把任意错误折叠为一条用户可读消息
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return UserMessagePrefix + err.Error()
}
