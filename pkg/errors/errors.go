package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// 错误码按故障域划分：连接类、输入类、服务端业务类、播放类
const (
	CodeUnknown = 0

	// 连接类错误（可通过重连恢复，永不致命）
	CodeNotConnected    = 1001
	CodeConnectFailed   = 1002
	CodeUnexpectedClose = 1003
	CodeSendRateLimited = 1004

	// 输入类错误（提示用户后录音状态完全复位，不自动重试）
	CodeMicPermission    = 2001
	CodeNoAudioCaptured  = 2002
	CodeRecordingTooFast = 2003
	CodeRecordingBusy    = 2004

	// 服务端业务错误（按消息子串/错误码归类）
	CodeDailyLimitReached = 3001
	CodeChatCompleted     = 3002
	CodeDuplicateSession  = 3003
	CodeAuthFailed        = 3004
	CodeNoSpeechDetected  = 3005

	// 播放类错误（记录日志并清理当前音频状态，非致命）
	CodePlaybackFailed = 4001
)

// Error represents a coded error with stack trace
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Err     error      `json:"-"` // 原始错误，不序列化
	Stack   string     `json:"stack,omitempty"`
	Context []KeyValue `json:"context,omitempty"`
}

// KeyValue represents a key-value pair for context
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements the errors.Wrapper interface
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCode creates a new error with code
func WithCode(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(),
	}
}

// WithCodef creates a new error with code and formatted message
func WithCodef(code int, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(),
	}
}

// Wrap wraps an error with message
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
		Stack:   captureStack(),
	}
}

// WrapCode wraps an error and assigns a code
func WrapCode(code int, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
		Stack:   captureStack(),
	}
}

// New creates a new error
func New(message string) *Error {
	return &Error{
		Message: message,
		Stack:   captureStack(),
	}
}

// Newf creates a new error with formatted message
func Newf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(),
	}
}

// WithContext adds context to an error
func (e *Error) WithContext(key, value string) *Error {
	if e == nil {
		return nil
	}
	newErr := &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Stack:   e.Stack,
		Context: make([]KeyValue, len(e.Context)),
	}
	copy(newErr.Context, e.Context)
	newErr.Context = append(newErr.Context, KeyValue{Key: key, Value: value})
	return newErr
}

// GetCode returns the error code
func GetCode(err error) int {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeUnknown
}

// GetMessage returns the error message
func GetMessage(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsCode reports whether err carries the given code
func IsCode(err error, code int) bool {
	return GetCode(err) == code
}

// captureStack captures the current stack trace
func captureStack() string {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	stack := string(buf[:n])

	// 移除顶部几行（captureStack 自身的调用帧）
	lines := strings.Split(stack, "\n")
	if len(lines) > 6 {
		stack = strings.Join(lines[6:], "\n")
	}
	return strings.TrimSpace(stack)
}
