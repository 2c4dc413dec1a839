package notification

import (
	"sync"

	"go.uber.org/zap"

	"LinguaTutor/pkg/logger"
)

// Level toast级别
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toast 一条用户可见的即时提示
type Toast struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Toaster 即时提示发送端，fire-and-forget，绝不阻塞调用方
type Toaster interface {
	Toast(level Level, message string)
}

// LogToaster 仅写日志的Toaster，用作默认实现
type LogToaster struct{}

func (LogToaster) Toast(level Level, message string) {
	switch level {
	case LevelError:
		logger.Error("toast", zap.String("message", message))
	case LevelWarning:
		logger.Warn("toast", zap.String("message", message))
	default:
		logger.Info("toast", zap.String("message", message))
	}
}

// ChannelToaster 把toast投递到channel，由UI侧消费；队列满时丢弃
type ChannelToaster struct {
	ch chan Toast

	mu     sync.Mutex
	closed bool
}

// NewChannelToaster 创建带缓冲的ChannelToaster
func NewChannelToaster(buffer int) *ChannelToaster {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelToaster{ch: make(chan Toast, buffer)}
}

func (t *ChannelToaster) Toast(level Level, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.ch <- Toast{Level: level, Message: message}:
	default:
		// 消费方跟不上时直接丢弃，提示类消息不值得阻塞会话
		logger.Warn("toast dropped", zap.String("message", message))
	}
}

// C 消费端channel
func (t *ChannelToaster) C() <-chan Toast {
	return t.ch
}

// Close 关闭channel，之后的Toast调用被忽略
func (t *ChannelToaster) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.ch)
	}
}

// Multi 将toast同时发给多个接收端
type Multi []Toaster

func (m Multi) Toast(level Level, message string) {
	for _, t := range m {
		t.Toast(level, message)
	}
}
