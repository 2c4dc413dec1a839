package util

import "sync"

// SlotFunc 信号槽函数，sender 为触发方，params 为附加参数
type SlotFunc func(sender any, params ...any)

// Signals 轻量级信号/槽中心，用于模块间解耦的事件通知
type Signals struct {
	mu    sync.RWMutex
	slots map[string][]SlotFunc
}

var (
	sigOnce sync.Once
	sigHub  *Signals
)

// Sig 返回全局信号中心单例
func Sig() *Signals {
	sigOnce.Do(func() {
		sigHub = &Signals{slots: make(map[string][]SlotFunc)}
	})
	return sigHub
}

// Connect 注册信号监听
func (s *Signals) Connect(name string, fn SlotFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[name] = append(s.slots[name], fn)
}

// Emit 触发信号，同步调用所有槽函数
func (s *Signals) Emit(name string, sender any, params ...any) {
	s.mu.RLock()
	fns := make([]SlotFunc, len(s.slots[name]))
	copy(fns, s.slots[name])
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(sender, params...)
	}
}

// Disconnect 移除某信号的所有监听
func (s *Signals) Disconnect(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, name)
}
