package metrics

import (
	"sync"
	"time"
)

var (
	global *Metrics
	mu     sync.RWMutex
)

// SetGlobal 设置全局指标实例
func SetGlobal(m *Metrics) {
	mu.Lock()
	defer mu.Unlock()
	global = m
}

// Global 获取全局指标实例，未初始化时返回nil
func Global() *Metrics {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// noop辅助：调用方无须判空
func RecordMessageIn(t string) {
	if m := Global(); m != nil {
		m.RecordMessageIn(t)
	}
}

func RecordMessageOut(t string) {
	if m := Global(); m != nil {
		m.RecordMessageOut(t)
	}
}

func RecordConnect(result string) {
	if m := Global(); m != nil {
		m.RecordConnect(result)
	}
}

func SetConnectionState(state int) {
	if m := Global(); m != nil {
		m.SetConnectionState(state)
	}
}

func SetTurnCount(n int) {
	if m := Global(); m != nil {
		m.SetTurnCount(n)
	}
}

func SetSessionRemaining(seconds int) {
	if m := Global(); m != nil {
		m.SetSessionRemaining(seconds)
	}
}

func RecordSessionCompleted() {
	if m := Global(); m != nil {
		m.RecordSessionCompleted()
	}
}

func RecordTimerFired(timer string) {
	if m := Global(); m != nil {
		m.RecordTimerFired(timer)
	}
}

func RecordRecording(outcome string) {
	if m := Global(); m != nil {
		m.RecordRecording(outcome)
	}
}

func RecordBadgeUnlocked() {
	if m := Global(); m != nil {
		m.RecordBadgeUnlocked()
	}
}

func RecordPlayback(outcome string, duration time.Duration) {
	if m := Global(); m != nil {
		m.RecordPlayback(outcome, duration)
	}
}

func RecordError(class string) {
	if m := Global(); m != nil {
		m.RecordError(class)
	}
}
