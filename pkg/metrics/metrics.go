package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 会话指标管理器
type Metrics struct {
	// 通道指标
	messagesInTotal  *prometheus.CounterVec
	messagesOutTotal *prometheus.CounterVec
	connectsTotal    *prometheus.CounterVec
	connectionState  prometheus.Gauge

	// 会话指标
	turnsGauge              prometheus.Gauge
	sessionRemainingSeconds prometheus.Gauge
	sessionCompletedTotal   prometheus.Counter
	badgesUnlockedTotal     prometheus.Counter
	timerFiredTotal         *prometheus.CounterVec

	// 录音/播放指标
	recordingsTotal  *prometheus.CounterVec
	playbackTotal    *prometheus.CounterVec
	playbackDuration prometheus.Histogram

	// 错误指标
	errorsTotal *prometheus.CounterVec
}

// NewMetrics 创建指标管理器；一个进程只能创建一次（promauto注册到默认registry）
func NewMetrics() *Metrics {
	m := &Metrics{
		messagesInTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_messages_in_total",
				Help: "Total number of inbound channel messages",
			},
			[]string{"type"},
		),

		messagesOutTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_messages_out_total",
				Help: "Total number of outbound channel messages",
			},
			[]string{"type"},
		),

		connectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_connects_total",
				Help: "Total number of channel connect attempts",
			},
			[]string{"result"},
		),

		connectionState: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tutor_connection_state",
				Help: "Current channel state (0 closed, 1 connecting, 2 open)",
			},
		),

		turnsGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tutor_session_turns",
				Help: "Number of turns in the current conversation",
			},
		),

		sessionRemainingSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tutor_session_remaining_seconds",
				Help: "Server-reported remaining session seconds",
			},
		),

		sessionCompletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tutor_sessions_completed_total",
				Help: "Total number of sessions that reached completed state",
			},
		),

		badgesUnlockedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tutor_badges_unlocked_total",
				Help: "Total number of learning badges unlocked",
			},
		),

		timerFiredTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_timer_fired_total",
				Help: "Total number of idle/nudge timer expirations",
			},
			[]string{"timer"},
		),

		recordingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_recordings_total",
				Help: "Total number of recordings by outcome",
			},
			[]string{"outcome"},
		),

		playbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_playback_total",
				Help: "Total number of clip playbacks by outcome",
			},
			[]string{"outcome"},
		),

		playbackDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tutor_playback_duration_seconds",
				Help:    "Clip playback duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
			},
		),

		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_errors_total",
				Help: "Total number of handled errors by class",
			},
			[]string{"class"},
		),
	}

	return m
}

// RecordMessageIn 记录入站消息
func (m *Metrics) RecordMessageIn(msgType string) {
	m.messagesInTotal.WithLabelValues(msgType).Inc()
}

// RecordMessageOut 记录出站消息
func (m *Metrics) RecordMessageOut(msgType string) {
	m.messagesOutTotal.WithLabelValues(msgType).Inc()
}

// RecordConnect 记录连接尝试结果 ("ok"/"failed")
func (m *Metrics) RecordConnect(result string) {
	m.connectsTotal.WithLabelValues(result).Inc()
}

// SetConnectionState 设置通道状态
func (m *Metrics) SetConnectionState(state int) {
	m.connectionState.Set(float64(state))
}

// SetTurnCount 设置当前轮次数量
func (m *Metrics) SetTurnCount(n int) {
	m.turnsGauge.Set(float64(n))
}

// SetSessionRemaining 设置剩余会话秒数
func (m *Metrics) SetSessionRemaining(seconds int) {
	m.sessionRemainingSeconds.Set(float64(seconds))
}

// RecordSessionCompleted 记录会话完成
func (m *Metrics) RecordSessionCompleted() {
	m.sessionCompletedTotal.Inc()
}

// RecordBadgeUnlocked 记录徽章解锁
func (m *Metrics) RecordBadgeUnlocked() {
	m.badgesUnlockedTotal.Inc()
}

// RecordTimerFired 记录定时器触发 ("idle"/"nudge")
func (m *Metrics) RecordTimerFired(timer string) {
	m.timerFiredTotal.WithLabelValues(timer).Inc()
}

// RecordRecording 记录录音结果 ("sent"/"canceled"/"too_short"/"empty"/"error")
func (m *Metrics) RecordRecording(outcome string) {
	m.recordingsTotal.WithLabelValues(outcome).Inc()
}

// RecordPlayback 记录播放结果 ("completed"/"error"/"interrupted")
func (m *Metrics) RecordPlayback(outcome string, duration time.Duration) {
	m.playbackTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.playbackDuration.Observe(duration.Seconds())
	}
}

// RecordError 记录已处理错误 ("connectivity"/"input"/"server"/"playback")
func (m *Metrics) RecordError(class string) {
	m.errorsTotal.WithLabelValues(class).Inc()
}
