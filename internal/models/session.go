package models

import "time"

// 会话状态
const (
	SessionIdle      = "idle"      // 未连接
	SessionActive    = "active"    // 正常对话中
	SessionEnding    = "ending"    // 剩余时间不足一分钟
	SessionCompleted = "completed" // 本次会话已结束
)

// SessionStatus 服务端下发的会话计量信息
type SessionStatus struct {
	RemainingSeconds int  `json:"remaining_seconds"`
	TurnCount        int  `json:"turn_count"`
	DailyLimitUsed   bool `json:"daily_limit_used"`
}

// SessionState 控制器维护的完整会话视图
type SessionState struct {
	Status        string        `json:"status"`
	Mode          string        `json:"mode"`
	Turns         []Turn        `json:"turns"`
	Remaining     time.Duration `json:"remaining"`
	TurnCount     int           `json:"turn_count"`
	TopicImageURL string        `json:"topic_image_url,omitempty"`
	Badges        []Badge       `json:"badges,omitempty"`
	LastAssess    *Assessment   `json:"last_assess,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
}

// Badge 学习徽章
type Badge struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Icon       string    `json:"icon,omitempty"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
