package models

import (
	"encoding/json"
	"time"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn 会话中的一条消息。发送中的用户消息先以 Pending 状态进入
// 本地记录，等服务端回发转写结果后再对账落定。
type Turn struct {
	ID          string          `json:"id"`
	Role        string          `json:"role"`
	Text        string          `json:"text"`
	AudioURL    string          `json:"audioUrl,omitempty"`
	Feedback    json.RawMessage `json:"feedback,omitempty"`    // 服务端批改反馈，原样透传给界面
	Assessment  *Assessment     `json:"assessments,omitempty"` // 发音评测，仅学生消息携带
	AudioPlayed bool            `json:"audioPlayed,omitempty"` // 语音已播放，历史回放不再自动播
	IsCompleted bool            `json:"isCompleted,omitempty"` // 该轮结束了整个会话
	Pending     bool            `json:"pending,omitempty"`
	Streaming   bool            `json:"streaming,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Assessment 发音评测结果（百分制）
type Assessment struct {
	AccuracyScore      float64 `json:"accuracyScore"`
	FluencyScore       float64 `json:"fluencyScore"`
	CompletenessScore  float64 `json:"completenessScore"`
	PronunciationScore float64 `json:"pronunciationScore"`
	ProsodyScore       float64 `json:"prosodyScore"`
}

// MCQItem 单选题
type MCQItem struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer,omitempty"` // 正确答案，仅服务端下发的题库携带
}

// MCQAnswer 学生选择的答案
type MCQAnswer struct {
	QuestionID string `json:"question_id"`
	Selected   string `json:"selected"`
	Correct    bool   `json:"correct"`
}
