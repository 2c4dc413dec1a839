package protocol

import (
	"encoding/json"

	"LinguaTutor/internal/models"
)

// Identity 每条有状态出站消息都要携带的会话标识。
// 在第一条历史响应到达之前 ChatID 为空，这是正常情况。
type Identity struct {
	UserID  string `json:"userId"`
	TopicID string `json:"topicId"`
	ChatID  string `json:"chatId,omitempty"`
}

// Complete 判断标识是否齐全（含 ChatID）
func (id Identity) Complete() bool {
	return id.UserID != "" && id.TopicID != "" && id.ChatID != ""
}

// ---- 出站消息 ----

// GetChatHistory 请求历史消息
type GetChatHistory struct {
	Type string `json:"type"`
	Identity
	Mode string `json:"mode,omitempty"`
}

// ResetChat 清空当前话题的对话
type ResetChat struct {
	Type string `json:"type"`
	Identity
}

// TextMessage 学生发送的文字消息
type TextMessage struct {
	Type string `json:"type"`
	Identity
	Text      string `json:"text"`
	MessageID string `json:"messageId"`
}

// AudioMessage 学生录制的语音，Buffer 为 base64 编码的音频数据
type AudioMessage struct {
	Type string `json:"type"`
	Identity
	Buffer    string `json:"buffer"`
	Format    string `json:"format"`
	MessageID string `json:"messageId"`
}

// SessionStatusRequest 主动查询会话剩余时长
type SessionStatusRequest struct {
	Type string `json:"type"`
	Identity
}

// SubmitMCQs 提交整批听力测验答案
type SubmitMCQs struct {
	Type string `json:"type"`
	Identity
	Answers []MCQSubmission `json:"answers"`
}

// MCQSubmission 单题答案
type MCQSubmission struct {
	QuestionID  string `json:"questionId"`
	AnswerIndex int    `json:"answerIndex"`
}

// NextStage 请求进入听力模式的下一阶段
type NextStage struct {
	Type string `json:"type"`
	Identity
	CurrentStage string `json:"currentStage"`
}

// StartListening 开始听力模式
type StartListening struct {
	Type string `json:"type"`
	Identity
}

// NoResponse 无回复计时器到期后的提醒消息
type NoResponse struct {
	Type string `json:"type"`
	Identity
}

// ---- 入站消息 ----

// ChatHistory 历史消息响应，首次到达时带回 chatId
type ChatHistory struct {
	ChatID        string        `json:"chatId"`
	Turns         []models.Turn `json:"messages"`
	TopicImageURL string        `json:"topicImageUrl,omitempty"`
	Completed     bool          `json:"completed,omitempty"`
}

// StreamingResponse 流式回复的增量片段
type StreamingResponse struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

// StreamingComplete 流式回复结束，携带完整文本与语音地址。
// IsCompleted 为 true 表示这一轮交流结束了整个会话。
type StreamingComplete struct {
	MessageID   string          `json:"messageId"`
	Text        string          `json:"text"`
	AudioURL    string          `json:"audioUrl,omitempty"`
	Feedback    json.RawMessage `json:"feedback,omitempty"`
	IsCompleted bool            `json:"isCompleted,omitempty"`
}

// SpeechTranscribed 语音转写结果，用于替换发送中的占位消息
type SpeechTranscribed struct {
	MessageID  string             `json:"messageId"`
	Text       string             `json:"text"`
	Assessment *models.Assessment `json:"assessment,omitempty"`
}

// SessionStatus 会话计量信息
type SessionStatus struct {
	RemainingSeconds int  `json:"remaining_seconds"`
	TurnCount        int  `json:"turn_count"`
	DailyLimitUsed   bool `json:"daily_limit_used"`
}

// AttachmentURL 话题配图地址
type AttachmentURL struct {
	URL string `json:"url"`
}

// ServerError 服务端错误，Message 用于归类错误语义
type ServerError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// BadgeUnlocked 徽章解锁通知
type BadgeUnlocked struct {
	Badge models.Badge `json:"badge"`
}

// MCQResult 单题判分结果
type MCQResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
}
