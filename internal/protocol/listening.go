package protocol

import (
	"encoding/json"

	"LinguaTutor/internal/models"
	apperrors "LinguaTutor/pkg/errors"
)

// 听力模式阶段
const (
	StageInitial      = "initial"       // 故事朗读
	StageQuestionText = "question_text" // 理解性提问
	StageQuiz         = "quiz"          // 选择题测验
)

// ListeningPayload 听力模式的阶段数据。服务端按字段有无区分阶段：
// 朗读字段、提问字段和题目列表三者只会出现一种。收到后在这里一次
// 性判定并打上 Stage 标签，下游不再做字段猜测。
type ListeningPayload struct {
	Stage string

	// StageInitial
	StoryText     string
	StoryAudioURL string

	// StageQuestionText
	QuestionText     string
	QuestionAudioURL string

	// StageQuiz
	Questions []models.MCQItem
}

// rawListeningPayload 服务端原始字段
type rawListeningPayload struct {
	StoryText        string           `json:"storyText"`
	StoryAudioURL    string           `json:"storyAudioUrl"`
	QuestionText     string           `json:"questionText"`
	QuestionAudioURL string           `json:"questionAudioUrl"`
	Questions        []models.MCQItem `json:"questions"`
}

// DecodeListeningPayload 解析阶段数据并判定阶段标签。
// 无法归入任何一个阶段的数据视为协议错误。
func DecodeListeningPayload(data []byte) (*ListeningPayload, error) {
	var raw rawListeningPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(err, "decode listening payload")
	}

	p := &ListeningPayload{
		StoryText:        raw.StoryText,
		StoryAudioURL:    raw.StoryAudioURL,
		QuestionText:     raw.QuestionText,
		QuestionAudioURL: raw.QuestionAudioURL,
		Questions:        raw.Questions,
	}
	switch {
	case len(raw.Questions) > 0:
		p.Stage = StageQuiz
	case raw.QuestionText != "" || raw.QuestionAudioURL != "":
		p.Stage = StageQuestionText
	case raw.StoryText != "" || raw.StoryAudioURL != "":
		p.Stage = StageInitial
	default:
		return nil, apperrors.New("listening payload matches no known stage")
	}
	return p, nil
}

// AudioURL 返回当前阶段的门控音频地址，测验阶段没有门控音频
func (p *ListeningPayload) AudioURL() string {
	switch p.Stage {
	case StageInitial:
		return p.StoryAudioURL
	case StageQuestionText:
		return p.QuestionAudioURL
	default:
		return ""
	}
}
