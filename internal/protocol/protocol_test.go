package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeListeningPayloadStages(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		stage string
	}{
		{
			name:  "narration",
			data:  `{"storyText":"Once upon a time","storyAudioUrl":"https://cdn/a.mp3"}`,
			stage: StageInitial,
		},
		{
			name:  "question",
			data:  `{"questionText":"What happened next?","questionAudioUrl":"https://cdn/q.mp3"}`,
			stage: StageQuestionText,
		},
		{
			name:  "quiz",
			data:  `{"questions":[{"id":"q1","question":"Pick one","options":["a","b"],"answer":"a"}]}`,
			stage: StageQuiz,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodeListeningPayload([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.stage, p.Stage)
		})
	}
}

func TestDecodeListeningPayloadQuizWinsOverNarration(t *testing.T) {
	// 多组字段同时出现时以题目列表为准
	data := `{"storyText":"leftover","questions":[{"id":"q1","question":"?","options":["a"]}]}`
	p, err := DecodeListeningPayload([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, StageQuiz, p.Stage)
}

func TestDecodeListeningPayloadEmpty(t *testing.T) {
	_, err := DecodeListeningPayload([]byte(`{}`))
	assert.Error(t, err)
}

func TestListeningPayloadAudioURL(t *testing.T) {
	p := &ListeningPayload{Stage: StageInitial, StoryAudioURL: "s.mp3", QuestionAudioURL: "q.mp3"}
	assert.Equal(t, "s.mp3", p.AudioURL())
	p.Stage = StageQuestionText
	assert.Equal(t, "q.mp3", p.AudioURL())
	p.Stage = StageQuiz
	assert.Empty(t, p.AudioURL())
}

func TestDecodeSessionStatusLooseTypes(t *testing.T) {
	// 数字字段以字符串形式下发也要能解析
	status, err := DecodeSessionStatus([]byte(`{"remaining_seconds":"95","turn_count":4,"daily_limit_used":"true"}`))
	require.NoError(t, err)
	assert.Equal(t, 95, status.RemainingSeconds)
	assert.Equal(t, 4, status.TurnCount)
	assert.True(t, status.DailyLimitUsed)
}

func TestIdentityComplete(t *testing.T) {
	id := Identity{UserID: "u1", TopicID: "t1"}
	assert.False(t, id.Complete())
	id.ChatID = "c1"
	assert.True(t, id.Complete())
}
