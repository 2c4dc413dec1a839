package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LinguaTutor/internal/models"
	"LinguaTutor/internal/protocol"
)

func TestFragmentsMergeIntoSingleTurn(t *testing.T) {
	r := NewReconciler()
	_, err := r.AppendPending()
	require.NoError(t, err)

	r.MergeFragment(&protocol.StreamingResponse{Text: "Hel"})
	r.MergeFragment(&protocol.StreamingResponse{Text: "lo "})
	r.MergeFragment(&protocol.StreamingResponse{Text: "there"})

	turns := r.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "Hello there", turns[0].Text)
	assert.False(t, turns[0].Pending)
	assert.True(t, turns[0].Streaming)
}

func TestOnlyOnePending(t *testing.T) {
	r := NewReconciler()
	_, err := r.AppendPending()
	require.NoError(t, err)

	_, err = r.AppendPending()
	assert.Error(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestCompleteStreamFinalizesPlaceholder(t *testing.T) {
	r := NewReconciler()
	r.AppendSent("Hello")
	_, err := r.AppendPending()
	require.NoError(t, err)
	r.MergeFragment(&protocol.StreamingResponse{Text: "Hi "})

	r.CompleteStream(&protocol.StreamingComplete{
		Text:     "Hi! How are you today?",
		AudioURL: "https://cdn/reply.mp3",
	})

	turns := r.Turns()
	require.Len(t, turns, 2)
	final := turns[1]
	assert.Equal(t, "Hi! How are you today?", final.Text)
	assert.Equal(t, "https://cdn/reply.mp3", final.AudioURL)
	assert.False(t, final.Pending)
	assert.False(t, final.Streaming)
	assert.False(t, r.HasPending())
}

func TestCompleteStreamWithoutPlaceholder(t *testing.T) {
	r := NewReconciler()
	r.CompleteStream(&protocol.StreamingComplete{MessageID: "m1", Text: "orphan"})

	turns := r.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "orphan", turns[0].Text)
	assert.Equal(t, models.RoleAssistant, turns[0].Role)
}

func TestTranscriptReplacesPending(t *testing.T) {
	r := NewReconciler()
	r.AppendSent("") // 本地的语音消息占位
	_, err := r.AppendPending()
	require.NoError(t, err)

	r.ApplyTranscript(&protocol.SpeechTranscribed{MessageID: "m2", Text: "good morning"})

	assert.False(t, r.HasPending())
	turns := r.Turns()
	last := turns[len(turns)-1]
	assert.Equal(t, models.RoleUser, last.Role)
	assert.Equal(t, "good morning", last.Text)
}

func TestLoadHistoryReplacesList(t *testing.T) {
	r := NewReconciler()
	r.AppendSent("stale")
	r.LoadHistory([]models.Turn{
		{ID: "h1", Role: models.RoleUser, Text: "old question"},
		{ID: "h2", Role: models.RoleAssistant, Text: "old answer"},
		{ID: "h3", Role: models.RoleAssistant, Text: "   "},
	})

	// 空内容的历史条目被过滤
	turns := r.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "h1", turns[0].ID)
	assert.Equal(t, "old answer", turns[1].Text)
}

func TestLoadHistoryMarksAudioPlayed(t *testing.T) {
	r := NewReconciler()
	r.LoadHistory([]models.Turn{
		{ID: "h1", Role: models.RoleAssistant, Text: "Listen", AudioURL: "https://cdn/h1.mp3"},
		{ID: "h2", Role: models.RoleUser, Text: "ok"},
	})

	turns := r.Turns()
	require.Len(t, turns, 2)
	assert.True(t, turns[0].AudioPlayed)
	assert.False(t, turns[1].AudioPlayed)
}

func TestCompleteStreamCarriesFeedback(t *testing.T) {
	r := NewReconciler()
	_, err := r.AppendPending()
	require.NoError(t, err)

	r.CompleteStream(&protocol.StreamingComplete{
		Text:        "Well done!",
		Feedback:    json.RawMessage(`{"grammar":"good"}`),
		IsCompleted: true,
	})

	turns := r.Turns()
	require.Len(t, turns, 1)
	assert.JSONEq(t, `{"grammar":"good"}`, string(turns[0].Feedback))
	assert.True(t, turns[0].IsCompleted)
}

func TestTranscriptCarriesAssessment(t *testing.T) {
	r := NewReconciler()
	r.ApplyTranscript(&protocol.SpeechTranscribed{
		Text:       "I like apples",
		Assessment: &models.Assessment{AccuracyScore: 92, FluencyScore: 88},
	})

	turns := r.Turns()
	require.Len(t, turns, 1)
	require.NotNil(t, turns[0].Assessment)
	assert.Equal(t, 92.0, turns[0].Assessment.AccuracyScore)
}

func TestAppendSentTrims(t *testing.T) {
	r := NewReconciler()
	r.AppendSent("  Hello  ")
	assert.Equal(t, "Hello", r.Turns()[0].Text)
}

func TestDropPending(t *testing.T) {
	r := NewReconciler()
	r.AppendSent("hi")
	_, err := r.AppendPending()
	require.NoError(t, err)

	r.DropPending()
	assert.False(t, r.HasPending())
	assert.Equal(t, 1, r.Len())
}

func TestAttachAudio(t *testing.T) {
	r := NewReconciler()
	id := r.AppendSent("with clip")
	r.AttachAudio(id, "blob:local")
	assert.Equal(t, "blob:local", r.Turns()[0].AudioURL)
}
