package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"LinguaTutor/internal/models"
	"LinguaTutor/internal/protocol"
	apperrors "LinguaTutor/pkg/errors"
)

// Reconciler merges inbound server events into an ordered turn list.
// An in-flight AI reply is represented by a single pending placeholder;
// fragments merge into the most recent streaming turn and never create
// duplicates. Callers are expected to serialize access (the controller
// run loop does), so there is no lock here.
type Reconciler struct {
	turns []models.Turn
}

// NewReconciler 创建空的消息对账器
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Turns 返回当前消息列表的副本
func (r *Reconciler) Turns() []models.Turn {
	out := make([]models.Turn, len(r.turns))
	copy(out, r.turns)
	return out
}

// Len 消息条数
func (r *Reconciler) Len() int { return len(r.turns) }

// HasPending 是否存在等待回复的占位消息
func (r *Reconciler) HasPending() bool {
	for _, t := range r.turns {
		if t.Pending {
			return true
		}
	}
	return false
}

// LoadHistory 用历史记录整体替换消息列表。历史里的语音一律标记为
// 已播放，避免回放时自动重播。
func (r *Reconciler) LoadHistory(turns []models.Turn) {
	r.turns = r.turns[:0]
	for _, t := range turns {
		// 历史里偶尔有空消息，过滤掉
		if strings.TrimSpace(t.Text) == "" && t.AudioURL == "" {
			continue
		}
		if t.AudioURL != "" {
			t.AudioPlayed = true
		}
		r.turns = append(r.turns, t)
	}
}

// AppendSent 追加一条学生消息并返回其 ID
func (r *Reconciler) AppendSent(text string) string {
	id := uuid.NewString()
	r.turns = append(r.turns, models.Turn{
		ID:        id,
		Role:      models.RoleUser,
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now(),
	})
	return id
}

// AppendPending 追加等待 AI 回复的占位消息。同一时刻最多只允许
// 一条占位，已存在时返回错误。
func (r *Reconciler) AppendPending() (string, error) {
	if r.HasPending() {
		return "", apperrors.New("a reply is already pending")
	}
	id := uuid.NewString()
	r.turns = append(r.turns, models.Turn{
		ID:        id,
		Role:      models.RoleAssistant,
		Pending:   true,
		Streaming: true,
		CreatedAt: time.Now(),
	})
	return id, nil
}

// MergeFragment 将流式片段并入最近一条仍在流式状态的 AI 消息；
// 没有占位时新建一条，绝不产生重复。
func (r *Reconciler) MergeFragment(frag *protocol.StreamingResponse) {
	if turn := r.lastStreaming(); turn != nil {
		turn.Pending = false
		turn.Text += frag.Text
		return
	}
	r.turns = append(r.turns, models.Turn{
		ID:        fragmentID(frag.MessageID),
		Role:      models.RoleAssistant,
		Text:      frag.Text,
		Streaming: true,
		CreatedAt: time.Now(),
	})
}

// CompleteStream 流式回复结束，把最终文本和语音地址落到占位上
func (r *Reconciler) CompleteStream(done *protocol.StreamingComplete) {
	turn := r.lastStreaming()
	if turn == nil {
		r.turns = append(r.turns, models.Turn{
			ID:        fragmentID(done.MessageID),
			Role:      models.RoleAssistant,
			CreatedAt: time.Now(),
		})
		turn = &r.turns[len(r.turns)-1]
	}
	turn.Pending = false
	turn.Streaming = false
	if done.Text != "" {
		turn.Text = done.Text
	}
	if done.AudioURL != "" {
		turn.AudioURL = done.AudioURL
	}
	if len(done.Feedback) > 0 {
		turn.Feedback = done.Feedback
	}
	turn.IsCompleted = done.IsCompleted
}

// ApplyTranscript 语音转写结果到达：追加一条携带转写文本的学生
// 消息，并移除等待中的占位。后续的流式回复会重新建立 AI 消息。
func (r *Reconciler) ApplyTranscript(tr *protocol.SpeechTranscribed) {
	r.DropPending()
	r.turns = append(r.turns, models.Turn{
		ID:         fragmentID(tr.MessageID),
		Role:       models.RoleUser,
		Text:       tr.Text,
		Assessment: tr.Assessment,
		CreatedAt:  time.Now(),
	})
}

// DropPending 移除占位消息，流程出错时调用
func (r *Reconciler) DropPending() {
	for i := range r.turns {
		if r.turns[i].Pending {
			r.turns = append(r.turns[:i], r.turns[i+1:]...)
			return
		}
	}
}

// AttachAudio 给指定消息补上语音地址
func (r *Reconciler) AttachAudio(turnID, audioURL string) {
	for i := range r.turns {
		if r.turns[i].ID == turnID {
			r.turns[i].AudioURL = audioURL
			return
		}
	}
}

// lastStreaming 最近一条仍在流式状态的 AI 消息
func (r *Reconciler) lastStreaming() *models.Turn {
	for i := len(r.turns) - 1; i >= 0; i-- {
		if r.turns[i].Role == models.RoleAssistant && r.turns[i].Streaming {
			return &r.turns[i]
		}
	}
	return nil
}

// fragmentID 服务端没给消息 ID 时本地补一个
func fragmentID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
