package listening

import (
	"sync"

	"go.uber.org/zap"

	"LinguaTutor/internal/models"
	"LinguaTutor/internal/protocol"
	apperrors "LinguaTutor/pkg/errors"
	"LinguaTutor/pkg/logger"
)

// Outcome 一次答题的结果
type Outcome int

const (
	// OutcomeIncorrect 答错，停留在当前题，提示重听音频
	OutcomeIncorrect Outcome = iota
	// OutcomeAdvanced 答对并进入下一题
	OutcomeAdvanced
	// OutcomeSubmit 最后一题答对，整批答案待提交
	OutcomeSubmit
)

// Machine 听力模式的线性阶段机：朗读 → 提问 → 测验。
// 前两个阶段必须把门控音频听完才能进入下一阶段，完成标记在进入
// 新阶段时重置。
type Machine struct {
	mu        sync.Mutex
	stage     string
	payload   *protocol.ListeningPayload
	audioDone bool
	current   int
	answers   []protocol.MCQSubmission
	completed bool
}

// NewMachine 创建阶段机，初始没有任何阶段数据
func NewMachine() *Machine {
	return &Machine{}
}

// Enter 进入服务端下发的新阶段，重置音频完成标记；
// 进入测验阶段时答题进度归零。
func (m *Machine) Enter(p *protocol.ListeningPayload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stage = p.Stage
	m.payload = p
	m.audioDone = false
	if p.Stage == protocol.StageQuiz {
		m.current = 0
		m.answers = nil
	}
	logger.Info("进入听力阶段", zap.String("stage", p.Stage))
}

// Stage 当前阶段，尚未开始时返回空串
func (m *Machine) Stage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// Payload 当前阶段数据
func (m *Machine) Payload() *protocol.ListeningPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload
}

// MarkAudioDone 记录门控音频播放完成，可重复调用
func (m *Machine) MarkAudioDone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audioDone = true
}

// AudioDone 门控音频是否已播放完成
func (m *Machine) AudioDone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioDone
}

// CanAdvance 能否进入下一阶段。朗读与提问阶段以音频完成为门槛，
// 测验阶段的推进由答题驱动，不走这条路。
func (m *Machine) CanAdvance() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.stage {
	case protocol.StageInitial, protocol.StageQuestionText:
		return m.audioDone
	default:
		return false
	}
}

// CurrentQuestion 测验阶段当前展示的题目
func (m *Machine) CurrentQuestion() (models.MCQItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != protocol.StageQuiz || m.payload == nil ||
		m.current >= len(m.payload.Questions) {
		return models.MCQItem{}, false
	}
	return m.payload.Questions[m.current], true
}

// Progress 测验进度：已完成题数与总题数
func (m *Machine) Progress() (answered, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payload == nil {
		return 0, 0
	}
	return len(m.answers), len(m.payload.Questions)
}

// Answer 提交当前题的选项。答对则记录答案并前进，最后一题答对
// 返回 OutcomeSubmit；答错不前进也不记录。
func (m *Machine) Answer(optionIndex int) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage != protocol.StageQuiz || m.payload == nil {
		return OutcomeIncorrect, apperrors.New("not in quiz stage")
	}
	if m.current >= len(m.payload.Questions) {
		return OutcomeIncorrect, apperrors.New("quiz already finished")
	}
	item := m.payload.Questions[m.current]
	if optionIndex < 0 || optionIndex >= len(item.Options) {
		return OutcomeIncorrect, apperrors.Newf("option index %d out of range", optionIndex)
	}

	if item.Options[optionIndex] != item.Answer {
		logger.Debug("答案不正确", zap.String("question", item.ID))
		return OutcomeIncorrect, nil
	}

	m.answers = append(m.answers, protocol.MCQSubmission{
		QuestionID:  item.ID,
		AnswerIndex: optionIndex,
	})
	m.current++
	if m.current >= len(m.payload.Questions) {
		m.completed = true
		logger.Info("测验完成", zap.Int("questions", len(m.answers)))
		return OutcomeSubmit, nil
	}
	return OutcomeAdvanced, nil
}

// Answers 返回已记录的整批答案
func (m *Machine) Answers() []protocol.MCQSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.MCQSubmission, len(m.answers))
	copy(out, m.answers)
	return out
}

// Completed 测验是否已全部答完
func (m *Machine) Completed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}

// Reset 清空全部状态，重新开始听力模式时调用
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stage = ""
	m.payload = nil
	m.audioDone = false
	m.current = 0
	m.answers = nil
	m.completed = false
}
