package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"LinguaTutor/internal/models"
	"LinguaTutor/internal/player"
	"LinguaTutor/internal/protocol"
	apperrors "LinguaTutor/pkg/errors"
	"LinguaTutor/pkg/i18n"
	"LinguaTutor/pkg/logger"
	"LinguaTutor/pkg/metrics"
	"LinguaTutor/pkg/notification"
	"LinguaTutor/pkg/transport"
	"LinguaTutor/pkg/util"
)

// 去重缓存里已处理消息的保留时间
const dedupTTL = 10 * time.Minute

// registerHandlers 注册全部入站事件，处理逻辑都投递进命令循环
func (c *Controller) registerHandlers() {
	t := c.opts.Transport
	t.On(transport.TypeChatHistory, c.inLoop(c.handleHistory))
	t.On(transport.TypeStreamingResponse, c.inLoop(c.handleFragment))
	t.On(transport.TypeStreamingComplete, c.inLoop(c.handleComplete))
	t.On(transport.TypeSpeechTranscribed, c.inLoop(c.handleTranscript))
	t.On(transport.TypeSessionStatus, c.inLoop(c.handleStatus))
	t.On(transport.TypeAttachmentURL, c.inLoop(c.handleAttachment))
	t.On(transport.TypeError, c.inLoop(c.handleServerError))
	t.On(transport.TypeChatCompleted, c.inLoop(c.handleChatCompleted))
	t.On(transport.TypeBadgeUnlocked, c.inLoop(c.handleBadge))
	t.On(transport.TypeMCQList, c.inLoop(c.handleMCQList))
	t.On(transport.TypeMCQResult, c.inLoop(c.handleMCQResult))
	t.On(transport.TypeListeningPayload, c.inLoop(c.handleListeningPayload))
	t.On(transport.TypeListeningCompleted, c.inLoop(c.handleListeningCompleted))
	t.OnDisconnect(func(intentional bool) {
		c.post(func() { c.handleDisconnect(intentional) })
	})
}

// inLoop 把传输层回调包装成命令循环里的处理函数
func (c *Controller) inLoop(h func(data []byte)) transport.Handler {
	return func(data []byte) {
		c.post(func() { h(data) })
	}
}

// handleHistory 历史消息整体替换，首次到达时带回 chatId
func (c *Controller) handleHistory(data []byte) {
	var h protocol.ChatHistory
	if err := protocol.Decode(data, &h); err != nil {
		logger.Warn("历史消息解析失败", zap.Error(err))
		return
	}
	if c.ident.ChatID == "" && h.ChatID != "" {
		c.ident.ChatID = h.ChatID
		logger.Info("获得会话标识", zap.String("chatId", h.ChatID))
	}
	c.rec.LoadHistory(h.Turns)
	if h.TopicImageURL != "" {
		c.topicImage = h.TopicImageURL
	}
	completed := h.Completed
	for _, t := range h.Turns {
		if t.IsCompleted {
			completed = true
			break
		}
	}
	if completed {
		c.completed = true
		c.status = models.SessionCompleted
	}
	c.resetTimers()
	c.changed()
}

// handleFragment 流式片段并入占位消息
func (c *Controller) handleFragment(data []byte) {
	var frag protocol.StreamingResponse
	if err := protocol.Decode(data, &frag); err != nil {
		return
	}
	c.rec.MergeFragment(&frag)
	// 收到真实的 AI 内容后重新武装无回复计时器
	c.armNudge()
	c.changed()
}

// handleComplete 流式回复结束，按消息 ID 去重
func (c *Controller) handleComplete(data []byte) {
	var done protocol.StreamingComplete
	if err := protocol.Decode(data, &done); err != nil {
		return
	}
	if done.MessageID != "" && c.seen("done:"+done.MessageID) {
		logger.Debug("重复的完成消息，忽略", zap.String("messageId", done.MessageID))
		return
	}
	c.rec.CompleteStream(&done)
	// 没有片段、直接以完成消息到达的回复同样要重置无回复计时
	c.armNudge()

	if done.AudioURL != "" && c.opts.Player != nil {
		// AI 回复的语音尝试自动播放，未解锁就等学生手动点
		err := c.opts.Player.Autoplay(done.MessageID, done.AudioURL, func() {
			c.post(func() { c.audioFinished(done.MessageID) })
		})
		if err != nil && err != player.ErrAutoplayLocked {
			c.toast(notification.LevelWarning, i18n.MsgPlaybackError)
		}
	}
	if done.IsCompleted && c.opts.Mode != models.ModeReading {
		c.completed = true
		c.status = models.SessionCompleted
		metrics.RecordSessionCompleted()
		c.showPrompt(PromptSessionEnded)
	}
	c.changed()
}

// handleTranscript 语音转写结果
func (c *Controller) handleTranscript(data []byte) {
	var tr protocol.SpeechTranscribed
	if err := protocol.Decode(data, &tr); err != nil {
		return
	}
	c.rec.ApplyTranscript(&tr)
	if tr.Assessment != nil {
		c.lastAssess = tr.Assessment
	}
	c.changed()
}

// handleStatus 会话计量更新，剩余时间不足一分钟提示一次
func (c *Controller) handleStatus(data []byte) {
	status, err := protocol.DecodeSessionStatus(data)
	if err != nil {
		return
	}
	c.remaining = status.RemainingSeconds
	c.turnCount = status.TurnCount
	if status.DailyLimitUsed {
		c.dailyLimit = true
	}
	metrics.SetSessionRemaining(status.RemainingSeconds)
	metrics.SetTurnCount(status.TurnCount)

	if status.RemainingSeconds > 0 && status.RemainingSeconds < lowTimeThreshold {
		if !c.lowTimeWarned {
			c.lowTimeWarned = true
			c.status = models.SessionEnding
			if c.opts.I18n != nil {
				c.opts.Toaster.Toast(notification.LevelWarning, c.opts.I18n.T(i18n.MsgSessionEnding,
					map[string]interface{}{"Seconds": status.RemainingSeconds}))
			} else {
				c.toast(notification.LevelWarning, i18n.MsgSessionEnding)
			}
		}
	}
	c.changed()
}

// handleAttachment 话题配图更新
func (c *Controller) handleAttachment(data []byte) {
	var att protocol.AttachmentURL
	if err := protocol.Decode(data, &att); err != nil {
		return
	}
	c.topicImage = att.URL
	c.changed()
}

// handleServerError 服务端错误归类处理，占位消息一律清掉
func (c *Controller) handleServerError(data []byte) {
	var se protocol.ServerError
	if err := protocol.Decode(data, &se); err != nil {
		return
	}
	logger.Warn("服务端错误", zap.String("message", se.Message), zap.String("code", se.Code))
	c.rec.DropPending()

	code := classifyServerError(&se)
	metrics.RecordError(errorClass(code))
	switch code {
	case apperrors.CodeDailyLimitReached:
		c.dailyLimit = true
		c.status = models.SessionCompleted
	case apperrors.CodeChatCompleted:
		c.completed = true
		c.status = models.SessionCompleted
	case apperrors.CodeAuthFailed:
		if c.opts.Navigator != nil {
			c.opts.Navigator.RedirectToLogin()
		}
	}
	if msgID := toastForCode(code); msgID != "" {
		c.toast(notification.LevelError, msgID)
	} else if se.Message != "" {
		// 未归类的错误原样提示
		c.opts.Toaster.Toast(notification.LevelError, se.Message)
	} else {
		c.toast(notification.LevelError, i18n.MsgConnectionError)
	}
	c.changed()
}

// handleChatCompleted 服务端宣告本次会话结束
func (c *Controller) handleChatCompleted(data []byte) {
	c.completed = true
	c.status = models.SessionCompleted
	metrics.RecordSessionCompleted()
	c.showPrompt(PromptSessionEnded)
	c.changed()
}

// handleBadge 徽章解锁：进状态、发信号、弹提示
func (c *Controller) handleBadge(data []byte) {
	var bu protocol.BadgeUnlocked
	if err := protocol.Decode(data, &bu); err != nil {
		return
	}
	if bu.Badge.ID != "" && c.seen("badge:"+bu.Badge.ID) {
		return
	}
	badge := bu.Badge
	if badge.UnlockedAt.IsZero() {
		badge.UnlockedAt = time.Now()
	}
	c.badges = append(c.badges, badge)
	util.Sig().Emit(SignalBadgeUnlocked, c, badge)
	if c.opts.I18n != nil {
		c.opts.Toaster.Toast(notification.LevelSuccess,
			c.opts.I18n.T(i18n.MsgBadgeUnlocked, map[string]interface{}{"Badge": badge.Name}))
	} else {
		c.toast(notification.LevelSuccess, i18n.MsgBadgeUnlocked)
	}
	c.changed()
}

// handleMCQList 服务端下发测验题目，等价于进入测验阶段
func (c *Controller) handleMCQList(data []byte) {
	var list struct {
		Questions []models.MCQItem `json:"questions"`
	}
	if err := protocol.Decode(data, &list); err != nil || len(list.Questions) == 0 {
		return
	}
	c.machine.Enter(&protocol.ListeningPayload{
		Stage:     protocol.StageQuiz,
		Questions: list.Questions,
	})
	c.changed()
}

// handleMCQResult 单题判分结果，仅记录
func (c *Controller) handleMCQResult(data []byte) {
	var res protocol.MCQResult
	if err := protocol.Decode(data, &res); err != nil {
		return
	}
	logger.Debug("测验判分",
		zap.String("question", res.QuestionID), zap.Bool("correct", res.Correct))
}

// handleListeningPayload 新的听力阶段到达，门控音频尝试自动播放
func (c *Controller) handleListeningPayload(data []byte) {
	payload, err := protocol.DecodeListeningPayload(data)
	if err != nil {
		logger.Warn("听力阶段数据不合法", zap.Error(err))
		return
	}
	c.machine.Enter(payload)
	c.resetTimers()

	if url := payload.AudioURL(); url != "" && c.opts.Player != nil {
		id := c.stageAudioID()
		err := c.opts.Player.Autoplay(id, url, func() {
			c.post(func() { c.audioFinished(id) })
		})
		if err != nil && err != player.ErrAutoplayLocked {
			c.toast(notification.LevelWarning, i18n.MsgPlaybackError)
		}
	}
	c.changed()
}

// handleListeningCompleted 听力会话完成
func (c *Controller) handleListeningCompleted(data []byte) {
	c.completed = true
	c.status = models.SessionCompleted
	metrics.RecordSessionCompleted()
	c.showPrompt(PromptSessionEnded)
	c.changed()
}

// handleDisconnect 连接断开。主动断开静默处理；意外掉线在没有
// "还在吗"对话框时提示重连。
func (c *Controller) handleDisconnect(intentional bool) {
	c.stopTimers()
	if c.status != models.SessionCompleted {
		c.status = models.SessionIdle
	}
	if intentional {
		c.changed()
		return
	}
	if !c.inactivityShown {
		c.toast(notification.LevelError, i18n.MsgConnectionLost)
		c.showPrompt(PromptConnectionLost)
	}
	c.changed()
}

// seen 查询并登记一个去重键
func (c *Controller) seen(key string) bool {
	if c.opts.Cache == nil {
		return false
	}
	ctx := context.Background()
	if c.opts.Cache.Exists(ctx, key) {
		return true
	}
	c.opts.Cache.Set(ctx, key, true, dedupTTL)
	return false
}

// errorClass 指标用的错误类别名
func errorClass(code int) string {
	switch code {
	case apperrors.CodeDailyLimitReached:
		return "daily_limit"
	case apperrors.CodeChatCompleted:
		return "chat_completed"
	case apperrors.CodeDuplicateSession:
		return "duplicate_session"
	case apperrors.CodeAuthFailed:
		return "auth"
	case apperrors.CodeNoSpeechDetected:
		return "no_speech"
	default:
		return "unclassified"
	}
}
