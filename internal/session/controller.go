package session

import (
	"context"
	"strings"
	"sync"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"LinguaTutor/internal/identity"
	"LinguaTutor/internal/listening"
	"LinguaTutor/internal/models"
	"LinguaTutor/internal/player"
	"LinguaTutor/internal/protocol"
	"LinguaTutor/internal/recorder"
	"LinguaTutor/pkg/cache"
	apperrors "LinguaTutor/pkg/errors"
	"LinguaTutor/pkg/i18n"
	"LinguaTutor/pkg/logger"
	"LinguaTutor/pkg/metrics"
	"LinguaTutor/pkg/notification"
	"LinguaTutor/pkg/transport"
)

// PromptKind 需要学生确认的对话框类型
type PromptKind string

const (
	PromptInactivity     PromptKind = "inactivity"      // 长时间无操作
	PromptConnectionLost PromptKind = "connection_lost" // 连接意外断开
	PromptSessionEnded   PromptKind = "session_ended"   // 本次会话结束
	PromptReplayHint     PromptKind = "replay_hint"     // 答错，提示重听
	PromptQuizComplete   PromptKind = "quiz_complete"   // 测验全部完成
)

// SignalBadgeUnlocked 徽章解锁信号名
const SignalBadgeUnlocked = "badge.unlocked"

// 会话剩余时间低于该值时提示一次
const lowTimeThreshold = 60

// Navigator 页面跳转抽象
type Navigator interface {
	GoBack()
	RedirectToLogin()
}

// Options 控制器依赖与参数
type Options struct {
	TopicID string
	Mode    string

	Profile   *identity.Profile
	Transport *transport.Client
	Recorder  *recorder.Recorder
	Player    *player.Player
	Toaster   notification.Toaster
	I18n      *i18n.I18nSupport
	Navigator Navigator
	Cache     cache.Cache

	IdleTimeout   time.Duration // 到期断开连接
	NudgeTimeout  time.Duration // 到期发无回复提醒
	SendRateLimit string        // ulule/limiter 格式，如 "10-S"
}

// Controller owns one tutoring session end to end. All state mutations
// run on a single loop goroutine; transport callbacks, timers and the
// public API post commands into that loop, so handlers never race on
// the turn list or the stage machine.
type Controller struct {
	opts Options

	commands chan func()
	quit     chan struct{}
	quitOnce sync.Once

	sendLimiter *limiter.Limiter

	// 以下状态只在命令循环内读写
	rec             *Reconciler
	machine         *listening.Machine
	ident           protocol.Identity
	status          string
	remaining       int
	turnCount       int
	completed       bool
	dailyLimit      bool
	topicImage      string
	badges          []models.Badge
	lastAssess      *models.Assessment
	lowTimeWarned   bool
	inactivityShown bool
	startedAt       time.Time
	idleTimer       *time.Timer
	nudgeTimer      *time.Timer

	onPrompt func(PromptKind)
	onChange func()
}

// NewController 创建会话控制器并启动命令循环
func NewController(opts Options) (*Controller, error) {
	if opts.Transport == nil || opts.Profile == nil {
		return nil, apperrors.New("transport and profile are required")
	}
	if !models.IsValidMode(opts.Mode) {
		return nil, apperrors.Newf("unknown learning mode %q", opts.Mode)
	}
	if opts.Toaster == nil {
		opts.Toaster = notification.LogToaster{}
	}
	if opts.SendRateLimit == "" {
		opts.SendRateLimit = "10-S"
	}
	rate, err := limiter.NewRateFromFormatted(opts.SendRateLimit)
	if err != nil {
		return nil, apperrors.Wrap(err, "parse send rate limit")
	}

	c := &Controller{
		opts:        opts,
		commands:    make(chan func(), 64),
		quit:        make(chan struct{}),
		sendLimiter: limiter.New(memory.NewStore(), rate),
		rec:         NewReconciler(),
		machine:     listening.NewMachine(),
		status:      models.SessionIdle,
		ident: protocol.Identity{
			UserID:  opts.Profile.UserID,
			TopicID: opts.TopicID,
		},
	}
	go c.run()
	return c, nil
}

// OnPrompt 注册对话框回调
func (c *Controller) OnPrompt(fn func(PromptKind)) {
	c.post(func() { c.onPrompt = fn })
}

// OnChange 注册状态变更回调，UI 据此刷新
func (c *Controller) OnChange(fn func()) {
	c.post(func() { c.onChange = fn })
}

// run 命令循环，会话的全部状态都在这里串行更新
func (c *Controller) run() {
	for {
		select {
		case fn := <-c.commands:
			fn()
		case <-c.quit:
			return
		}
	}
}

// post 异步投递命令，控制器已关闭时丢弃
func (c *Controller) post(fn func()) {
	select {
	case c.commands <- fn:
	case <-c.quit:
	}
}

// do 同步执行命令并取回结果
func (c *Controller) do(fn func() error) error {
	res := make(chan error, 1)
	select {
	case c.commands <- func() { res <- fn() }:
	case <-c.quit:
		return apperrors.New("session controller is closed")
	}
	select {
	case err := <-res:
		return err
	case <-c.quit:
		return apperrors.New("session controller is closed")
	}
}

// Open 建立连接、注册事件处理并请求历史消息
func (c *Controller) Open(ctx context.Context) error {
	c.registerHandlers()
	if err := c.opts.Transport.Connect(ctx); err != nil {
		c.toast(notification.LevelError, i18n.MsgConnectionError)
		return err
	}
	return c.do(func() error {
		c.status = models.SessionActive
		c.inactivityShown = false
		if c.startedAt.IsZero() {
			c.startedAt = time.Now()
		}
		c.resetTimers()
		return c.requestHistory()
	})
}

// requestHistory 拉取历史消息，循环内调用
func (c *Controller) requestHistory() error {
	err := c.opts.Transport.Send(protocol.GetChatHistory{
		Type:     transport.TypeGetChatHistory,
		Identity: c.ident,
		Mode:     c.opts.Mode,
	})
	if err != nil {
		c.toast(notification.LevelWarning, i18n.MsgHistoryUnavailable)
	}
	return err
}

// SendText 发送一条文字消息
func (c *Controller) SendText(text string) error {
	return c.do(func() error {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return apperrors.New("message is empty")
		}
		if err := c.guardOutbound(); err != nil {
			return err
		}
		if c.rec.HasPending() {
			return apperrors.New("a reply is already pending")
		}
		if !c.allowSend() {
			return apperrors.WithCode(apperrors.CodeSendRateLimited, "sending too fast")
		}

		id := c.rec.AppendSent(trimmed)
		if _, err := c.rec.AppendPending(); err != nil {
			return err
		}
		err := c.opts.Transport.Send(protocol.TextMessage{
			Type:      transport.TypeText,
			Identity:  c.ident,
			Text:      trimmed,
			MessageID: id,
		})
		if err != nil {
			c.rec.DropPending()
			c.toast(notification.LevelWarning, i18n.MsgNotConnected)
			return err
		}
		c.resetTimers()
		c.changed()
		return nil
	})
}

// StartRecording 开始录音
func (c *Controller) StartRecording(ctx context.Context) error {
	return c.do(func() error {
		if c.opts.Recorder == nil {
			return apperrors.New("no recorder configured")
		}
		if err := c.guardOutbound(); err != nil {
			if apperrors.IsCode(err, apperrors.CodeNotConnected) {
				// 掉线时顺带弹出"还在吗"确认框
				c.showPrompt(PromptInactivity)
			}
			return err
		}
		if err := c.opts.Recorder.Start(ctx); err != nil {
			c.toastForRecordingError(err)
			return err
		}
		c.resetTimers()
		c.changed()
		return nil
	})
}

// StopRecording 结束录音。cancel 为 true 丢弃数据，否则编码后发送
func (c *Controller) StopRecording(cancel bool) error {
	return c.do(func() error {
		if c.opts.Recorder == nil {
			return apperrors.New("no recorder configured")
		}
		result, err := c.opts.Recorder.Stop(cancel)
		if err != nil {
			c.toastForRecordingError(err)
			return err
		}
		c.resetTimers()
		if result == nil {
			// 主动取消，什么都不发
			c.changed()
			return nil
		}

		id := c.rec.AppendSent("")
		c.rec.AttachAudio(id, "local:"+id)
		if _, err := c.rec.AppendPending(); err != nil {
			return err
		}
		err = c.opts.Transport.Send(protocol.AudioMessage{
			Type:      transport.TypeAudio,
			Identity:  c.ident,
			Buffer:    result.Buffer,
			Format:    result.Format,
			MessageID: id,
		})
		if err != nil {
			c.rec.DropPending()
			c.toast(notification.LevelWarning, i18n.MsgNotConnected)
			return err
		}
		c.changed()
		return nil
	})
}

// TogglePlay 播放或暂停一段消息语音。手动点击同时解锁自动播放。
func (c *Controller) TogglePlay(turnID, url string) error {
	if c.opts.Player == nil {
		return apperrors.New("no player configured")
	}
	c.opts.Player.Unlock()
	err := c.opts.Player.Toggle(turnID, url, func() {
		c.post(func() { c.audioFinished(turnID) })
	})
	if err != nil {
		c.toast(notification.LevelWarning, i18n.MsgPlaybackError)
		return err
	}
	c.post(func() {
		c.resetTimers()
		c.changed()
	})
	return nil
}

// audioFinished 一段语音播放完成，在循环内处理门控
func (c *Controller) audioFinished(turnID string) {
	if turnID == c.stageAudioID() {
		c.machine.MarkAudioDone()
	}
	c.changed()
}

// stageAudioID 当前听力阶段门控音频的播放 ID
func (c *Controller) stageAudioID() string {
	stage := c.machine.Stage()
	if stage == "" || stage == protocol.StageQuiz {
		return ""
	}
	return "stage:" + stage
}

// StartListeningMode 进入听力模式
func (c *Controller) StartListeningMode() error {
	return c.do(func() error {
		if err := c.guardOutbound(); err != nil {
			return err
		}
		c.machine.Reset()
		err := c.opts.Transport.Send(protocol.StartListening{
			Type:     transport.TypeStartListening,
			Identity: c.ident,
		})
		if err != nil {
			c.toast(notification.LevelWarning, i18n.MsgNotConnected)
			return err
		}
		c.resetTimers()
		return nil
	})
}

// AdvanceStage 请求进入下一个听力阶段，门控音频没听完时拒绝
func (c *Controller) AdvanceStage() error {
	return c.do(func() error {
		if !c.machine.CanAdvance() {
			return apperrors.New("finish listening to the audio first")
		}
		err := c.opts.Transport.Send(protocol.NextStage{
			Type:         transport.TypeNextStage,
			Identity:     c.ident,
			CurrentStage: c.machine.Stage(),
		})
		if err != nil {
			c.toast(notification.LevelWarning, i18n.MsgNotConnected)
			return err
		}
		c.resetTimers()
		return nil
	})
}

// AnswerQuiz 回答当前测验题
func (c *Controller) AnswerQuiz(optionIndex int) error {
	return c.do(func() error {
		outcome, err := c.machine.Answer(optionIndex)
		if err != nil {
			return err
		}
		c.resetTimers()
		switch outcome {
		case listening.OutcomeIncorrect:
			c.toast(notification.LevelInfo, i18n.MsgQuizTryAgain)
			c.showPrompt(PromptReplayHint)
		case listening.OutcomeSubmit:
			err := c.opts.Transport.Send(protocol.SubmitMCQs{
				Type:     transport.TypeSubmitMCQs,
				Identity: c.ident,
				Answers:  c.machine.Answers(),
			})
			if err != nil {
				c.toast(notification.LevelWarning, i18n.MsgNotConnected)
				return err
			}
			c.completed = true
			c.status = models.SessionCompleted
			metrics.RecordSessionCompleted()
			c.showPrompt(PromptQuizComplete)
		}
		c.changed()
		return nil
	})
}

// ResetChat 清空当前话题的对话并重新开始
func (c *Controller) ResetChat() error {
	return c.do(func() error {
		err := c.opts.Transport.Send(protocol.ResetChat{
			Type:     transport.TypeResetChat,
			Identity: c.ident,
		})
		if err != nil {
			c.toast(notification.LevelWarning, i18n.MsgNotConnected)
			return err
		}
		c.rec.LoadHistory(nil)
		c.machine.Reset()
		c.completed = false
		c.lowTimeWarned = false
		c.status = models.SessionActive
		c.resetTimers()
		c.changed()
		return nil
	})
}

// ResetDailyLimit 跨天后清除每日限额标记，由定时任务触发
func (c *Controller) ResetDailyLimit() {
	c.post(func() {
		if c.dailyLimit {
			c.dailyLimit = false
			logger.Info("每日会话限额已重置")
			c.changed()
		}
	})
}

// RequestStatus 主动查询会话剩余时长
func (c *Controller) RequestStatus() error {
	return c.do(func() error {
		return c.opts.Transport.Send(protocol.SessionStatusRequest{
			Type:     transport.TypeSessionStatus,
			Identity: c.ident,
		})
	})
}

// StillHere 学生在"还在吗"对话框上选择继续，重新连接
func (c *Controller) StillHere(ctx context.Context) error {
	if err := c.opts.Transport.Connect(ctx); err != nil {
		c.toast(notification.LevelError, i18n.MsgConnectionError)
		return err
	}
	return c.do(func() error {
		c.inactivityShown = false
		c.status = models.SessionActive
		c.resetTimers()
		return c.requestHistory()
	})
}

// LeaveSession 学生离开会话：释放全部资源并返回上一页
func (c *Controller) LeaveSession() {
	c.do(func() error {
		c.teardown()
		return nil
	})
	c.quitOnce.Do(func() { close(c.quit) })
	if c.opts.Navigator != nil {
		c.opts.Navigator.GoBack()
	}
}

// State 当前会话状态快照
func (c *Controller) State() models.SessionState {
	var snapshot models.SessionState
	c.do(func() error {
		snapshot = models.SessionState{
			Status:        c.status,
			Mode:          c.opts.Mode,
			Turns:         c.rec.Turns(),
			Remaining:     time.Duration(c.remaining) * time.Second,
			TurnCount:     c.turnCount,
			TopicImageURL: c.topicImage,
			Badges:        append([]models.Badge(nil), c.badges...),
			LastAssess:    c.lastAssess,
			StartedAt:     c.startedAt,
		}
		return nil
	})
	return snapshot
}

// ListeningStage 当前听力阶段与门控状态
func (c *Controller) ListeningStage() (stage string, audioDone bool) {
	c.do(func() error {
		stage = c.machine.Stage()
		audioDone = c.machine.AudioDone()
		return nil
	})
	return
}

// CurrentQuestion 测验阶段当前题目
func (c *Controller) CurrentQuestion() (models.MCQItem, bool) {
	var item models.MCQItem
	var ok bool
	c.do(func() error {
		item, ok = c.machine.CurrentQuestion()
		return nil
	})
	return item, ok
}

// guardOutbound 出站操作的公共门禁
func (c *Controller) guardOutbound() error {
	if c.dailyLimit {
		return apperrors.WithCode(apperrors.CodeDailyLimitReached, "daily session limit reached")
	}
	if c.completed {
		return apperrors.WithCode(apperrors.CodeChatCompleted, "this chat has been completed")
	}
	if c.opts.Transport.State() != transport.StateOpen {
		c.toast(notification.LevelWarning, i18n.MsgNotConnected)
		return apperrors.WithCode(apperrors.CodeNotConnected, "connection is not open")
	}
	return nil
}

// allowSend 出站限速
func (c *Controller) allowSend() bool {
	lctx, err := c.sendLimiter.Get(context.Background(), "outbound:"+c.ident.UserID)
	if err != nil {
		return true
	}
	if lctx.Reached {
		c.toast(notification.LevelWarning, i18n.MsgSendTooFast)
		return false
	}
	return true
}

// ---- 计时器 ----

// resetTimers 清掉并重启两个计时器，所有有效用户动作都会走到这里
func (c *Controller) resetTimers() {
	c.stopTimers()
	if c.opts.IdleTimeout > 0 {
		c.idleTimer = time.AfterFunc(c.opts.IdleTimeout, func() {
			c.post(c.idleExpired)
		})
	}
	c.armNudge()
}

// armNudge 单独重启无回复计时器，听力模式没有自由输入，不启用
func (c *Controller) armNudge() {
	if c.nudgeTimer != nil {
		c.nudgeTimer.Stop()
		c.nudgeTimer = nil
	}
	if c.opts.NudgeTimeout <= 0 || c.opts.Mode == models.ModeListening {
		return
	}
	c.nudgeTimer = time.AfterFunc(c.opts.NudgeTimeout, func() {
		c.post(c.nudgeExpired)
	})
}

// stopTimers 停掉全部计时器
func (c *Controller) stopTimers() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	if c.nudgeTimer != nil {
		c.nudgeTimer.Stop()
		c.nudgeTimer = nil
	}
}

// idleExpired 长时间无操作：主动断开并询问学生是否还在
func (c *Controller) idleExpired() {
	logger.Info("会话空闲超时，断开连接")
	metrics.RecordTimerFired("idle")
	c.stopTimers()
	c.inactivityShown = true
	c.opts.Transport.Close(true)
	c.status = models.SessionIdle
	c.showPrompt(PromptInactivity)
	c.changed()
}

// nudgeExpired 学生迟迟没有回复：提醒后端主动接话
func (c *Controller) nudgeExpired() {
	if c.completed || c.dailyLimit {
		return
	}
	if !c.ident.Complete() || c.opts.Transport.State() != transport.StateOpen {
		return
	}
	logger.Debug("无回复超时，发送提醒")
	metrics.RecordTimerFired("nudge")
	err := c.opts.Transport.Send(protocol.NoResponse{
		Type:     transport.TypeNoResponse,
		Identity: c.ident,
	})
	if err != nil {
		return
	}
	if !c.rec.HasPending() {
		c.rec.AppendPending()
	}
	c.changed()
}

// teardown 释放会话占用的全部资源
func (c *Controller) teardown() {
	c.stopTimers()
	if c.opts.Player != nil {
		c.opts.Player.Stop()
	}
	if c.opts.Recorder != nil && c.opts.Recorder.Capturing() {
		c.opts.Recorder.Stop(true)
	}
	c.opts.Transport.Close(true)
	c.status = models.SessionIdle
	logger.Info("会话已结束", zap.String("topic", c.ident.TopicID))
}

// ---- 辅助 ----

// toast 按文案 ID 发一条提示
func (c *Controller) toast(level notification.Level, msgID string) {
	text := msgID
	if c.opts.I18n != nil {
		text = c.opts.I18n.T(msgID, nil)
	}
	c.opts.Toaster.Toast(level, text)
}

// toastForRecordingError 录音错误转提示
func (c *Controller) toastForRecordingError(err error) {
	switch apperrors.GetCode(err) {
	case apperrors.CodeMicPermission:
		c.toast(notification.LevelError, i18n.MsgMicAccessError)
	case apperrors.CodeNoAudioCaptured:
		c.toast(notification.LevelWarning, i18n.MsgNoAudioCaptured)
	case apperrors.CodeRecordingTooFast:
		c.toast(notification.LevelInfo, i18n.MsgRecordingTooShort)
	default:
		c.toast(notification.LevelWarning, i18n.MsgRecordingError)
	}
}

// showPrompt 触发对话框回调
func (c *Controller) showPrompt(kind PromptKind) {
	if c.onPrompt != nil {
		c.onPrompt(kind)
	}
}

// changed 通知 UI 状态有更新
func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
