package i18n

import (
	"encoding/json"
	"log"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// I18nSupport 国际化支持结构体
type I18nSupport struct {
	bundle *i18n.Bundle
	lang   string
}

// 面向学生的提示文案ID
const (
	MsgConnectionError    = "toast.connection_error"
	MsgConnectionLost     = "toast.connection_lost"
	MsgNotConnected       = "toast.not_connected"
	MsgDailyLimit         = "toast.daily_limit"
	MsgChatCompleted      = "toast.chat_completed"
	MsgDuplicateSession   = "toast.duplicate_session"
	MsgAuthFailed         = "toast.auth_failed"
	MsgNoSpeech           = "toast.no_speech"
	MsgNoAudioCaptured    = "toast.no_audio"
	MsgRecordingTooShort  = "toast.recording_too_short"
	MsgRecordingError     = "toast.recording_error"
	MsgMicAccessError     = "toast.mic_access_error"
	MsgPlaybackError      = "toast.playback_error"
	MsgSessionEnding      = "toast.session_ending"
	MsgHistoryUnavailable = "toast.history_unavailable"
	MsgSendTooFast        = "toast.send_too_fast"
	MsgBadgeUnlocked      = "toast.badge_unlocked"
	MsgQuizTryAgain       = "toast.quiz_try_again"
)

// NewI18nSupport 初始化国际化支持
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	bundle := i18n.NewBundle(language.MustParse(defaultLang))
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	registerDefaults(bundle)

	// 加载语言文件（中文和英文），缺失时回退到内置英文文案
	if _, err := bundle.LoadMessageFile("locales/zh.json"); err != nil {
		log.Printf("failed to load zh.json: %v", err)
	}
	if _, err := bundle.LoadMessageFile("locales/en.json"); err != nil {
		log.Printf("failed to load en.json: %v", err)
	}

	return &I18nSupport{bundle: bundle, lang: defaultLang}, nil
}

func registerDefaults(bundle *i18n.Bundle) {
	defaults := []*i18n.Message{
		{ID: MsgConnectionError, Other: "Connection error. Please try refreshing."},
		{ID: MsgConnectionLost, Other: "Connection lost. Please check your internet and refresh if the issue persists."},
		{ID: MsgNotConnected, Other: "Not connected. Please wait or try reconnecting."},
		{ID: MsgDailyLimit, Other: "Daily session limit reached."},
		{ID: MsgChatCompleted, Other: "This chat has been completed."},
		{ID: MsgDuplicateSession, Other: "This session is already active on another device."},
		{ID: MsgAuthFailed, Other: "Your session has expired. Please sign in again."},
		{ID: MsgNoSpeech, Other: "No speech detected. Try again."},
		{ID: MsgNoAudioCaptured, Other: "No audio captured. Try again."},
		{ID: MsgRecordingTooShort, Other: "Recording too short. Try again."},
		{ID: MsgRecordingError, Other: "Recording error. Please try again."},
		{ID: MsgMicAccessError, Other: "Mic access error. Check permissions."},
		{ID: MsgPlaybackError, Other: "Could not play audio."},
		{ID: MsgSessionEnding, Other: "Session time running out! Only {{.Seconds}} seconds left."},
		{ID: MsgHistoryUnavailable, Other: "Cannot get chat history, connection not open."},
		{ID: MsgSendTooFast, Other: "You are sending messages too quickly."},
		{ID: MsgBadgeUnlocked, Other: "Badge unlocked: {{.Badge}}!"},
		{ID: MsgQuizTryAgain, Other: "Not quite. Replay the audio for a hint."},
	}
	_ = bundle.AddMessages(language.English, defaults...)
}

// T 获取翻译文本
func (i *I18nSupport) T(key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, i.lang)

	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		log.Printf("Error translating key %s: %v", key, err)
		return key // 返回键名作为默认值
	}
	return translation
}

// TLang 指定语言获取翻译文本
func (i *I18nSupport) TLang(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)

	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		log.Printf("Error translating key %s: %v", key, err)
		return key
	}
	return translation
}
