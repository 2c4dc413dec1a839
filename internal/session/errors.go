package session

import (
	"strings"

	"LinguaTutor/internal/protocol"
	apperrors "LinguaTutor/pkg/errors"
	"LinguaTutor/pkg/i18n"
)

// classifyServerError 把服务端错误按消息子串和错误码归类。
// 后端没有稳定的错误码表，子串匹配是与它约定的现实。
func classifyServerError(e *protocol.ServerError) int {
	msg := strings.ToLower(e.Message)
	code := strings.ToLower(e.Code)
	switch {
	case strings.Contains(msg, "daily session limit"):
		return apperrors.CodeDailyLimitReached
	case strings.Contains(msg, "has been completed"):
		return apperrors.CodeChatCompleted
	case strings.Contains(msg, "active session"):
		return apperrors.CodeDuplicateSession
	case code == "401" || code == "unauthorized" ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication"):
		return apperrors.CodeAuthFailed
	case strings.Contains(msg, "no speech"):
		return apperrors.CodeNoSpeechDetected
	default:
		return 0
	}
}

// toastForCode 错误码对应的提示文案 ID，未归类的返回空串
func toastForCode(code int) string {
	switch code {
	case apperrors.CodeDailyLimitReached:
		return i18n.MsgDailyLimit
	case apperrors.CodeChatCompleted:
		return i18n.MsgChatCompleted
	case apperrors.CodeDuplicateSession:
		return i18n.MsgDuplicateSession
	case apperrors.CodeAuthFailed:
		return i18n.MsgAuthFailed
	case apperrors.CodeNoSpeechDetected:
		return i18n.MsgNoSpeech
	default:
		return ""
	}
}
