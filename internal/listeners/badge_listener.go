package listeners

import (
	"go.uber.org/zap"

	"LinguaTutor/internal/models"
	"LinguaTutor/internal/session"
	"LinguaTutor/pkg/logger"
	"LinguaTutor/pkg/metrics"
	"LinguaTutor/pkg/util"
)

// InitBadgeListeners 注册徽章解锁的信号监听
func InitBadgeListeners() {
	util.Sig().Connect(session.SignalBadgeUnlocked, func(sender any, params ...any) {
		if len(params) == 0 {
			return
		}
		badge, ok := params[0].(models.Badge)
		if !ok {
			return
		}
		logger.Info("解锁新徽章",
			zap.String("badge", badge.Name),
			zap.String("id", badge.ID),
		)
		metrics.RecordBadgeUnlocked()
	})
}
