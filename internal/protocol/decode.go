package protocol

import (
	"encoding/json"

	"github.com/spf13/cast"

	apperrors "LinguaTutor/pkg/errors"
)

// DecodeSessionStatus 解析会话计量消息。后端偶尔会把数字字段
// 作为字符串下发，这里统一用宽松转换兜住。
func DecodeSessionStatus(data []byte) (*SessionStatus, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(err, "decode session status")
	}
	return &SessionStatus{
		RemainingSeconds: cast.ToInt(raw["remaining_seconds"]),
		TurnCount:        cast.ToInt(raw["turn_count"]),
		DailyLimitUsed:   cast.ToBool(raw["daily_limit_used"]),
	}, nil
}

// Decode 将入站消息解析到目标结构
func Decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrap(err, "decode inbound message")
	}
	return nil
}
