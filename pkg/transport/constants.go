package transport

import "time"

// 出站消息类型（客户端 → 服务端)
const (
	TypeGetChatHistory = "getChatHistory"
	TypeResetChat      = "reset_chat"
	TypeText           = "text"
	TypeAudio          = "audio"
	TypeSessionStatus  = "session_status"
	TypeSubmitMCQs     = "submit_mcqs"
	TypeNextStage      = "next_stage"
	TypeStartListening = "start_listening"
	TypeNoResponse     = "no_response"
)

// 入站消息类型（服务端 → 客户端)
const (
	TypeChatHistory        = "chat_history"
	TypeStreamingResponse  = "streaming_response"
	TypeStreamingComplete  = "streaming_complete"
	TypeSpeechTranscribed  = "speech_transcribed"
	TypeAttachmentURL      = "attachment_url"
	TypeError              = "error"
	TypeChatCompleted      = "chat_completed"
	TypeBadgeUnlocked      = "badge_unlocked"
	TypeMCQList            = "mcq_list"
	TypeMCQResult          = "mcq_result"
	TypeListeningPayload   = "listening_payload"
	TypeListeningCompleted = "listening_completed"
	// 服务端偶尔会下发这两类消息，客户端收到后直接忽略
	TypeMeta       = "meta"
	TypeAudioChunk = "audio_chunk"
)

// 连接状态
const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

// 默认连接参数
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultPongTimeout      = 60 * time.Second
	DefaultPingInterval     = 25 * time.Second
	DefaultMaxMessageSize   = 4 << 20 // 语音消息以 base64 内联，上限放宽到 4MB
)

// 环境变量键
const (
	EnvHandshakeTimeout = "TUTOR_WS_HANDSHAKE_TIMEOUT"
	EnvWriteTimeout     = "TUTOR_WS_WRITE_TIMEOUT"
	EnvPongTimeout      = "TUTOR_WS_PONG_TIMEOUT"
	EnvPingInterval     = "TUTOR_WS_PING_INTERVAL"
	EnvMaxMessageSize   = "TUTOR_WS_MAX_MESSAGE_SIZE"
)
