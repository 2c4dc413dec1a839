package config

import (
	"log"
	"os"
	"time"

	"LinguaTutor/pkg/logger"
	"LinguaTutor/pkg/util"
)

// config/config.go
type Config struct {
	ServerURL     string `env:"TUTOR_SERVER_URL"` // 后端地址，http(s)会被改写为ws(s)
	Mode          string `env:"TUTOR_MODE"`       // chat-mode/photo-mode/reading-mode/roleplay-mode/listening-mode/debate-mode
	Locale        string `env:"TUTOR_LOCALE"`
	IdentityFile  string `env:"TUTOR_IDENTITY_FILE"` // 本地用户档案
	StatsAddr     string `env:"TUTOR_STATS_ADDR"`    // gin统计/健康检查监听地址，留空则不启动
	CacheType     string `env:"CACHE_TYPE"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	IdleTimeout   time.Duration `env:"TUTOR_IDLE_TIMEOUT"`    // 无操作断开窗口
	NudgeTimeout  time.Duration `env:"TUTOR_NUDGE_TIMEOUT"`   // 未回复提醒窗口
	SendRateLimit string        `env:"TUTOR_SEND_RATE_LIMIT"` // ulule/limiter格式，如 "10-S"

	Log logger.LogConfig
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development" // 默认使用开发环境
	}
	err := util.LoadEnv(env)
	if err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	cfg := &Config{
		ServerURL:     util.GetEnvDefault("TUTOR_SERVER_URL", "ws://localhost:8080/ws"),
		Mode:          util.GetEnvDefault("TUTOR_MODE", "chat-mode"),
		Locale:        util.GetEnvDefault("TUTOR_LOCALE", "en"),
		IdentityFile:  util.GetEnvDefault("TUTOR_IDENTITY_FILE", "tutor_user.json"),
		StatsAddr:     util.GetEnv("TUTOR_STATS_ADDR"),
		CacheType:     util.GetEnvDefault("CACHE_TYPE", "gocache"),
		RedisAddr:     util.GetEnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: util.GetEnv("REDIS_PASSWORD"),
		RedisDB:       int(util.GetIntEnv("REDIS_DB")),
		IdleTimeout:   2 * time.Minute,
		NudgeTimeout:  45 * time.Second,
		SendRateLimit: util.GetEnvDefault("TUTOR_SEND_RATE_LIMIT", "10-S"),
		Log: logger.LogConfig{
			Level:      util.GetEnvDefault("LOG_LEVEL", "info"),
			File:       util.GetEnv("LOG_FILE"),
			MaxSizeMB:  int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
			MaxAgeDays: int(util.GetIntEnv("LOG_MAX_AGE")),
			Compress:   util.GetBoolEnv("LOG_COMPRESS"),
		},
	}

	if d := util.GetDurationEnv("TUTOR_IDLE_TIMEOUT"); d > 0 {
		cfg.IdleTimeout = d
	}
	if d := util.GetDurationEnv("TUTOR_NUDGE_TIMEOUT"); d > 0 {
		cfg.NudgeTimeout = d
	}

	GlobalConfig = cfg
	return nil
}
