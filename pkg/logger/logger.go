package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string `env:"LOG_LEVEL"`       // debug/info/warn/error
	File       string `env:"LOG_FILE"`        // 为空时仅输出到stdout
	MaxSizeMB  int    `env:"LOG_MAX_SIZE"`    // 单个日志文件大小上限
	MaxBackups int    `env:"LOG_MAX_BACKUPS"` // 保留的历史文件数
	MaxAgeDays int    `env:"LOG_MAX_AGE"`     // 保留天数
	Compress   bool   `env:"LOG_COMPRESS"`
}

var (
	mu  sync.RWMutex
	lg  *zap.Logger
	sug *zap.SugaredLogger
)

func init() {
	// 默认logger，Init之前也可用
	l, _ := zap.NewProduction()
	lg = l
	sug = l.Sugar()
}

// Init 按配置初始化全局logger（lumberjack负责滚动）
func Init(cfg LogConfig) error {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(defaultStr(cfg.Level, "info"))); err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	var sink zapcore.WriteSyncer
	if cfg.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    defaultInt(cfg.MaxSizeMB, 100),
			MaxBackups: defaultInt(cfg.MaxBackups, 5),
			MaxAge:     defaultInt(cfg.MaxAgeDays, 14),
			Compress:   cfg.Compress,
		})
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(os.Stdout))
	} else {
		sink = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, sink, level)
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	mu.Lock()
	lg = l
	sug = l.Sugar()
	mu.Unlock()
	return nil
}

// L 获取原始zap logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return lg
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }

// Infof 格式化日志（偶尔用于非结构化场景）
func Infof(format string, args ...interface{}) {
	mu.RLock()
	s := sug
	mu.RUnlock()
	s.Infof(format, args...)
}

// Sync 刷新缓冲日志
func Sync() {
	_ = L().Sync()
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
