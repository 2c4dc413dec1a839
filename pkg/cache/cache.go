package cache

import (
	"context"
	"time"
)

// Cache 缓存接口，会话控制器用它做响应去重和音频句柄缓存
type Cache interface {
	// Get 获取缓存值
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set 设置缓存值
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Delete 删除缓存
	Delete(ctx context.Context, key string) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key string) bool

	// Clear 清空所有缓存
	Clear(ctx context.Context) error

	// Len 当前缓存项数量
	Len(ctx context.Context) int

	// Close 关闭缓存连接
	Close() error
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "gocache"、"lru" 或 "redis"
	Type string `json:"type" env:"CACHE_TYPE" default:"gocache"`

	// Redis配置
	Redis RedisConfig `json:"redis"`

	// 本地缓存配置
	Local LocalConfig `json:"local"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `json:"addr" env:"REDIS_ADDR" default:"localhost:6379"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB" default:"0"`

	PoolSize     int           `json:"pool_size" env:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// LocalConfig 本地缓存配置
type LocalConfig struct {
	// 最大缓存项数（lru后端生效）
	MaxSize int `json:"max_size" env:"LOCAL_CACHE_MAX_SIZE" default:"1000"`

	// 默认过期时间
	DefaultExpiration time.Duration `json:"default_expiration" env:"LOCAL_CACHE_DEFAULT_EXPIRATION" default:"5m"`

	// 清理间隔（gocache后端生效）
	CleanupInterval time.Duration `json:"cleanup_interval" env:"LOCAL_CACHE_CLEANUP_INTERVAL" default:"10m"`
}

// DefaultLocalConfig 默认本地缓存配置
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		MaxSize:           1000,
		DefaultExpiration: 5 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	}
}
