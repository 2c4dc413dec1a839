package transport

import (
	"fmt"
	"time"

	"LinguaTutor/pkg/util"
)

// Config WebSocket 客户端配置
type Config struct {
	HandshakeTimeout time.Duration // 握手超时
	WriteTimeout     time.Duration // 单条消息写超时
	PongTimeout      time.Duration // 收到 pong 的最长等待时间
	PingInterval     time.Duration // 心跳间隔，必须小于 PongTimeout
	MaxMessageSize   int64         // 单条入站消息大小上限（字节）
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		PongTimeout:      DefaultPongTimeout,
		PingInterval:     DefaultPingInterval,
		MaxMessageSize:   DefaultMaxMessageSize,
	}
}

// LoadFromEnv 从环境变量加载配置，未设置的项保持原值
func (c *Config) LoadFromEnv() {
	if d := util.GetDurationEnv(EnvHandshakeTimeout); d > 0 {
		c.HandshakeTimeout = d
	}
	if d := util.GetDurationEnv(EnvWriteTimeout); d > 0 {
		c.WriteTimeout = d
	}
	if d := util.GetDurationEnv(EnvPongTimeout); d > 0 {
		c.PongTimeout = d
	}
	if d := util.GetDurationEnv(EnvPingInterval); d > 0 {
		c.PingInterval = d
	}
	if n := util.GetIntEnv(EnvMaxMessageSize); n > 0 {
		c.MaxMessageSize = n
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshake timeout must be positive, got %v", c.HandshakeTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %v", c.WriteTimeout)
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("ping interval must be positive, got %v", c.PingInterval)
	}
	if c.PongTimeout <= c.PingInterval {
		return fmt.Errorf("pong timeout (%v) must exceed ping interval (%v)", c.PongTimeout, c.PingInterval)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("max message size must be positive, got %d", c.MaxMessageSize)
	}
	return nil
}

// Clone 深拷贝配置
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Merge 合并配置，other 中的非零值覆盖当前值
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.HandshakeTimeout > 0 {
		c.HandshakeTimeout = other.HandshakeTimeout
	}
	if other.WriteTimeout > 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.PongTimeout > 0 {
		c.PongTimeout = other.PongTimeout
	}
	if other.PingInterval > 0 {
		c.PingInterval = other.PingInterval
	}
	if other.MaxMessageSize > 0 {
		c.MaxMessageSize = other.MaxMessageSize
	}
}
