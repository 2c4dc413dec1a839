package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"LinguaTutor/pkg/logger"

	"go.uber.org/zap"
)

// RateLimiterConfig 本地接口的限流配置
//
// Rate 形如 "100-M"、"10-S"；SkipPaths 为前缀匹配。
type RateLimiterConfig struct {
	Rate       string   `json:"rate"`
	SkipPaths  []string `json:"skip_paths"`
	AddHeaders bool     `json:"add_headers"`
}

// DefaultRateLimiterConfig 默认放行 120 次/分钟，健康检查与指标不限
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:       "120-M",
		SkipPaths:  []string{"/healthz", "/metrics"},
		AddHeaders: true,
	}
}

// RateLimiter 按客户端 IP 限流
func RateLimiter(cfg RateLimiterConfig) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		logger.Warn("限流速率无效，使用默认值", zap.String("rate", cfg.Rate), zap.Error(err))
		rate, _ = limiter.NewRateFromFormatted("120-M")
	}
	lim := limiter.New(memory.NewStore(), rate)

	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				c.Next()
				return
			}
		}
		lctx, err := lim.Get(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.Next()
			return
		}
		if cfg.AddHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		}
		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
