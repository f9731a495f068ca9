package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"solidwriter-api/internal/interfaces/http/dto"
	apperrors "solidwriter-api/pkg/errors"
	"solidwriter-api/pkg/logger"
	"solidwriter-api/pkg/metrics"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// Limit 窗口内允许的请求数
	Limit int
	// Window 窗口长度
	Window time.Duration
	// KeyFunc 由身份键与路径构建限流 Key
	KeyFunc func(identity, path string) string
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按用户限流，需放在 Auth 之后
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(identity, path string) string {
			return "ratelimit:user:" + identity + ":" + path
		}
	}

	return func(c *gin.Context) {
		identity := GetIdentityFromGin(c)
		if identity == "" {
			identity = "anonymous"
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		allowed, err := limiter.Allow(c.Request.Context(), cfg.KeyFunc(identity, path), cfg.Limit, cfg.Window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			metrics.RateLimitRejections.WithLabelValues(path).Inc()
			dto.AppError(c, apperrors.ErrTooManyRequests.WithDetail("rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}
