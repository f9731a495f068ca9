// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"solidwriter-api/internal/interfaces/http/dto"
	apperrors "solidwriter-api/pkg/errors"
	"solidwriter-api/pkg/logger"
	"solidwriter-api/pkg/utils"
)

type identityCtxKey struct{}

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
	// SkipPaths 跳过认证的路径
	SkipPaths []string
	// Enabled 是否启用认证
	Enabled bool
}

// Auth 认证中间件：校验 Bearer Token 并把身份键注入上下文
// 认证机制本身由外部身份服务负责，这里只信任其签发的 Token
func Auth(cfg AuthConfig) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	skipMap := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}
		for path := range skipMap {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, apperrors.ErrTokenMissing)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, apperrors.ErrTokenInvalid.WithDetail("invalid authorization format"))
			return
		}

		claims, err := jwtManager.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				abortUnauthorized(c, apperrors.ErrTokenExpired)
				return
			}
			abortUnauthorized(c, apperrors.ErrTokenInvalid)
			return
		}

		identity := claims.Identity()
		if identity == "" {
			abortUnauthorized(c, apperrors.ErrUnauthorized)
			return
		}

		c.Set("identity", identity)
		ctx := WithIdentity(c.Request.Context(), identity)
		ctx = logger.WithContext(ctx, logger.UserIDKey, identity)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// WithIdentity 写入已验证的身份键
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// GetIdentity 从 context 获取身份键，未认证时为空
func GetIdentity(ctx context.Context) string {
	if v, ok := ctx.Value(identityCtxKey{}).(string); ok {
		return v
	}
	return ""
}

// GetIdentityFromGin 从 Gin Context 获取身份键
func GetIdentityFromGin(c *gin.Context) string {
	if id := c.GetString("identity"); id != "" {
		return id
	}
	return GetIdentity(c.Request.Context())
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Code:    http.StatusUnauthorized,
		Message: appErr.Message,
		Error:   &dto.ErrorDetail{ErrorCode: string(appErr.Code), Details: appErr.Detail},
		TraceID: c.GetString("trace_id"),
	})
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}
