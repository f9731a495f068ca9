package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"solidwriter-api/internal/interfaces/http/dto"
	apperrors "solidwriter-api/pkg/errors"
	"solidwriter-api/pkg/logger"
)

// Recovery 捕获 panic 并返回统一错误结构
// 响应头已写出（例如 SSE 已开始）时只能中断连接
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			dto.AppError(c, apperrors.ErrInternalError)
			c.Abort()
		}()

		c.Next()
	}
}
