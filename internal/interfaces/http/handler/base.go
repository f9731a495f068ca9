// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"solidwriter-api/internal/interfaces/http/dto"
	apperrors "solidwriter-api/pkg/errors"
	"solidwriter-api/pkg/logger"
)

// writeError 在 HTTP 边界记录一次失败并输出统一错误结构
func writeError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	ctx := c.Request.Context()
	if appErr.HTTPStatus >= 500 {
		logger.Error(ctx, "request failed", err,
			"path", c.FullPath(),
			"error_code", string(appErr.Code),
		)
	} else {
		logger.Warn(ctx, "request rejected",
			"path", c.FullPath(),
			"error_code", string(appErr.Code),
			"detail", appErr.Detail,
		)
	}
	dto.AppError(c, appErr)
}
