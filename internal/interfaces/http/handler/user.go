package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"solidwriter-api/internal/application/quota"
	"solidwriter-api/internal/interfaces/http/dto"
	"solidwriter-api/internal/interfaces/http/middleware"
	apperrors "solidwriter-api/pkg/errors"
)

// UserHandler 当前用户的额度与流水
type UserHandler struct {
	usage *quota.UsageService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(usage *quota.UsageService) *UserHandler {
	return &UserHandler{usage: usage}
}

// GetUsage 获取当前用户额度
// @Summary 获取当前用户额度
// @Description 返回已用字数、上限、剩余与档位，旧版上限会在此时迁移
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[dto.UsageResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/users/me/usage [get]
func (h *UserHandler) GetUsage(c *gin.Context) {
	identity := middleware.GetIdentityFromGin(c)
	if identity == "" {
		writeError(c, apperrors.ErrUnauthorized)
		return
	}

	snap, err := h.usage.Get(c.Request.Context(), identity)
	if err != nil {
		writeError(c, mapUsageError(err))
		return
	}

	dto.Success(c, &dto.UsageResponse{
		ConsumedUnits: snap.ConsumedUnits,
		UnitLimit:     snap.UnitLimit,
		Remaining:     snap.Remaining,
		Plan:          snap.Plan,
	})
}

// ListUsageEvents 分页列出当前用户的生成流水
// @Summary 生成流水
// @Tags Users
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.UsageEventResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/users/me/usage/events [get]
func (h *UserHandler) ListUsageEvents(c *gin.Context) {
	identity := middleware.GetIdentityFromGin(c)
	if identity == "" {
		writeError(c, apperrors.ErrUnauthorized)
		return
	}

	page := dto.BindPage(c)
	result, err := h.usage.ListEvents(c.Request.Context(), identity, page.ToPagination())
	if err != nil {
		writeError(c, mapUsageError(err))
		return
	}

	dto.SuccessWithPage(c, dto.ToUsageEventResponses(result.Items), dto.PageMetaOf(result))
}

func mapUsageError(err error) error {
	if errors.Is(err, quota.ErrUserNotFound) {
		return apperrors.ErrUserNotFound
	}
	return err
}
