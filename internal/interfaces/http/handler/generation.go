package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"solidwriter-api/internal/application/generation"
	"solidwriter-api/internal/interfaces/http/dto"
	"solidwriter-api/internal/interfaces/http/middleware"
	apperrors "solidwriter-api/pkg/errors"
	"solidwriter-api/pkg/logger"
)

// GenerationHandler 内容生成处理器
type GenerationHandler struct {
	pipeline *generation.Pipeline
}

// NewGenerationHandler 创建内容生成处理器
func NewGenerationHandler(pipeline *generation.Pipeline) *GenerationHandler {
	return &GenerationHandler{pipeline: pipeline}
}

// Generate 生成内容
// @Summary 生成内容
// @Description 按 type 选择生成模式，成文模式写回文档并按字数扣减额度
// @Tags Generation
// @Accept json
// @Produce json
// @Param body body dto.GenerateRequest true "生成请求"
// @Success 200 {object} dto.GenerateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.ErrInvalidParam.WithDetail("invalid request body: "+err.Error()))
		return
	}
	ctx := logger.WithContext(c.Request.Context(), logger.ModeKey, string(req.ResolveMode()))
	c.Request = c.Request.WithContext(ctx)

	// 生成一旦开始即运行到结束，不随客户端断开而取消
	res, err := h.pipeline.Generate(context.WithoutCancel(ctx), middleware.GetIdentityFromGin(c), req.ToEntity())
	if err != nil {
		writeError(c, err)
		return
	}

	// 前端直接读取 content/result，不套统一响应结构
	c.JSON(200, dto.ToGenerateResponse(res))
}

// Stream SSE 流式生成
// @Summary SSE 流式生成
// @Description 输出 content{chunk,index} 增量事件，结束时输出 done{units_consumed,mode}，失败时输出 error{code,message}
// @Tags Generation
// @Accept json
// @Produce text/event-stream
// @Param body body dto.GenerateRequest true "生成请求"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /v1/generate/stream [post]
func (h *GenerationHandler) Stream(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.ErrInvalidParam.WithDetail("invalid request body: "+err.Error()))
		return
	}
	ctx := logger.WithContext(c.Request.Context(), logger.ModeKey, string(req.ResolveMode()))
	c.Request = c.Request.WithContext(ctx)

	// 闸门失败在写出响应头之前返回，仍走普通错误响应
	sess, err := h.pipeline.Stream(context.WithoutCancel(ctx), middleware.GetIdentityFromGin(c), req.ToEntity())
	if err != nil {
		writeError(c, err)
		return
	}

	events := make(chan sseEvent, 16)
	clientGone := ctx.Done()

	// 客户端断开后丢弃事件但继续读完上游，保证结算
	send := func(evt sseEvent) {
		select {
		case events <- evt:
		case <-clientGone:
		}
	}

	go func() {
		defer close(events)
		defer sess.Close()

		index := 0
		for {
			chunk, err := sess.Next()
			if errors.Is(err, io.EOF) {
				res := sess.Result()
				send(sseEvent{name: "done", data: gin.H{
					"units_consumed": res.UnitsConsumed,
					"mode":           res.Mode,
				}})
				return
			}
			if err != nil {
				appErr := apperrors.AsAppError(err)
				logger.Error(ctx, "stream generation failed", err, "error_code", string(appErr.Code))
				send(sseEvent{name: "error", data: gin.H{
					"code":    string(appErr.Code),
					"message": appErr.Message,
				}})
				return
			}

			send(sseEvent{name: "content", data: gin.H{"chunk": chunk, "index": index}})
			index++
		}
	}()

	writeSSE(c, events)
}
