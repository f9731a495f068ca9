package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由，generationLimit 只作用于生成接口
func RegisterV1Routes(v1 *gin.RouterGroup, generationLimit gin.HandlerFunc, h *Handlers) {
	// 内容生成
	gen := v1.Group("/generate", generationLimit)
	{
		gen.POST("", h.Generation.Generate)
		gen.POST("/stream", h.Generation.Stream)
	}

	// 当前用户
	me := v1.Group("/users/me")
	{
		me.GET("/usage", h.User.GetUsage)
		me.GET("/usage/events", h.User.ListUsageEvents)
	}
}
