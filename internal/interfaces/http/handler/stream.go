package handler

import (
	"io"

	"github.com/gin-gonic/gin"
)

// sseEvent 一条待写出的 SSE 事件
type sseEvent struct {
	name string
	data any
}

// writeSSE 设置 SSE 响应头并按顺序写出事件，直到出现非 content 事件或通道关闭
func writeSSE(c *gin.Context, events <-chan sseEvent) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(evt.name, evt.data)
			return evt.name == "content"

		case <-c.Request.Context().Done():
			// 客户端断开
			return false
		}
	})
}
