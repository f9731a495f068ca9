// Package port 生成流水线对外部模型的依赖
package port

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 按 provider 名取得 ChatModel，名称为空时使用默认 provider
type ChatModelFactory interface {
	Get(ctx context.Context, provider string) (model.BaseChatModel, error)
	Describe(provider string) ModelInfo
}

// ModelInfo 调用参数与流水记录所需的 provider 信息
type ModelInfo struct {
	Provider string
	Model    string
	// Reasoning 为 true 时请求体附带 reasoning 扩展字段
	Reasoning bool
}

// ModelName 去掉空白后的模型名，空串表示沿用 provider 配置
func (m ModelInfo) ModelName() string {
	return strings.TrimSpace(m.Model)
}

// String provider/model，用于日志
func (m ModelInfo) String() string {
	if name := m.ModelName(); name != "" {
		return m.Provider + "/" + name
	}
	return m.Provider
}
