// Package generation 编排内容生成与额度结算
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"solidwriter-api/internal/domain/entity"
	einoobs "solidwriter-api/internal/observability/eino"
	"solidwriter-api/internal/workflow/port"
	workflowprompt "solidwriter-api/internal/workflow/prompt"
)

// ProviderError 远端模型调用失败，Err 为上游原始错误
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Invoker 把指令对发送给远端模型，不做重试
type Invoker struct {
	factory  port.ChatModelFactory
	provider string
}

// NewInvoker provider 为空时使用工厂的默认 provider
func NewInvoker(factory port.ChatModelFactory, provider string) *Invoker {
	return &Invoker{factory: factory, provider: strings.TrimSpace(provider)}
}

// Info 当前 provider 的元信息
func (i *Invoker) Info() port.ModelInfo {
	return i.factory.Describe(i.provider)
}

// Invoke 一次性生成完整文本
func (i *Invoker) Invoke(ctx context.Context, mode entity.Mode, ins *workflowprompt.Instruction) (string, error) {
	info := i.Info()
	ctx = einoobs.WithWorkflowProvider(ctx, workflowName(mode, false), info.Provider)

	chatModel, err := i.factory.Get(ctx, i.provider)
	if err != nil {
		return "", &ProviderError{Provider: info.Provider, Err: err}
	}

	outMsg, err := chatModel.Generate(ctx, ins.Messages, buildModelOptions(info)...)
	if err != nil {
		return "", &ProviderError{Provider: info.Provider, Err: err}
	}
	if outMsg == nil {
		return "", &ProviderError{Provider: info.Provider, Err: errors.New("empty llm response")}
	}
	return outMsg.Content, nil
}

// Stream 返回按上游顺序产出的文本块序列，调用方负责 Close()
func (i *Invoker) Stream(ctx context.Context, mode entity.Mode, ins *workflowprompt.Instruction) (*TextStream, error) {
	info := i.Info()
	ctx = einoobs.WithWorkflowProvider(ctx, workflowName(mode, true), info.Provider)

	chatModel, err := i.factory.Get(ctx, i.provider)
	if err != nil {
		return nil, &ProviderError{Provider: info.Provider, Err: err}
	}

	reader, err := chatModel.Stream(ctx, ins.Messages, buildModelOptions(info)...)
	if err != nil {
		return nil, &ProviderError{Provider: info.Provider, Err: err}
	}
	return &TextStream{reader: reader, provider: info.Provider}, nil
}

func workflowName(mode entity.Mode, stream bool) string {
	if stream {
		return "generate_" + string(mode) + "_stream"
	}
	return "generate_" + string(mode)
}

func buildModelOptions(info port.ModelInfo) []model.Option {
	opts := make([]model.Option, 0, 2)
	if name := info.ModelName(); name != "" {
		opts = append(opts, model.WithModel(name))
	}
	if info.Reasoning {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"reasoning": map[string]any{"enabled": true},
		}))
	}
	return opts
}

// TextStream 只进不退的文本块序列，不可重放
// 约定：流可能在最后返回一个 Content 为空但包含 Usage 的消息，这类消息会被跳过
type TextStream struct {
	reader   *schema.StreamReader[*schema.Message]
	provider string
	done     bool
}

// Next 返回下一个非空文本块，结束时返回 io.EOF
func (s *TextStream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		msg, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			s.done = true
			return "", &ProviderError{Provider: s.provider, Err: err}
		}
		if msg != nil && msg.Content != "" {
			return msg.Content, nil
		}
	}
}

// Close 释放底层连接
func (s *TextStream) Close() {
	if s.reader != nil {
		s.reader.Close()
	}
}
