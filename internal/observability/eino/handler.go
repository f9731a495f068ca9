package eino

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"solidwriter-api/pkg/metrics"
)

var registerOnce sync.Once

// Init 把模型回调注册为 Eino 全局 handler，重复调用无副作用
func Init() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Handler())
	})
}

// startTimeKey 在 OnStart 写入开始时间，结束回调据此计算耗时
type startTimeKey struct{}

// newChatModelCallbackHandler 模型调用的次数、耗时、Token 与 Span
// 流式调用在流读完后才结束 Span；额度结算由生成流水线负责，不在这里做
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			labels := labelsFromContext(ctx)
			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", labels.workflow),
				attribute.String("llm.provider", labels.provider),
				attribute.String("llm.model", modelNameFromInput(input)),
			}
			if info != nil {
				attrs = append(attrs, attribute.String("eino.component", info.Type))
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			var usage *model.TokenUsage
			if output != nil {
				usage = output.TokenUsage
			}
			finishCall(ctx, modelNameFromOutput(output), usage, nil)
			return ctx
		},

		OnEndWithStreamOutput: func(ctx context.Context, _ *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			// 回调拿到的是流的副本，必须读完并关闭，否则上游会阻塞
			go func() {
				defer output.Close()
				modelName, usage, err := drainStream(output)
				finishCall(ctx, modelName, usage, err)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			finishCall(ctx, "", nil, err)
			return ctx
		},
	}
}

// drainStream 读完流，取最后出现的模型名与 Token 用量
func drainStream(sr *schema.StreamReader[*model.CallbackOutput]) (string, *model.TokenUsage, error) {
	var (
		modelName string
		usage     *model.TokenUsage
	)
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return modelName, usage, nil
		}
		if err != nil {
			return modelName, usage, err
		}
		if chunk == nil {
			continue
		}
		if chunk.TokenUsage != nil {
			usage = chunk.TokenUsage
		}
		if name := modelNameFromOutput(chunk); name != "" {
			modelName = name
		}
	}
}

// finishCall 记录指标并结束 OnStart 打开的 Span
func finishCall(ctx context.Context, modelName string, usage *model.TokenUsage, err error) {
	labels := labelsFromContext(ctx)
	modelName = labelOrUnknown(modelName)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LLMCallTotal.WithLabelValues(labels.workflow, labels.provider, modelName, status).Inc()
	if start, ok := ctx.Value(startTimeKey{}).(time.Time); ok {
		metrics.LLMCallDuration.WithLabelValues(labels.workflow, labels.provider, modelName).
			Observe(time.Since(start).Seconds())
	}

	span := trace.SpanFromContext(ctx)
	if usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(labels.workflow, labels.provider, modelName, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(labels.workflow, labels.provider, modelName, "completion").Add(float64(usage.CompletionTokens))
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
