package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"solidwriter-api/internal/domain/service"
	"solidwriter-api/pkg/logger"
	pkgtracer "solidwriter-api/pkg/tracer"
)

var tracer = otel.Tracer("messaging")

// Producer 向 Stream 追加消息，按 MaxLen 近似裁剪
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer maxLen 不大于 0 时不裁剪
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	return &Producer{client: client, maxLen: maxLen}
}

// Append 写入一条消息，返回 Stream 分配的 ID
func (p *Producer) Append(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Append",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: string(stream),
		Values: map[string]interface{}{"data": string(data)},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		pkgtracer.RecordError(span, err)
		return "", fmt.Errorf("failed to append to %s: %w", stream, err)
	}

	span.SetAttributes(attribute.String("stream.message_id", id))
	return id, nil
}

// UsagePublisher 把结算后的生成流水投递到 StreamGenerationUsage
type UsagePublisher struct {
	producer *Producer
}

// NewUsagePublisher 创建流水发布器
func NewUsagePublisher(producer *Producer) *UsagePublisher {
	return &UsagePublisher{producer: producer}
}

// Publish 实现 service.UsagePublisher，附带请求 ID 与 trace id 供消费端串联日志
func (u *UsagePublisher) Publish(ctx context.Context, usage service.GenerationUsage) error {
	msg, err := NewUsageMessage(usage)
	if err != nil {
		return err
	}
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		msg.SetMetadata(MetaRequestID, reqID)
	}
	msg.SetMetadata(MetaTraceID, pkgtracer.TraceID(ctx))

	_, err = u.producer.Append(ctx, StreamGenerationUsage, msg)
	return err
}
