// Package messaging 基于 Redis Stream 投递生成流水
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"solidwriter-api/internal/domain/service"
)

// Stream 流定义
type Stream string

// StreamGenerationUsage 生成完成后的用量流水
const StreamGenerationUsage Stream = "stream:generation:usage"

// DLQStream 超过重试次数的消息转入的死信流
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组定义
type ConsumerGroup string

// ConsumerGroupUsageRecorder 把流水落库的消费者组
const ConsumerGroupUsageRecorder ConsumerGroup = "cg-usage-recorder"

// TypeGenerationCompleted 一次生成已结算
const TypeGenerationCompleted = "generation.completed"

// 元数据键，消费端据此恢复日志上下文
const (
	MetaRequestID = "request_id"
	MetaTraceID   = "trace_id"
	MetaMode      = "mode"
)

// Message 写入 Stream data 字段的信封
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewUsageMessage 以 EventID 作为消息 ID，消费端按它去重
func NewUsageMessage(usage service.GenerationUsage) (*Message, error) {
	payload, err := json.Marshal(usage)
	if err != nil {
		return nil, fmt.Errorf("failed to encode usage: %w", err)
	}
	msg := &Message{
		ID:        usage.EventID,
		Type:      TypeGenerationCompleted,
		UserID:    usage.UserID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	msg.SetMetadata(MetaMode, string(usage.Mode))
	return msg, nil
}

// SetMetadata 空值不写入
func (m *Message) SetMetadata(key, value string) {
	if value == "" {
		return
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]string, 3)
	}
	m.Metadata[key] = value
}

// DecodeUsage 解出流水载荷，类型不符时报错
func (m *Message) DecodeUsage() (service.GenerationUsage, error) {
	var usage service.GenerationUsage
	if m.Type != TypeGenerationCompleted {
		return usage, fmt.Errorf("unexpected message type %q", m.Type)
	}
	if err := json.Unmarshal(m.Payload, &usage); err != nil {
		return usage, fmt.Errorf("failed to decode usage: %w", err)
	}
	return usage, nil
}

// BackoffConfig 重试退避
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 1s 起步，每次翻倍，最多 1 分钟
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2}
}

// CalculateBackoff 第 retryCount 次重试前的等待时间
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	if c.Initial <= 0 {
		c.Initial = time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1
	}
	wait := float64(c.Initial)
	for range retryCount {
		wait *= c.Multiplier
		if c.Max > 0 && wait >= float64(c.Max) {
			return c.Max
		}
	}
	return time.Duration(wait)
}
