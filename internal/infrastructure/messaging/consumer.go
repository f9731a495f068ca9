package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"solidwriter-api/internal/domain/service"
	"solidwriter-api/pkg/logger"
	"solidwriter-api/pkg/metrics"
)

var errMaxRetries = errors.New("message exceeded max retries")

// UsageHandler 处理一条生成流水，返回错误时消息留在 pending 等待重试
type UsageHandler func(ctx context.Context, usage service.GenerationUsage) error

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
	Handler       UsageHandler
}

// Consumer 以消费者组方式读取流水 Stream
// 失败消息按退避重投，超过重试次数转入死信流；其他实例遗留的 pending 消息会被接管
type Consumer struct {
	client *redis.Client
	cfg    ConsumerConfig
	// reclaimIdle 其他消费者的 pending 消息闲置超过该值才接管
	reclaimIdle time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewConsumer 创建消费者
func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}

	return &Consumer{
		client:      client,
		cfg:         cfg,
		reclaimIdle: max(5*time.Minute, cfg.Backoff.Max*2),
		stopCh:      make(chan struct{}),
	}
}

// Run 建组后阻塞消费，直到 ctx 取消或 Stop
func (c *Consumer) Run(ctx context.Context) error {
	if c.cfg.Handler == nil {
		return fmt.Errorf("consumer %s has no handler", c.cfg.ConsumerName)
	}
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	err := c.client.XGroupCreateMkStream(ctx, string(c.cfg.Stream), string(c.cfg.Group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info(ctx, "consumer started",
		"stream", string(c.cfg.Stream),
		"group", string(c.cfg.Group),
		"consumer", c.cfg.ConsumerName,
	)

	lastReclaim := time.Time{}
	for !c.stopped(ctx) {
		c.retryDue(ctx)
		if time.Since(lastReclaim) >= c.cfg.ClaimInterval {
			c.reclaimStale(ctx)
			lastReclaim = time.Now()
		}
		c.readNew(ctx)
	}
	logger.Info(ctx, "consumer stopped", "consumer", c.cfg.ConsumerName)
	return nil
}

// Stop 停止消费者
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

func (c *Consumer) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Consumer) readNew(ctx context.Context) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    string(c.cfg.Group),
		Consumer: c.cfg.ConsumerName,
		Streams:  []string{string(c.cfg.Stream), ">"},
		Count:    10,
		Block:    c.cfg.BlockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		logger.Error(ctx, "failed to read from stream", err)
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}

	for _, s := range streams {
		for _, xmsg := range s.Messages {
			c.process(ctx, xmsg)
		}
	}
}

// decode 解出 data 字段中的信封
func decode(xmsg redis.XMessage) (*Message, error) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid message format")
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// withMessageContext 恢复生产端的请求上下文字段
func withMessageContext(ctx context.Context, msg *Message) context.Context {
	ctx = logger.WithContext(ctx, logger.UserIDKey, msg.UserID)
	for key, field := range map[string]logger.ContextKey{
		MetaRequestID: logger.RequestIDKey,
		MetaTraceID:   logger.TraceIDKey,
		MetaMode:      logger.ModeKey,
	} {
		if v := msg.Metadata[key]; v != "" {
			ctx = logger.WithContext(ctx, field, v)
		}
	}
	return ctx
}

func (c *Consumer) process(ctx context.Context, xmsg redis.XMessage) {
	stream := string(c.cfg.Stream)
	ctx, span := tracer.Start(ctx, "consumer.process",
		trace.WithAttributes(
			attribute.String("stream", stream),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg, err := decode(xmsg)
	if err != nil {
		// 信封都解不开的消息重试也没有意义
		logger.Error(ctx, "dropping undecodable message", err, "message_id", xmsg.ID)
		metrics.RedisStreamProcessed.WithLabelValues(stream, "dropped").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}
	ctx = withMessageContext(ctx, msg)
	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
	)

	usage, err := msg.DecodeUsage()
	if err != nil {
		logger.Error(ctx, "usage payload rejected", err, "message_id", msg.ID)
		c.moveToDLQ(ctx, msg, err)
		c.ack(ctx, xmsg.ID)
		return
	}

	if err := c.cfg.Handler(ctx, usage); err != nil {
		span.RecordError(err)
		metrics.RedisStreamProcessed.WithLabelValues(stream, "failed").Inc()
		c.handleFailure(ctx, xmsg.ID, msg, err)
		return
	}

	metrics.RedisStreamProcessed.WithLabelValues(stream, "success").Inc()
	c.ack(ctx, xmsg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.cfg.Stream), string(c.cfg.Group), id).Err(); err != nil {
		logger.Error(ctx, "failed to ack message", err, "message_id", id)
	}
}

// handleFailure 投递次数用尽时转入死信流，否则留在 pending 由 retryDue 重投
func (c *Consumer) handleFailure(ctx context.Context, streamID string, msg *Message, err error) {
	deliveries := c.deliveryCount(ctx, streamID)
	if deliveries >= c.cfg.RetryLimit {
		logger.Warn(ctx, "usage message moved to DLQ",
			"message_id", msg.ID,
			"deliveries", deliveries,
			"error", err.Error(),
		)
		c.moveToDLQ(ctx, msg, err)
		c.ack(ctx, streamID)
		return
	}
	logger.Info(ctx, "usage message left pending for retry",
		"message_id", msg.ID,
		"deliveries", deliveries,
		"error", err.Error(),
	)
}

func (c *Consumer) deliveryCount(ctx context.Context, streamID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.cfg.Stream),
		Group:  string(c.cfg.Group),
		Start:  streamID,
		End:    streamID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

func (c *Consumer) moveToDLQ(ctx context.Context, msg *Message, cause error) {
	data, err := json.Marshal(map[string]interface{}{
		"original_stream": string(c.cfg.Stream),
		"data":            msg,
		"error":           cause.Error(),
		"failed_at":       time.Now().Unix(),
	})
	if err != nil {
		logger.Error(ctx, "failed to encode DLQ entry", err, "message_id", msg.ID)
		return
	}
	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream.DLQStream(),
		Values: map[string]interface{}{"data": string(data)},
	}).Err(); err != nil {
		logger.Error(ctx, "failed to write DLQ", err, "message_id", msg.ID)
		return
	}
	metrics.RedisStreamProcessed.WithLabelValues(string(c.cfg.Stream), "dlq").Inc()
}

func (c *Consumer) claim(ctx context.Context, id string, minIdle time.Duration) []redis.XMessage {
	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Consumer: c.cfg.ConsumerName,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
	if err != nil {
		logger.Error(ctx, "failed to claim pending message", err, "message_id", id)
		return nil
	}
	return claimed
}

// pending consumer 为空时查询整个组
func (c *Consumer) pending(ctx context.Context, consumer string) []redis.XPendingExt {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   string(c.cfg.Stream),
		Group:    string(c.cfg.Group),
		Start:    "-",
		End:      "+",
		Count:    20,
		Consumer: consumer,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error(ctx, "failed to query pending messages", err)
		}
		return nil
	}
	return pending
}

// settle 认领后处理；次数已用尽的直接转入死信流
func (c *Consumer) settle(ctx context.Context, p redis.XPendingExt, minIdle time.Duration) {
	exhausted := int(p.RetryCount) >= c.cfg.RetryLimit
	for _, xmsg := range c.claim(ctx, p.ID, minIdle) {
		if !exhausted {
			c.process(ctx, xmsg)
			continue
		}
		if msg, err := decode(xmsg); err == nil {
			c.moveToDLQ(ctx, msg, errMaxRetries)
		}
		c.ack(ctx, xmsg.ID)
	}
}

// retryDue 重投本消费者名下退避已到期的消息
func (c *Consumer) retryDue(ctx context.Context) {
	for _, p := range c.pending(ctx, c.cfg.ConsumerName) {
		wait := c.cfg.Backoff.CalculateBackoff(int(p.RetryCount))
		if int(p.RetryCount) >= c.cfg.RetryLimit {
			wait = 0
		}
		if p.Idle < wait {
			continue
		}
		c.settle(ctx, p, wait)
	}
}

// reclaimStale 接管其他消费者（通常是已退出的实例）长时间未确认的消息
func (c *Consumer) reclaimStale(ctx context.Context) {
	for _, p := range c.pending(ctx, "") {
		if p.Consumer == c.cfg.ConsumerName || p.Idle < c.reclaimIdle {
			continue
		}
		c.settle(ctx, p, c.reclaimIdle)
	}
}

// MonitorDLQ 每分钟上报死信流长度，超过阈值时告警
func (c *Consumer) MonitorDLQ(ctx context.Context, alertThreshold int64) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	dlq := c.cfg.Stream.DLQStream()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
		}

		length, err := c.client.XLen(ctx, dlq).Result()
		if err != nil {
			continue
		}
		metrics.RedisStreamLag.WithLabelValues(dlq, string(c.cfg.Group)).Set(float64(length))
		if length > alertThreshold {
			logger.Warn(ctx, "usage DLQ above threshold",
				"stream", dlq,
				"count", length,
				"threshold", alertThreshold,
			)
		}
	}
}
