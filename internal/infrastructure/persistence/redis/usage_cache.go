package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"solidwriter-api/internal/domain/service"
	"solidwriter-api/pkg/logger"
)

const usageKeyPrefix = "usage:"

// UsageCache 额度快照缓存，键为 usage:<email>
// Redis 不可用时直接回源，读额度不依赖缓存
type UsageCache struct {
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewUsageCache 创建额度快照缓存
func NewUsageCache(client *Client, ttl time.Duration) *UsageCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &UsageCache{client: client, ttl: ttl}
}

// BuildUsageKey 构建额度缓存键
func BuildUsageKey(identity string) string {
	return usageKeyPrefix + identity
}

// GetOrLoad 读取快照，未命中时同一身份的并发请求只回源一次
func (c *UsageCache) GetOrLoad(ctx context.Context, identity string, load func() (*service.UsageSnapshot, error)) (*service.UsageSnapshot, error) {
	key := BuildUsageKey(identity)
	ctx, span := tracer.Start(ctx, "usage_cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if snap, ok := c.read(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return snap, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		snap, err := load()
		if err != nil {
			return nil, err
		}
		c.write(ctx, key, snap)
		return snap, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 共享结果时复制一份，避免调用方之间互相修改
	snap := *v.(*service.UsageSnapshot)
	return &snap, nil
}

// Invalidate 删除快照
func (c *UsageCache) Invalidate(ctx context.Context, identity string) error {
	return c.client.rdb.Del(ctx, BuildUsageKey(identity)).Err()
}

func (c *UsageCache) read(ctx context.Context, key string) (*service.UsageSnapshot, bool) {
	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx, "usage cache read failed", "key", key, "error", err.Error())
		}
		return nil, false
	}
	var snap service.UsageSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		logger.Warn(ctx, "usage cache entry corrupt", "key", key, "error", err.Error())
		return nil, false
	}
	return &snap, true
}

func (c *UsageCache) write(ctx context.Context, key string, snap *service.UsageSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.client.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "usage cache write failed", "key", key, "error", err.Error())
	}
}
