// Package redis 额度快照缓存、限流与 Stream 客户端
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"solidwriter-api/internal/config"
)

const connectTimeout = 5 * time.Second

var tracer = otel.Tracer("redis")

// Client 持有共享连接池，缓存、限流与 Stream 生产端共用
type Client struct {
	rdb *redis.Client
}

// NewClient 按配置建连，启动时 PING 不通直接返回错误
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	c := &Client{rdb: redis.NewClient(newOptions(cfg))}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr(), err)
	}
	return c, nil
}

func newOptions(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewClientFromRedis 包装已有的 go-redis 客户端
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Redis 返回底层客户端，Stream 生产与消费直接使用
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 供 /ready 使用
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	if err := c.ping(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

func (c *Client) ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
