package wire

import (
	"time"

	"solidwriter-api/internal/application/generation"
	"solidwriter-api/internal/application/quota"
	"solidwriter-api/internal/config"
	"solidwriter-api/internal/infrastructure/messaging"
	"solidwriter-api/internal/infrastructure/persistence/postgres"
	"solidwriter-api/internal/infrastructure/persistence/redis"
	"solidwriter-api/internal/interfaces/http/handler"
	"solidwriter-api/internal/workflow/port"
)

// PostgresOnlyDataLayer bootstrap 使用的数据层
type PostgresOnlyDataLayer struct {
	PgClient *postgres.Client
	UserRepo *postgres.UserRepository
	Ledger   *quota.Ledger
}

// WorkerLayer 用量流水消费者依赖
type WorkerLayer struct {
	PgClient    *postgres.Client
	RedisClient *redis.Client
	Recorder    *quota.UsageRecorder
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.UsageStream.MaxLen))
}

// ProvideUsageCache 提供额度读数缓存
func ProvideUsageCache(client *redis.Client, cfg *config.Config) *redis.UsageCache {
	ttl := cfg.Quota.UsageCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return redis.NewUsageCache(client, ttl)
}

// ProvideQuotaPolicy 提供额度策略
func ProvideQuotaPolicy(cfg *config.Config) quota.Policy {
	return quota.NewPolicy(&cfg.Quota)
}

// ProvideInvoker 提供默认提供商的模型调用器
func ProvideInvoker(cfg *config.Config, factory port.ChatModelFactory) *generation.Invoker {
	return generation.NewInvoker(factory, cfg.LLM.DefaultProvider)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(pg *postgres.Client, redisClient *redis.Client, cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, redisClient, cfg.App.Version)
}
