//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"solidwriter-api/internal/application/generation"
	"solidwriter-api/internal/application/quota"
	"solidwriter-api/internal/config"
	"solidwriter-api/internal/domain/repository"
	"solidwriter-api/internal/domain/service"
	"solidwriter-api/internal/infrastructure/llm"
	"solidwriter-api/internal/infrastructure/messaging"
	"solidwriter-api/internal/infrastructure/persistence/postgres"
	"solidwriter-api/internal/infrastructure/persistence/redis"
	"solidwriter-api/internal/interfaces/http/handler"
	"solidwriter-api/internal/interfaces/http/middleware"
	"solidwriter-api/internal/interfaces/http/router"
	"solidwriter-api/internal/workflow/port"
	workflowprompt "solidwriter-api/internal/workflow/prompt"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		QuotaSet,
		GenerationSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		RepoSet,
		ProvideQuotaPolicy,
		quota.NewLedger,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeWorker 初始化用量流水消费者依赖
func InitializeWorker(ctx context.Context, cfg *config.Config) (*WorkerLayer, func(), error) {
	wire.Build(
		RepoSet,
		ProvideRedisClient,
		quota.NewUsageRecorder,
		wire.Struct(new(WorkerLayer), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewDocumentRepository,
	postgres.NewUsageEventRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.DocumentRepository), new(*postgres.DocumentRepository)),
	wire.Bind(new(repository.UsageEventRepository), new(*postgres.UsageEventRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewRateLimiter,
	ProvideUsageCache,
	wire.Bind(new(service.UsageSnapshotCache), new(*redis.UsageCache)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	messaging.NewUsagePublisher,
	wire.Bind(new(service.UsagePublisher), new(*messaging.UsagePublisher)),
)

// QuotaSet 额度提供者集合
var QuotaSet = wire.NewSet(
	ProvideQuotaPolicy,
	quota.NewLedger,
	quota.NewAccountant,
	quota.NewUsageService,
)

// GenerationSet 生成流水线提供者集合
var GenerationSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(port.ChatModelFactory), new(*llm.EinoFactory)),
	workflowprompt.NewRegistry,
	workflowprompt.NewBuilder,
	ProvideInvoker,
	generation.NewPipeline,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewGenerationHandler,
	handler.NewUserHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
