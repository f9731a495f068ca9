package repository

import (
	"context"

	"solidwriter-api/internal/domain/entity"
)

// UsageEventRepository 生成流水仓储
type UsageEventRepository interface {
	// Create 幂等写入，ID 已存在时忽略
	Create(ctx context.Context, event *entity.GenerationUsageEvent) error
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.GenerationUsageEvent], error)
}
