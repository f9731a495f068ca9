package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/repository"
)

// UsageEventRepository 生成流水仓储实现
type UsageEventRepository struct {
	client *Client
}

// NewUsageEventRepository 创建流水仓储
func NewUsageEventRepository(client *Client) *UsageEventRepository {
	return &UsageEventRepository{client: client}
}

// Create 写入流水，主键冲突时忽略
func (r *UsageEventRepository) Create(ctx context.Context, event *entity.GenerationUsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.UsageEventRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(event).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create usage event: %w", err)
	}
	return nil
}

// ListByUser 按时间倒序分页
func (r *UsageEventRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.GenerationUsageEvent], error) {
	ctx, span := tracer.Start(ctx, "postgres.UsageEventRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.GenerationUsageEvent{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count usage events: %w", err)
	}

	var events []*entity.GenerationUsageEvent
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).Limit(pagination.Limit()).
		Find(&events).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list usage events: %w", err)
	}

	return repository.NewPagedResult(events, total, pagination), nil
}
