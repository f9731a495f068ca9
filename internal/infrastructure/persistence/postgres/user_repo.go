// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/repository"
)

// UserRepository 用户仓储实现
type UserRepository struct {
	client *Client
}

// NewUserRepository 创建用户仓储
func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.Create")
	defer span.End()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = entity.NormalizeEmail(user.Email)

	db := getDB(ctx, r.client.db)
	if err := db.Create(user).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取用户
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.GetByID")
	defer span.End()

	user, err := r.findOne(ctx, "id = ?", id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail 按身份键查找，入参先规范化
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.GetByEmail")
	defer span.End()

	user, err := r.findOne(ctx, "email = ?", entity.NormalizeEmail(email))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// findOne 未命中返回 nil, nil
func (r *UserRepository) findOne(ctx context.Context, cond string, arg any) (*entity.User, error) {
	var user entity.User
	err := getDB(ctx, r.client.db).Where(cond, arg).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AddConsumedUnits 原子累加已用额度
func (r *UserRepository) AddConsumedUnits(ctx context.Context, id string, units int64) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.AddConsumedUnits")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"consumed_units": gorm.Expr("consumed_units + ?", units),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return nil, fmt.Errorf("failed to add consumed units: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}

	user, err := r.findOne(ctx, "id = ?", id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	return user, nil
}

// UpgradeLegacyLimit 条件更新，已迁移的记录不会被再次改写
func (r *UserRepository) UpgradeLegacyLimit(ctx context.Context, id string, floor, newLimit int64, tier entity.PlanTier) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.UpgradeLegacyLimit")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.User{}).
		Where("id = ? AND unit_limit < ?", id, floor).
		Updates(map[string]any{
			"unit_limit": newLimit,
			"plan_tier":  tier,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to upgrade legacy limit: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListBelowLimit 列出上限低于 limit 的用户
func (r *UserRepository) ListBelowLimit(ctx context.Context, limit int64, pagination repository.Pagination) (*repository.PagedResult[*entity.User], error) {
	ctx, span := tracer.Start(ctx, "postgres.UserRepository.ListBelowLimit")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.User{}).Where("unit_limit < ?", limit)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var users []*entity.User
	if err := query.Order("created_at ASC").Order("id ASC").
		Offset(pagination.Offset()).Limit(pagination.Limit()).
		Find(&users).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return repository.NewPagedResult(users, total, pagination), nil
}
