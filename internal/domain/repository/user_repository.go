// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"solidwriter-api/internal/domain/entity"
)

// UserRepository 用户仓储接口
// 查询不到记录时返回 nil, nil
type UserRepository interface {
	// Create 创建用户
	Create(ctx context.Context, user *entity.User) error

	// GetByID 根据 ID 获取用户
	GetByID(ctx context.Context, id string) (*entity.User, error)

	// GetByEmail 根据身份键获取用户
	GetByEmail(ctx context.Context, email string) (*entity.User, error)

	// AddConsumedUnits 原子累加已用额度，返回更新后的用户
	AddConsumedUnits(ctx context.Context, id string, units int64) (*entity.User, error)

	// UpgradeLegacyLimit 仅当 unit_limit 低于 floor 时改写上限与档位，返回是否发生改写
	UpgradeLegacyLimit(ctx context.Context, id string, floor, newLimit int64, tier entity.PlanTier) (bool, error)

	// ListBelowLimit 列出上限低于给定值的用户
	ListBelowLimit(ctx context.Context, limit int64, pagination Pagination) (*PagedResult[*entity.User], error)
}
