// Package quota 提供用户字数额度相关能力
package quota

import (
	"context"
	"fmt"

	"solidwriter-api/internal/config"
	"solidwriter-api/internal/domain/entity"
	"solidwriter-api/internal/domain/repository"
	"solidwriter-api/pkg/metrics"
)

// Policy 额度策略，来自配置
type Policy struct {
	DefaultUnitLimit int64
	LegacyFloor      int64
	FlatCharge       int64
}

// NewPolicy 从配置构造策略
func NewPolicy(cfg *config.QuotaConfig) Policy {
	return Policy{
		DefaultUnitLimit: cfg.DefaultUnitLimit,
		LegacyFloor:      cfg.LegacyFloor,
		FlatCharge:       cfg.FlatCharge,
	}
}

// ExceededError 表示用户额度已耗尽
type ExceededError struct {
	UserID string
	Used   int64
	Limit  int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: user=%s used=%d limit=%d", e.UserID, e.Used, e.Limit)
}

// Ledger 额度账本
//
// CheckAvailable 只是时间点检查而非预留：同一用户的并发请求可能同时通过，
// 超出部分在下一次请求时拦截。
type Ledger struct {
	users  repository.UserRepository
	policy Policy
}

// NewLedger 创建额度账本
func NewLedger(users repository.UserRepository, policy Policy) *Ledger {
	return &Ledger{users: users, policy: policy}
}

// Policy 返回当前策略
func (l *Ledger) Policy() Policy {
	return l.policy
}

// CheckAvailable consumed >= limit 时返回 *ExceededError
func (l *Ledger) CheckAvailable(user *entity.User) error {
	if user.ConsumedUnits >= user.UnitLimit {
		return &ExceededError{UserID: user.ID, Used: user.ConsumedUnits, Limit: user.UnitLimit}
	}
	return nil
}

// Commit 原子累加 units，不因超额拒绝
func (l *Ledger) Commit(ctx context.Context, user *entity.User, units int64) (*entity.User, error) {
	if units < 0 {
		return nil, fmt.Errorf("negative units: %d", units)
	}
	if units == 0 {
		return user, nil
	}

	updated, err := l.users.AddConsumedUnits(ctx, user.ID, units)
	if err != nil {
		return nil, fmt.Errorf("failed to commit usage: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("failed to commit usage: user %s vanished", user.ID)
	}
	return updated, nil
}

// MigrateLegacy 将按调用次数计的旧上限升级为字数上限，重复执行无副作用
// 返回的 bool 表示本次是否发生了迁移
func (l *Ledger) MigrateLegacy(ctx context.Context, user *entity.User) (*entity.User, bool, error) {
	if user.UnitLimit >= l.policy.LegacyFloor {
		return user, false, nil
	}

	changed, err := l.users.UpgradeLegacyLimit(ctx, user.ID, l.policy.LegacyFloor, l.policy.DefaultUnitLimit, entity.PlanTrial)
	if err != nil {
		return nil, false, fmt.Errorf("failed to migrate legacy limit: %w", err)
	}

	migrated := *user
	migrated.UnitLimit = l.policy.DefaultUnitLimit
	migrated.PlanTier = entity.PlanTrial
	if changed {
		metrics.LegacyMigrations.Inc()
	}
	return &migrated, changed, nil
}
