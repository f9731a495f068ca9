package service

import (
	"context"
	"time"

	"solidwriter-api/internal/domain/entity"
)

// GenerationUsage 一次成功生成的流水，作为跨层契约（port）
type GenerationUsage struct {
	EventID    string      `json:"event_id"`
	UserID     string      `json:"user_id"`
	DocumentID string      `json:"document_id,omitempty"`
	Mode       entity.Mode `json:"mode"`
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	Units      int64       `json:"units"`
	Streamed   bool        `json:"streamed"`
	DurationMs int64       `json:"duration_ms"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// UsagePublisher 发布生成流水
// 约定：实现应为 best-effort，发布失败不影响主流程
type UsagePublisher interface {
	Publish(ctx context.Context, usage GenerationUsage) error
}

// UsageSnapshot 额度快照，供仪表盘展示
type UsageSnapshot struct {
	UserID        string          `json:"user_id"`
	ConsumedUnits int64           `json:"consumed_units"`
	UnitLimit     int64           `json:"unit_limit"`
	Remaining     int64           `json:"remaining"`
	Plan          entity.PlanTier `json:"plan"`
}

// SnapshotFromUser 由用户构造快照
func SnapshotFromUser(u *entity.User) *UsageSnapshot {
	return &UsageSnapshot{
		UserID:        u.ID,
		ConsumedUnits: u.ConsumedUnits,
		UnitLimit:     u.UnitLimit,
		Remaining:     u.Remaining(),
		Plan:          u.PlanTier,
	}
}

// UsageSnapshotCache 额度快照缓存，key 为身份键
type UsageSnapshotCache interface {
	GetOrLoad(ctx context.Context, identity string, load func() (*UsageSnapshot, error)) (*UsageSnapshot, error)
	Invalidate(ctx context.Context, identity string) error
}
