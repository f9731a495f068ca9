// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlanTier 订阅档位
type PlanTier string

const (
	PlanTrial     PlanTier = "TRIAL"
	PlanStarter   PlanTier = "STARTER"
	PlanStandard  PlanTier = "STANDARD"
	PlanUnlimited PlanTier = "UNLIMITED"
)

// Valid 判断档位是否合法
func (p PlanTier) Valid() bool {
	switch p {
	case PlanTrial, PlanStarter, PlanStandard, PlanUnlimited:
		return true
	}
	return false
}

// User 用户实体
// ConsumedUnits 与 UnitLimit 均以字数计
type User struct {
	ID            string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Email         string    `json:"email" gorm:"type:varchar(320);uniqueIndex;not null"`
	Name          string    `json:"name" gorm:"type:varchar(128)"`
	ConsumedUnits int64     `json:"consumed_units" gorm:"not null;default:0"`
	UnitLimit     int64     `json:"unit_limit" gorm:"not null"`
	PlanTier      PlanTier  `json:"plan_tier" gorm:"type:varchar(16);not null;default:'TRIAL'"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// NewUser 创建试用用户
func NewUser(email, name string, unitLimit int64) *User {
	now := time.Now()
	return &User{
		ID:        uuid.NewString(),
		Email:     NormalizeEmail(email),
		Name:      name,
		UnitLimit: unitLimit,
		PlanTier:  PlanTrial,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Remaining 剩余额度，超额时为 0
func (u *User) Remaining() int64 {
	if u.ConsumedUnits >= u.UnitLimit {
		return 0
	}
	return u.UnitLimit - u.ConsumedUnits
}

// NormalizeEmail 身份键统一小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
