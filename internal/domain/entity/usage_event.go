package entity

import "time"

// GenerationUsageEvent 生成流水，由 usage-worker 从消息落库
type GenerationUsageEvent struct {
	ID         string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID     string    `json:"user_id" gorm:"type:varchar(36);not null;index:idx_usage_user_created,priority:1"`
	DocumentID string    `json:"document_id,omitempty" gorm:"type:varchar(36)"`
	Mode       Mode      `json:"mode" gorm:"type:varchar(16);not null"`
	Provider   string    `json:"provider" gorm:"type:varchar(32);not null"`
	Model      string    `json:"model" gorm:"type:varchar(128);not null"`
	Units      int64     `json:"units" gorm:"not null;default:0"`
	Streamed   bool      `json:"streamed" gorm:"not null;default:false"`
	DurationMs int64     `json:"duration_ms" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_usage_user_created,priority:2"`
}

// TableName 表名
func (GenerationUsageEvent) TableName() string {
	return "generation_usage_events"
}
