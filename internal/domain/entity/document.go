package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document 用户文档，生成流水线只写 Content
type Document struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	OwnerID   string    `json:"owner_id" gorm:"type:varchar(36);index;not null"`
	Title     string    `json:"title" gorm:"type:varchar(512)"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 表名
func (Document) TableName() string {
	return "documents"
}

// NewDocument 创建空文档
func NewDocument(ownerID, title string) *Document {
	now := time.Now()
	return &Document{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OwnedBy 判断文档归属
func (d *Document) OwnedBy(userID string) bool {
	return d != nil && d.OwnerID == userID
}
