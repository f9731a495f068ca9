package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"solidwriter-api/internal/domain/entity"
)

// ErrDocumentMissing 更新时文档不存在
var ErrDocumentMissing = errors.New("document does not exist")

// DocumentRepository 文档仓储实现
type DocumentRepository struct {
	client *Client
}

// NewDocumentRepository 创建文档仓储
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

// Create 创建文档
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Create")
	defer span.End()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(doc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取文档
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var doc entity.Document
	if err := db.First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// UpdateContent 覆盖文档内容
func (r *DocumentRepository) UpdateContent(ctx context.Context, id, content string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.UpdateContent")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    content,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to update document content: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update document %s: %w", id, ErrDocumentMissing)
	}
	return nil
}
