package repository

import (
	"context"

	"solidwriter-api/internal/domain/entity"
)

// DocumentRepository 文档仓储接口
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error

	// GetByID 查询不到时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Document, error)

	// UpdateContent 覆盖文档内容，后写者胜
	UpdateContent(ctx context.Context, id, content string) error
}
