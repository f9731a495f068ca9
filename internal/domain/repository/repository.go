// Package repository 定义数据访问层接口
package repository

import "context"

// TxKey 事务在 context 中的键，仓储据此复用调用方开启的事务
type TxKey struct{}

// Transactor 扣减额度与写回文档必须在同一事务内完成
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// 分页默认值：流水列表与存量用户清理共用
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Pagination 分页参数，页码从 1 开始
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPagination 越界的页码与页大小会被收敛到合法范围
func NewPagination(page, pageSize int) Pagination {
	p := Pagination{Page: max(page, 1), PageSize: pageSize}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset 计算偏移量
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit 获取限制数量
func (p Pagination) Limit() int {
	return p.PageSize
}

// PagedResult 分页结果
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPagedResult 创建分页结果
func NewPagedResult[T any](items []T, total int64, pagination Pagination) *PagedResult[T] {
	result := &PagedResult[T]{
		Items:    items,
		Total:    total,
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
	}
	if pagination.PageSize > 0 {
		result.TotalPages = int((total + int64(pagination.PageSize) - 1) / int64(pagination.PageSize))
	}
	return result
}

// HasMore 是否还有下一页
func (r *PagedResult[T]) HasMore() bool {
	return r.Page < r.TotalPages
}
