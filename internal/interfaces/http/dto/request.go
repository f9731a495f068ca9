// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/gin-gonic/gin"

	"solidwriter-api/internal/domain/repository"
)

// maxEventsPageSize 流水列表单页上限，小于仓储层的批量上限
const maxEventsPageSize = 100

// PageRequest 分页请求参数
type PageRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// ToPagination 转为仓储层分页参数
func (r PageRequest) ToPagination() repository.Pagination {
	return repository.NewPagination(r.Page, min(r.PageSize, maxEventsPageSize))
}

// BindPage 绑定 page/page_size，非法取值按缺省处理而不是报错
func BindPage(c *gin.Context) PageRequest {
	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return PageRequest{Page: 1, PageSize: repository.DefaultPageSize}
	}
	p := req.ToPagination()
	return PageRequest{Page: p.Page, PageSize: p.PageSize}
}
