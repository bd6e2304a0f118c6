package shared

import "github.com/gin-gonic/gin"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageQuery 列表接口的分页查询参数
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// BindPageQuery 读取 page/page_size；非法值回落到默认值，不报错
func BindPageQuery(c *gin.Context) PageQuery {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		q = PageQuery{}
	}
	return q.Normalize()
}

// Normalize 页码从 1 开始，每页条数限制在 1..100
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = defaultPageSize
	case q.PageSize > maxPageSize:
		q.PageSize = maxPageSize
	}
	return q
}
