package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务码：0 表示成功，其余与 HTTP 状态码一致
const (
	CodeOK                  = 0
	CodeBadRequest          = http.StatusBadRequest
	CodeUnauthorized        = http.StatusUnauthorized
	CodeForbidden           = http.StatusForbidden
	CodeNotFound            = http.StatusNotFound
	CodeConflict            = http.StatusConflict
	CodeUnprocessableEntity = http.StatusUnprocessableEntity
	CodeTooManyRequests     = http.StatusTooManyRequests
	CodeInternal            = http.StatusInternalServerError
)

const requestIDKey = "request_id"

// Response 统一响应信封
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// PageResponse 带分页信息的响应
type PageResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// HTTPStatus 业务码对应的 HTTP 状态码，未登记的业务码按 500 处理
func HTTPStatus(code int) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeBadRequest, CodeUnauthorized, CodeForbidden, CodeNotFound,
		CodeConflict, CodeUnprocessableEntity, CodeTooManyRequests, CodeInternal:
		return code
	default:
		return http.StatusInternalServerError
	}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{StatusCode: CodeOK, Msg: "success", Data: data})
}

// SuccessWithPage 列表接口使用，分页信息与 data 平级
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		Response:   Response{StatusCode: CodeOK, Msg: "success", Data: data},
		Pagination: pagination,
	})
}

// Error 失败响应；data 中带上 request_id 便于排查
func Error(c *gin.Context, code int, msg string) {
	ErrorWithData(c, code, msg, nil)
}

// ErrorWithData 失败响应并附带业务数据，例如占用冲突时返回桌台当前状态
func ErrorWithData(c *gin.Context, code int, msg string, data interface{}) {
	c.JSON(HTTPStatus(code), Response{
		StatusCode: code,
		Msg:        msg,
		Data:       withRequestID(c, data),
	})
}

func Unauthorized(c *gin.Context, msg string) { Error(c, CodeUnauthorized, msg) }

func Forbidden(c *gin.Context, msg string) { Error(c, CodeForbidden, msg) }

// BuildPagination 根据总数计算总页数
func BuildPagination(page, pageSize int, total int64) Pagination {
	p := Pagination{Page: max(page, 1), PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}

func withRequestID(c *gin.Context, data interface{}) interface{} {
	if c == nil {
		return data
	}
	requestID := c.GetString(requestIDKey)
	if requestID == "" {
		return data
	}
	switch v := data.(type) {
	case nil:
		return gin.H{requestIDKey: requestID}
	case gin.H:
		if _, exists := v[requestIDKey]; !exists {
			v[requestIDKey] = requestID
		}
		return v
	default:
		// 非 map 数据包一层，避免覆盖调用方结构
		return gin.H{requestIDKey: requestID, "data": data}
	}
}
