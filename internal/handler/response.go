// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"pdf-embeddings-go/internal/apperr"

	"github.com/gin-gonic/gin"
)

// respondError 按错误类别映射状态码并输出错误响应。
// 客户端错误返回具体原因；服务端错误只返回类别描述，
// 避免把凭证或内部连接信息泄露给调用方。
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	detail := err.Error()
	if status >= http.StatusInternalServerError {
		switch {
		case errors.Is(err, apperr.ErrEmbeddingService):
			detail = apperr.ErrEmbeddingService.Error()
		case errors.Is(err, apperr.ErrStorage):
			detail = apperr.ErrStorage.Error()
		default:
			detail = "internal server error"
		}
	}
	c.JSON(status, gin.H{"error": detail})
}
