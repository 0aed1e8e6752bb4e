package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler 提供健康检查探针。
type HealthHandler struct{}

// NewHealthHandler 创建一个新的 HealthHandler 实例。
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health 始终返回健康状态，不依赖向量库或 Embedding 服务的可达性。
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
