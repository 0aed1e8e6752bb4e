package handler

import (
	"net/http"

	"pdf-embeddings-go/internal/service"
	"pdf-embeddings-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QueryHandler 负责处理相似度检索的 API 请求。
type QueryHandler struct {
	retrieveService service.RetrieveService
}

// NewQueryHandler 创建一个新的 QueryHandler 实例。
func NewQueryHandler(retrieveService service.RetrieveService) *QueryHandler {
	return &QueryHandler{retrieveService: retrieveService}
}

// QueryRequest 定义了 /query 的请求体结构。
// K 省略时由服务层取默认值。
type QueryRequest struct {
	Query  string `json:"query" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
	K      int    `json:"k"`
}

// Query 处理按用户过滤的相似度检索请求。
// 空结果集是合法输出，仍返回 200 和 results_count: 0。
func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}
	log.Infof("[QueryHandler] 收到检索请求, user_id: %s, k: %d", req.UserID, req.K)

	result, err := h.retrieveService.Retrieve(c.Request.Context(), req.Query, req.UserID, req.K)
	if err != nil {
		log.Errorf("[QueryHandler] 检索失败, user_id: %s, error: %v", req.UserID, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":         req.Query,
		"user_id":       req.UserID,
		"results_count": result.ResultsCount,
		"results":       result.Results,
	})
}
