package handler

import (
	"net/http"

	"pdf-embeddings-go/internal/service"
	"pdf-embeddings-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// PDFHandler 负责处理 PDF 摄取相关的 API 请求。
type PDFHandler struct {
	ingestService service.IngestService
}

// NewPDFHandler 创建一个新的 PDFHandler 实例。
func NewPDFHandler(ingestService service.IngestService) *PDFHandler {
	return &PDFHandler{ingestService: ingestService}
}

// UploadPDFRequest 定义了 /upload-pdf 的请求体结构。
type UploadPDFRequest struct {
	PDFBase64 string `json:"pdf_base64" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	Filename  string `json:"filename"`
}

// UploadPDF 处理 base64 编码 PDF 的摄取请求。
func (h *PDFHandler) UploadPDF(c *gin.Context) {
	var req UploadPDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload: " + err.Error()})
		return
	}
	log.Infof("[PDFHandler] 收到摄取请求, file: %s, user_id: %s", req.Filename, req.UserID)

	result, err := h.ingestService.Ingest(c.Request.Context(), req.PDFBase64, req.UserID, req.Filename)
	if err != nil {
		log.Errorf("[PDFHandler] 摄取失败, file: %s, error: %v", req.Filename, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "PDF processed and embeddings created successfully",
		"filename":           req.Filename,
		"user_id":            req.UserID,
		"pages_processed":    result.PagesProcessed,
		"embeddings_created": result.EmbeddingsCreated,
		"document_ids":       result.DocIDs,
	})
}
