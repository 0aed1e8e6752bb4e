// Package service 提供了摄取与检索的编排逻辑。
package service

import (
	"context"
	"fmt"
	"strings"

	"pdf-embeddings-go/internal/apperr"
	"pdf-embeddings-go/internal/loader"
	"pdf-embeddings-go/internal/model"
	"pdf-embeddings-go/internal/repository"
	"pdf-embeddings-go/internal/store"
	"pdf-embeddings-go/pkg/log"
	"pdf-embeddings-go/pkg/storage"
)

// IngestService 接口定义了 PDF 摄取操作。
type IngestService interface {
	Ingest(ctx context.Context, pdfBase64, userID, filename string) (*model.IngestResult, error)
}

type ingestService struct {
	pdfLoader     loader.Loader
	vectorStore   store.VectorStore
	ingestionRepo repository.IngestionRepository // 可为 nil，关闭审计落库
	archiver      *storage.Archiver              // 可为 nil，关闭原始文件归档
}

// NewIngestService 创建一个新的 IngestService 实例。
func NewIngestService(pdfLoader loader.Loader, vectorStore store.VectorStore, ingestionRepo repository.IngestionRepository, archiver *storage.Archiver) IngestService {
	return &ingestService{
		pdfLoader:     pdfLoader,
		vectorStore:   vectorStore,
		ingestionRepo: ingestionRepo,
		archiver:      archiver,
	}
}

// Ingest 驱动 解码 → 逐页解析 → 批量向量化写入 的完整摄取流程。
//
// 空白页策略：只有含非空白文本的页才会被嵌入存储，
// PagesProcessed 始终等于 PDF 的真实页数，EmbeddingsCreated 等于实际写入条数，
// 两者在存在空白页时会不同，调用方不应假设相等。
func (s *ingestService) Ingest(ctx context.Context, pdfBase64, userID, filename string) (*model.IngestResult, error) {
	// 1. 参数校验，尽早失败，非法请求不触达外部服务
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", apperr.ErrInvalidArgument)
	}
	if pdfBase64 == "" {
		return nil, fmt.Errorf("%w: pdf_base64 is required", apperr.ErrInvalidArgument)
	}
	log.Infof("[IngestService] 开始摄取, file: %s, user_id: %s", filename, userID)

	// 2. 解码并逐页解析，解码/解析错误原样向上传递（客户端错误）
	units, err := s.pdfLoader.Load(pdfBase64, filename, userID)
	if err != nil {
		return nil, err
	}
	pagesProcessed := len(units)

	// 3. 过滤空白页，避免对无文本内容做无意义的模型调用与存储
	embeddable := make([]model.DocumentUnit, 0, len(units))
	for _, u := range units {
		if strings.TrimSpace(u.Content) != "" {
			embeddable = append(embeddable, u)
		}
	}
	if skipped := pagesProcessed - len(embeddable); skipped > 0 {
		log.Infof("[IngestService] 跳过 %d 个空白页, file: %s", skipped, filename)
	}

	// 4. 批量向量化并写入（全有或全无）
	docIDs := []string{}
	if len(embeddable) > 0 {
		docIDs, err = s.vectorStore.Add(ctx, embeddable)
		if err != nil {
			return nil, err
		}
	}

	result := &model.IngestResult{
		PagesProcessed:    pagesProcessed,
		EmbeddingsCreated: len(docIDs),
		DocIDs:            docIDs,
	}

	// 5. 旁路操作：原始文件归档与审计落库，失败不影响摄取结果
	s.archiveOriginal(ctx, pdfBase64, userID, filename)
	s.recordIngestion(userID, filename, result)

	log.Infof("[IngestService] 摄取完成, file: %s, pages: %d, embeddings: %d",
		filename, result.PagesProcessed, result.EmbeddingsCreated)
	return result, nil
}

func (s *ingestService) archiveOriginal(ctx context.Context, pdfBase64, userID, filename string) {
	if s.archiver == nil {
		return
	}
	raw, err := s.pdfLoader.Decode(pdfBase64)
	if err != nil {
		// 走到这里说明主流程已成功，解码不可能失败
		log.Warnf("[IngestService] 归档前解码失败: %v", err)
		return
	}
	if err := s.archiver.ArchivePDF(ctx, userID, filename, raw); err != nil {
		log.Warnf("[IngestService] 原始 PDF 归档失败, file: %s: %v", filename, err)
	}
}

func (s *ingestService) recordIngestion(userID, filename string, result *model.IngestResult) {
	if s.ingestionRepo == nil {
		return
	}
	record := &model.IngestionRecord{
		UserID:            userID,
		Filename:          filename,
		PagesProcessed:    result.PagesProcessed,
		EmbeddingsCreated: result.EmbeddingsCreated,
	}
	if err := s.ingestionRepo.Create(record); err != nil {
		log.Warnf("[IngestService] 写入摄取审计记录失败, file: %s: %v", filename, err)
	}
}
