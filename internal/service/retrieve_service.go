package service

import (
	"context"
	"fmt"
	"strings"

	"pdf-embeddings-go/internal/apperr"
	"pdf-embeddings-go/internal/config"
	"pdf-embeddings-go/internal/model"
	"pdf-embeddings-go/internal/store"
	"pdf-embeddings-go/pkg/log"
)

// RetrieveService 接口定义了相似度检索操作。
type RetrieveService interface {
	// Retrieve 校验参数后委托给向量存储检索，k 传 0 时使用默认值。
	Retrieve(ctx context.Context, query, userID string, k int) (*model.RetrieveResult, error)
}

type retrieveService struct {
	vectorStore store.VectorStore
	defaultK    int
	maxK        int
}

// NewRetrieveService 创建一个新的 RetrieveService 实例。
func NewRetrieveService(vectorStore store.VectorStore, cfg config.RetrievalConfig) RetrieveService {
	return &retrieveService{
		vectorStore: vectorStore,
		defaultK:    cfg.DefaultK,
		maxK:        cfg.MaxK,
	}
}

// Retrieve 是一个纯透传的整形层：不重排、不去重、不做阈值过滤，
// 结果顺序与分数完全来自向量存储。空结果集是合法的非错误输出。
func (s *retrieveService) Retrieve(ctx context.Context, query, userID string, k int) (*model.RetrieveResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", apperr.ErrInvalidArgument)
	}
	if k == 0 {
		k = s.defaultK
	}
	if k < 1 || k > s.maxK {
		return nil, fmt.Errorf("%w: k must be between 1 and %d", apperr.ErrInvalidArgument, s.maxK)
	}

	log.Infof("[RetrieveService] 开始检索, user_id: %s, k: %d", userID, k)
	results, err := s.vectorStore.Search(ctx, query, userID, k)
	if err != nil {
		return nil, err
	}

	return &model.RetrieveResult{
		Results:      results,
		ResultsCount: len(results),
	}, nil
}
