// Package store 实现了嵌入存储适配层：批量向量化写入与按用户过滤的相似度检索。
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"pdf-embeddings-go/internal/apperr"
	"pdf-embeddings-go/internal/model"
	"pdf-embeddings-go/pkg/embedding"
	"pdf-embeddings-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// VectorStore 定义了嵌入存储适配器的操作。
type VectorStore interface {
	// Add 为所有文档批量生成向量（单次模型调用）并写入索引，
	// 按输入顺序返回生成的 doc_id。单次调用要么全部成功，
	// 要么显式报告失败，不会静默留下部分记录。
	Add(ctx context.Context, docs []model.DocumentUnit) ([]string, error)
	// Search 将查询文本用同一模型向量化，在索引内做 kNN 检索，
	// user_id 过滤在服务端执行，结果按相似度降序排列。
	Search(ctx context.Context, queryText, userID string, k int) ([]model.QueryResult, error)
}

// QueryVectorCache 缓存查询文本的向量，命中时省去一次模型调用。
// 只缓存查询向量，嵌入记录始终由向量库独占。
type QueryVectorCache interface {
	GetQueryVector(ctx context.Context, modelName, text string) ([]float32, bool)
	SetQueryVector(ctx context.Context, modelName, text string, vector []float32)
}

type elasticStore struct {
	esClient        *elasticsearch.Client
	embeddingClient embedding.Client
	indexName       string
	cache           QueryVectorCache // 可为 nil
}

// NewElasticStore 创建一个基于 Elasticsearch 的向量存储适配器。
// cache 传 nil 时禁用查询向量缓存。
func NewElasticStore(esClient *elasticsearch.Client, embeddingClient embedding.Client, indexName string, cache QueryVectorCache) VectorStore {
	return &elasticStore{
		esClient:        esClient,
		embeddingClient: embeddingClient,
		indexName:       indexName,
		cache:           cache,
	}
}

// bulkResponse 是 ES _bulk 响应中本适配器关心的部分。
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

func (s *elasticStore) Add(ctx context.Context, docs []model.DocumentUnit) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}
	log.Infof("[VectorStore] 开始写入 %d 个文档单元", len(docs))

	// 1. 单次批量调用生成全部向量
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embeddingClient.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrEmbeddingService, err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("%w: got %d vectors for %d documents", apperr.ErrEmbeddingService, len(vectors), len(docs))
	}

	// 2. 组装 _bulk 请求体
	docIDs := make([]string, len(docs))
	var buf bytes.Buffer
	for i, d := range docs {
		docIDs[i] = uuid.NewString()
		record := model.EmbeddingRecord{
			DocID:        docIDs[i],
			Content:      d.Content,
			Source:       d.Metadata.Source,
			Page:         d.Metadata.Page,
			UserID:       d.Metadata.UserID,
			Vector:       vectors[i],
			ModelVersion: s.embeddingClient.Model(),
		}
		action := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, s.indexName, docIDs[i])
		buf.WriteString(action)
		buf.WriteByte('\n')
		recordBytes, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal record: %v", apperr.ErrStorage, err)
		}
		buf.Write(recordBytes)
		buf.WriteByte('\n')
	}

	// 3. 批量写入，refresh 保证写入后立即可检索
	res, err := s.esClient.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.esClient.Bulk.WithContext(ctx),
		s.esClient.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: bulk request: %v", apperr.ErrStorage, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: bulk returned %s", apperr.ErrStorage, res.Status())
	}

	var bulkResp bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return nil, fmt.Errorf("%w: decode bulk response: %v", apperr.ErrStorage, err)
	}

	// 4. 检查逐项结果：出现部分失败时回滚已写入的条目并显式报错
	if bulkResp.Errors {
		var succeeded []string
		failed := 0
		for _, item := range bulkResp.Items {
			if item.Index.Error == nil && item.Index.Status < 300 {
				succeeded = append(succeeded, item.Index.ID)
			} else {
				failed++
			}
		}
		log.Errorf("[VectorStore] 批量写入部分失败, failed: %d, succeeded: %d, 开始回滚", failed, len(succeeded))
		s.deleteByIDs(ctx, succeeded)
		return nil, fmt.Errorf("%w: %d of %d documents failed to index", apperr.ErrStorage, failed, len(docs))
	}

	log.Infof("[VectorStore] 成功写入 %d 条嵌入记录", len(docIDs))
	return docIDs, nil
}

// deleteByIDs 尽力删除指定的文档，用于部分失败后的回滚。
func (s *elasticStore) deleteByIDs(ctx context.Context, ids []string) {
	for _, id := range ids {
		res, err := s.esClient.Delete(
			s.indexName, id,
			s.esClient.Delete.WithContext(ctx),
		)
		if err != nil {
			log.Warnf("[VectorStore] 回滚删除文档 %s 失败: %v", id, err)
			continue
		}
		_ = res.Body.Close()
	}
}

func (s *elasticStore) Search(ctx context.Context, queryText, userID string, k int) ([]model.QueryResult, error) {
	log.Infof("[VectorStore] 开始检索, user_id: %s, k: %d", userID, k)

	// 1. 查询向量化（与写入使用同一模型，保证嵌入空间一致）
	queryVector, err := s.embedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrEmbeddingService, err)
	}

	// 2. 构建 kNN 查询，user_id 过滤放在 knn 子句内部由服务端执行，
	//    避免在编排层做后置过滤导致跨用户泄露命中数或分数。
	numCandidates := k * 30
	if numCandidates < 100 {
		numCandidates = 100
	}
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   queryVector,
			"k":              k,
			"num_candidates": numCandidates,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"user_id": userID},
			},
		},
		"size":    k,
		"_source": []string{"doc_id", "content", "source", "page", "user_id"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", apperr.ErrStorage, err)
	}

	// 3. 执行检索
	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(ctx),
		s.esClient.Search.WithIndex(s.indexName),
		s.esClient.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search request: %v", apperr.ErrStorage, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Errorf("[VectorStore] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(body))
		return nil, fmt.Errorf("%w: search returned %s", apperr.ErrStorage, res.Status())
	}

	// 4. 解析命中结果
	var esResponse struct {
		Hits struct {
			Hits []struct {
				Score  float64               `json:"_score"`
				Source model.EmbeddingRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", apperr.ErrStorage, err)
	}

	results := make([]model.QueryResult, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, model.QueryResult{
			Content: hit.Source.Content,
			Metadata: model.Metadata{
				Source: hit.Source.Source,
				Page:   hit.Source.Page,
				UserID: hit.Source.UserID,
				DocID:  hit.Source.DocID,
			},
			SimilarityScore: hit.Score,
		})
	}

	log.Infof("[VectorStore] 检索完成, 命中 %d 条", len(results))
	return results, nil
}

// embedQuery 优先读取查询向量缓存，未命中时调用模型并回填。
func (s *elasticStore) embedQuery(ctx context.Context, queryText string) ([]float32, error) {
	modelName := s.embeddingClient.Model()
	if s.cache != nil {
		if vec, ok := s.cache.GetQueryVector(ctx, modelName, queryText); ok {
			log.Debugf("[VectorStore] 查询向量缓存命中")
			return vec, nil
		}
	}
	vec, err := s.embeddingClient.CreateEmbedding(ctx, queryText)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetQueryVector(ctx, modelName, queryText, vec)
	}
	return vec, nil
}
