// Package model 定义了各层之间流转的数据结构。
package model

// Metadata 是文档单元的固定元数据字段集合。
// 相比开放的 map，固定结构可以在编译期捕获字段缺失问题。
type Metadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"` // 页索引，从 0 开始
	UserID string `json:"user_id"`
	DocID  string `json:"doc_id,omitempty"` // 持久化时分配
}

// DocumentUnit 表示一份上传 PDF 中的一页文本，是嵌入前的最小单元。
// 在摄取流程中临时创建，创建后不再修改。
type DocumentUnit struct {
	Content  string
	Metadata Metadata
}

// EmbeddingRecord 表示存储在 Elasticsearch 索引中的嵌入记录。
// 向量库独占记录的所有权，编排层不做任何缓存。
type EmbeddingRecord struct {
	DocID        string    `json:"doc_id"`
	Content      string    `json:"content"`
	Source       string    `json:"source"`
	Page         int       `json:"page"`
	UserID       string    `json:"user_id"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// QueryResult 表示一条相似度检索结果，仅存在于单次请求内。
// SimilarityScore 采用 ES cosine 约定 (1+cos)/2，取值 (0,1]，越大越相关。
type QueryResult struct {
	Content         string   `json:"content"`
	Metadata        Metadata `json:"metadata"`
	SimilarityScore float64  `json:"similarity_score"`
}

// IngestResult 是一次 PDF 摄取的统计结果。
// 采用跳过空白页策略时 PagesProcessed 与 EmbeddingsCreated 可能不同。
type IngestResult struct {
	PagesProcessed    int
	EmbeddingsCreated int
	DocIDs            []string
}

// RetrieveResult 是一次检索调用的结果集合。
type RetrieveResult struct {
	Results      []QueryResult
	ResultsCount int
}
