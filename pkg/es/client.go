// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"pdf-embeddings-go/internal/config"
	"pdf-embeddings-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// NewClient 根据配置创建一个 Elasticsearch 客户端。
// 客户端可以安全地被多个并发请求共享。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return elasticsearch.NewClient(cfg)
}

// EnsureIndex 检查嵌入索引是否存在，不存在则按映射创建。
// 所有用户共用一个索引，读路径通过 user_id 过滤实现隔离。
func EnsureIndex(client *elasticsearch.Client, esCfg config.ElasticsearchConfig, dims int) error {
	indexName := esCfg.IndexName
	res, err := client.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	defer res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// dense_vector 使用 cosine 相似度，ES 返回的 _score 为 (1+cosine)/2。
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"doc_id": { "type": "keyword" },
				"content": { "type": "text" },
				"source": { "type": "keyword" },
				"page": { "type": "integer" },
				"user_id": { "type": "keyword" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" }
			}
		}
	}`, dims)

	createRes, err := client.Indices.Create(
		indexName,
		client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, createRes.String())
		return fmt.Errorf("创建索引时 Elasticsearch 返回错误: %s", createRes.Status())
	}

	log.Infof("索引 '%s' 创建成功 (dims=%d)", indexName, dims)
	return nil
}
