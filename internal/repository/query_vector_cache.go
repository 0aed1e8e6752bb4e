package repository

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"pdf-embeddings-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// redisQueryVectorCache 用 Redis 缓存查询文本的向量。
// 键按模型名区分，换模型后旧缓存自然失效。
type redisQueryVectorCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewQueryVectorCache 创建一个基于 Redis 的查询向量缓存。
func NewQueryVectorCache(redisClient *redis.Client, ttl time.Duration) *redisQueryVectorCache {
	return &redisQueryVectorCache{redisClient: redisClient, ttl: ttl}
}

func (c *redisQueryVectorCache) key(modelName, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("qvec:%s:%x", modelName, sum)
}

// GetQueryVector 读取缓存的查询向量，未命中或 Redis 异常时返回 false。
func (c *redisQueryVectorCache) GetQueryVector(ctx context.Context, modelName, text string) ([]float32, bool) {
	data, err := c.redisClient.Get(ctx, c.key(modelName, text)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		// 缓存故障只降级为未命中，不影响检索
		log.Warnf("[QueryVectorCache] 读取缓存失败: %v", err)
		return nil, false
	}
	var vector []float32
	if err := json.Unmarshal([]byte(data), &vector); err != nil {
		log.Warnf("[QueryVectorCache] 缓存内容损坏: %v", err)
		return nil, false
	}
	return vector, true
}

// SetQueryVector 回填查询向量，带 TTL。
func (c *redisQueryVectorCache) SetQueryVector(ctx context.Context, modelName, text string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, c.key(modelName, text), data, c.ttl).Err(); err != nil {
		log.Warnf("[QueryVectorCache] 写入缓存失败: %v", err)
	}
}
