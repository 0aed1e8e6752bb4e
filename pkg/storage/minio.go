// Package storage 提供了原始 PDF 在对象存储（MinIO）中的归档能力。
package storage

import (
	"bytes"
	"context"
	"fmt"

	"pdf-embeddings-go/internal/config"
	"pdf-embeddings-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver 将摄取成功的原始 PDF 字节归档到对象存储。
// 归档是摄取成功后的旁路操作，失败只记日志，不影响摄取结果。
type Archiver struct {
	client *minio.Client
	bucket string
}

// NewArchiver 初始化 MinIO 客户端并确保存储桶存在。
func NewArchiver(cfg config.MinIOConfig) (*Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
		log.Infof("存储桶 '%s' 创建成功", cfg.BucketName)
	}

	log.Info("MinIO 客户端初始化成功")
	return &Archiver{client: client, bucket: cfg.BucketName}, nil
}

// ArchivePDF 以 "<userID>/<filename>" 为对象名写入原始 PDF 字节。
// 同名对象会被覆盖，重复摄取同一文件是幂等的。
func (a *Archiver) ArchivePDF(ctx context.Context, userID, filename string, pdfBytes []byte) error {
	objectName := fmt.Sprintf("%s/%s", userID, filename)
	_, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return fmt.Errorf("归档 PDF 到 MinIO 失败: %w", err)
	}
	log.Infof("[Archiver] 已归档原始 PDF, object: %s, size: %d", objectName, len(pdfBytes))
	return nil
}
