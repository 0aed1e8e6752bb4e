// Package repository 提供了数据访问层的实现。
package repository

import (
	"pdf-embeddings-go/internal/model"

	"gorm.io/gorm"
)

// IngestionRepository 定义了摄取审计记录的操作接口。
type IngestionRepository interface {
	Create(record *model.IngestionRecord) error
	FindByUserID(userID string) ([]*model.IngestionRecord, error)
}

type ingestionRepository struct {
	db *gorm.DB
}

// NewIngestionRepository 创建一个新的 IngestionRepository 实例。
func NewIngestionRepository(db *gorm.DB) IngestionRepository {
	return &ingestionRepository{db: db}
}

// Create 追加一条摄取审计记录。
func (r *ingestionRepository) Create(record *model.IngestionRecord) error {
	return r.db.Create(record).Error
}

// FindByUserID 按用户查询摄取审计记录。
func (r *ingestionRepository) FindByUserID(userID string) ([]*model.IngestionRecord, error) {
	var records []*model.IngestionRecord
	err := r.db.Where("user_id = ?", userID).Order("id desc").Find(&records).Error
	return records, err
}
