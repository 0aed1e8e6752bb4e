package model

import "time"

// IngestionRecord 对应于数据库中的 ingestion_records 表，
// 记录每次成功摄取的审计信息，仅追加，不参与检索路径。
type IngestionRecord struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"`
	UserID            string    `gorm:"type:varchar(64);not null;index"`
	Filename          string    `gorm:"type:varchar(255);not null"`
	PagesProcessed    int       `gorm:"not null"`
	EmbeddingsCreated int       `gorm:"not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (IngestionRecord) TableName() string {
	return "ingestion_records"
}
