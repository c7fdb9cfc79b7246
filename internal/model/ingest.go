package model

import "time"

// DocumentUpload 定义了 document_upload 表的 ORM 模型。
// 它记录了每个已摄取文件的元数据和处理状态。
type DocumentUpload struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	FileMD5     string     `gorm:"type:varchar(32);not null;uniqueIndex" json:"fileMd5"`
	FileName    string     `gorm:"type:varchar(255);not null" json:"fileName"`
	FileType    string     `gorm:"type:varchar(100);not null" json:"fileType"`
	FileSize    int64      `gorm:"not null" json:"fileSize"`
	Status      int        `gorm:"type:tinyint;not null;default:0" json:"status"` // 0: pending, 1: processed, 2: failed
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	ProcessedAt *time.Time `gorm:"default:null" json:"processedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentUpload) TableName() string {
	return "document_upload"
}

// 处理状态常量。
const (
	UploadStatusPending   = 0
	UploadStatusProcessed = 1
	UploadStatusFailed    = 2
)

// ChunkRecord 定义了 chunk_record 表的 ORM 模型。
// 分块文本在向量化前先落库，作为可重建向量索引的台账。
type ChunkRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	FileMD5     string `gorm:"type:varchar(32);not null;index" json:"fileMd5"`
	ChunkID     string `gorm:"type:varchar(300);not null" json:"chunkId"` // {fileName}_chunk_{index}
	ChunkIndex  int    `gorm:"not null" json:"chunkIndex"`
	TextContent string `gorm:"type:text;not null" json:"textContent"`
	StartChar   int    `gorm:"not null" json:"startChar"`
	EndChar     int    `gorm:"not null" json:"endChar"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChunkRecord) TableName() string {
	return "chunk_record"
}
