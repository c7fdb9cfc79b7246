// Package repository 提供了数据持久化层。
package repository

import (
	"time"

	"smart-edu-go/internal/model"

	"gorm.io/gorm"
)

// ChunkRepository 维护分块台账与上传记录的数据库操作。
type ChunkRepository interface {
	CreateUpload(upload *model.DocumentUpload) error
	FindUploadByMD5(fileMD5 string) (*model.DocumentUpload, error)
	UpdateUploadStatus(fileMD5 string, status int) error
	ReplaceChunks(fileMD5 string, chunks []model.ChunkRecord) error
	FindChunksByMD5(fileMD5 string) ([]model.ChunkRecord, error)
	ListUploads(limit, offset int) ([]model.DocumentUpload, int64, error)
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

func (r *chunkRepository) CreateUpload(upload *model.DocumentUpload) error {
	return r.db.Create(upload).Error
}

func (r *chunkRepository) FindUploadByMD5(fileMD5 string) (*model.DocumentUpload, error) {
	var upload model.DocumentUpload
	err := r.db.Where("file_md5 = ?", fileMD5).First(&upload).Error
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *chunkRepository) UpdateUploadStatus(fileMD5 string, status int) error {
	updates := map[string]interface{}{"status": status}
	if status == model.UploadStatusProcessed {
		now := time.Now()
		updates["processed_at"] = &now
	}
	return r.db.Model(&model.DocumentUpload{}).
		Where("file_md5 = ?", fileMD5).
		Updates(updates).Error
}

// ReplaceChunks 在一个事务内删除旧台账并批量写入新分块，保证重新处理时
// 不会残留上一版的分块记录。
func (r *chunkRepository) ReplaceChunks(fileMD5 string, chunks []model.ChunkRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_md5 = ?", fileMD5).Delete(&model.ChunkRecord{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.CreateInBatches(chunks, 100).Error
	})
}

func (r *chunkRepository) FindChunksByMD5(fileMD5 string) ([]model.ChunkRecord, error) {
	var chunks []model.ChunkRecord
	err := r.db.Where("file_md5 = ?", fileMD5).
		Order("chunk_index ASC").
		Find(&chunks).Error
	return chunks, err
}

func (r *chunkRepository) ListUploads(limit, offset int) ([]model.DocumentUpload, int64, error) {
	var uploads []model.DocumentUpload
	var total int64
	if err := r.db.Model(&model.DocumentUpload{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&uploads).Error
	return uploads, total, err
}
