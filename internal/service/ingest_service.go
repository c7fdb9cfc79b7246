package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"smart-edu-go/internal/model"
	"smart-edu-go/internal/repository"
	"smart-edu-go/pkg/log"
	"smart-edu-go/pkg/tasks"

	"gorm.io/gorm"
)

// ErrDocumentExists 表示同内容文件已摄取过（按 MD5 去重）。
var ErrDocumentExists = errors.New("文件已上传过，无需重复处理")

// ErrDocumentNotFound 表示指定的上传记录不存在。
var ErrDocumentNotFound = errors.New("文档不存在")

// 下载链接的有效期
const downloadURLTTL = 15 * time.Minute

// ObjectStore 是摄取服务所需的对象存储能力，由 storage.Client 实现。
type ObjectStore interface {
	PutDocument(ctx context.Context, fileMD5, fileName, contentType string, data []byte) (string, error)
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// TaskProducer 投递异步文档处理任务，由 kafka.Producer 实现。
type TaskProducer interface {
	ProduceDocumentTask(ctx context.Context, task tasks.DocumentProcessingTask) error
}

// IngestService 接收上传文件，落对象存储与台账后投递异步处理任务。
type IngestService interface {
	UploadDocument(ctx context.Context, data []byte, fileName, mimeType string) (*model.DocumentUpload, error)
	ListDocuments(limit, offset int) ([]model.DocumentUpload, int64, error)
	// GetDownloadURL 为已上传的原始文件签发限时下载链接。
	GetDownloadURL(ctx context.Context, fileMD5 string) (string, error)
}

type ingestService struct {
	storage   ObjectStore
	producer  TaskProducer
	chunkRepo repository.ChunkRepository
}

// NewIngestService 创建文档摄取服务。
func NewIngestService(storageClient ObjectStore, producer TaskProducer, chunkRepo repository.ChunkRepository) IngestService {
	return &ingestService{
		storage:   storageClient,
		producer:  producer,
		chunkRepo: chunkRepo,
	}
}

// UploadDocument 摄取一份上传文件：MD5 去重、写对象存储、建台账、投递
// Kafka 处理任务。实际的提取与向量化由消费端异步完成。
func (s *ingestService) UploadDocument(ctx context.Context, data []byte, fileName, mimeType string) (*model.DocumentUpload, error) {
	sum := md5.Sum(data)
	fileMD5 := hex.EncodeToString(sum[:])
	log.Infof("[Ingest] 步骤1: 收到上传, file: %s, md5: %s, size: %d", fileName, fileMD5, len(data))

	existing, err := s.chunkRepo.FindUploadByMD5(fileMD5)
	if err == nil && existing != nil {
		if existing.Status == model.UploadStatusFailed {
			// 上次处理失败，允许重试
			log.Infof("[Ingest] 文件 %s 上次处理失败，重新投递", fileMD5)
		} else {
			return existing, ErrDocumentExists
		}
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("查询上传记录失败: %w", err)
	}

	objectName, err := s.storage.PutDocument(ctx, fileMD5, fileName, mimeType, data)
	if err != nil {
		return nil, err
	}
	log.Infof("[Ingest] 步骤2: 原始文件已入对象存储, object: %s", objectName)

	upload := existing
	if upload == nil {
		upload = &model.DocumentUpload{
			FileMD5:  fileMD5,
			FileName: fileName,
			FileType: mimeType,
			FileSize: int64(len(data)),
			Status:   model.UploadStatusPending,
		}
		if err := s.chunkRepo.CreateUpload(upload); err != nil {
			return nil, fmt.Errorf("创建上传台账失败: %w", err)
		}
	} else {
		if err := s.chunkRepo.UpdateUploadStatus(fileMD5, model.UploadStatusPending); err != nil {
			return nil, fmt.Errorf("重置处理状态失败: %w", err)
		}
		upload.Status = model.UploadStatusPending
	}

	task := tasks.DocumentProcessingTask{
		FileMD5:    fileMD5,
		ObjectName: objectName,
		FileName:   fileName,
		FileType:   mimeType,
		FileSize:   int64(len(data)),
	}
	if err := s.producer.ProduceDocumentTask(ctx, task); err != nil {
		return nil, fmt.Errorf("投递处理任务失败: %w", err)
	}
	log.Infof("[Ingest] 步骤3: 处理任务已投递, md5: %s", fileMD5)

	return upload, nil
}

func (s *ingestService) ListDocuments(limit, offset int) ([]model.DocumentUpload, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.chunkRepo.ListUploads(limit, offset)
}

// GetDownloadURL 根据台账记录还原对象名并签发预签名下载链接。
func (s *ingestService) GetDownloadURL(ctx context.Context, fileMD5 string) (string, error) {
	upload, err := s.chunkRepo.FindUploadByMD5(fileMD5)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrDocumentNotFound
		}
		return "", fmt.Errorf("查询上传记录失败: %w", err)
	}

	objectName := fmt.Sprintf("documents/%s/%s", upload.FileMD5, upload.FileName)
	url, err := s.storage.PresignedURL(ctx, objectName, downloadURLTTL)
	if err != nil {
		return "", fmt.Errorf("生成下载链接失败: %w", err)
	}
	return url, nil
}
