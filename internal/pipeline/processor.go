// Package pipeline 实现了文档摄取流水线：提取、规范化、分块、向量化与入库。
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smart-edu-go/internal/config"
	"smart-edu-go/internal/model"
	"smart-edu-go/internal/repository"
	"smart-edu-go/pkg/embedding"
	"smart-edu-go/pkg/gemini"
	"smart-edu-go/pkg/log"
	"smart-edu-go/pkg/tasks"
	"smart-edu-go/pkg/vectorstore"
)

// ContentGenerator 生成多模态内容描述，生产实现为 gemini.Client。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts []gemini.Part) (string, error)
}

// Transcriber 将音频转写为文本，生产实现为 speech.Client。
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, fileName, language string) (string, error)
}

// ObjectFetcher 按对象名下载原始文件，生产实现为 storage.Client。
type ObjectFetcher interface {
	GetDocument(ctx context.Context, objectName string) ([]byte, error)
}

// Processor 将一份原始文件转换为已分块、已向量化的文档。
// 它同时实现 kafka.TaskProcessor，作为异步摄取任务的消费端。
type Processor struct {
	geminiClient ContentGenerator
	speechClient Transcriber
	fetcher      ObjectFetcher
	embedder     embedding.Client
	store        vectorstore.Store
	chunkRepo    repository.ChunkRepository
	cfg          config.PipelineConfig
}

// NewProcessor 组装文档处理器。
func NewProcessor(
	geminiClient ContentGenerator,
	speechClient Transcriber,
	fetcher ObjectFetcher,
	embedder embedding.Client,
	store vectorstore.Store,
	chunkRepo repository.ChunkRepository,
	cfg config.PipelineConfig,
) *Processor {
	return &Processor{
		geminiClient: geminiClient,
		speechClient: speechClient,
		fetcher:      fetcher,
		embedder:     embedder,
		store:        store,
		chunkRepo:    chunkRepo,
		cfg:          cfg,
	}
}

// ProcessDocument 按 MIME 类型分派提取策略，产出规范化并分块后的文档。
// 分派顺序：图片、音频、视频、文本类 MIME；未识别的类型返回含该 MIME
// 的错误。所有提取出的文本统一经过规范化与分块。
func (p *Processor) ProcessDocument(ctx context.Context, data []byte, fileName, mimeType string) (*model.ProcessedDocument, error) {
	log.Infof("[Processor] 步骤1: 开始处理文档, file: %s, type: %s, size: %d", fileName, mimeType, len(data))

	var content string
	var mediaResult *model.MediaResult
	var err error

	switch {
	case IsImageFile(mimeType):
		img := p.processImage(ctx, data, fileName, mimeType)
		content = img.Description
		mediaResult = &model.MediaResult{Image: img}

	case IsAudioFile(mimeType):
		var audio *model.AudioProcessingResult
		audio, err = p.processAudio(ctx, data, fileName, mimeType)
		if err == nil {
			content = audio.Transcription
			mediaResult = &model.MediaResult{Audio: audio}
		}

	case IsVideoFile(mimeType):
		err = p.processVideo(fileName)

	default:
		content, err = p.extractText(data, fileName, mimeType)
	}
	if err != nil {
		log.Errorf("[Processor] 文档处理出错, file: %s, type: %s, err: %v", fileName, mimeType, err)
		return nil, fmt.Errorf("处理文档失败: %v", err)
	}

	normalized := NormalizeText(content)
	chunks := SplitIntoChunks(normalized, fileName, p.cfg.ChunkSize, p.cfg.OverlapWords)
	log.Infof("[Processor] 步骤2: 文本处理完成, file: %s, contentLen: %d, chunks: %d", fileName, len(normalized), len(chunks))

	return &model.ProcessedDocument{
		Content: normalized,
		Metadata: model.DocumentMetadata{
			FileName:    fileName,
			FileType:    mimeType,
			FileSize:    int64(len(data)),
			ProcessedAt: time.Now(),
			Chunks:      chunks,
			MediaResult: mediaResult,
		},
	}, nil
}

// extractText 处理文本类 MIME。旧式 .doc 与 .docx 走同一条解包路径。
func (p *Processor) extractText(data []byte, fileName, mimeType string) (string, error) {
	switch {
	case mimeType == "application/pdf":
		return extractPDF(data)
	case mimeType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		mimeType == "application/msword":
		return extractDOCX(data)
	case mimeType == "text/html":
		return extractHTML(data), nil
	case strings.HasPrefix(mimeType, "text/"),
		mimeType == "application/json",
		mimeType == "application/xml":
		return string(data), nil
	default:
		return "", fmt.Errorf("不支持的文件类型: %s (file: %s)", mimeType, fileName)
	}
}

// Process 消费一条异步摄取任务：从对象存储取回原始文件，执行完整的
// 处理流水线，将分块落库并逐条向量化入库，最后更新上传记录状态。
// 返回错误表示任务失败，由消费端按重试策略处理。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentProcessingTask) error {
	log.Infof("[Processor] 步骤1: 收到摄取任务, file: %s, md5: %s", task.FileName, task.FileMD5)

	data, err := p.fetcher.GetDocument(ctx, task.ObjectName)
	if err != nil {
		p.markFailed(task.FileMD5)
		return fmt.Errorf("下载原始文件失败: %w", err)
	}

	doc, err := p.ProcessDocument(ctx, data, task.FileName, task.FileType)
	if err != nil {
		p.markFailed(task.FileMD5)
		return err
	}

	// 分块先落库，作为可重建向量索引的台账
	records := make([]model.ChunkRecord, 0, len(doc.Metadata.Chunks))
	for _, chunk := range doc.Metadata.Chunks {
		records = append(records, model.ChunkRecord{
			FileMD5:     task.FileMD5,
			ChunkID:     chunk.ID,
			ChunkIndex:  chunk.Index,
			TextContent: chunk.Content,
			StartChar:   chunk.Metadata.StartChar,
			EndChar:     chunk.Metadata.EndChar,
		})
	}
	if err := p.chunkRepo.ReplaceChunks(task.FileMD5, records); err != nil {
		p.markFailed(task.FileMD5)
		return fmt.Errorf("写入分块台账失败: %w", err)
	}
	log.Infof("[Processor] 步骤2: 分块台账已写入, md5: %s, chunks: %d", task.FileMD5, len(records))

	// 按分块顺序向量化并写入向量库
	for _, chunk := range doc.Metadata.Chunks {
		vector, err := p.embedder.CreateEmbedding(ctx, chunk.Content)
		if err != nil {
			p.markFailed(task.FileMD5)
			return fmt.Errorf("分块 %s 向量化失败: %w", chunk.ID, err)
		}
		rec := vectorstore.Record{
			ID:     chunk.ID,
			Values: vector,
			Metadata: map[string]interface{}{
				"content":    chunk.Content,
				"source":     task.FileName,
				"type":       "document",
				"chunkIndex": chunk.Index,
			},
		}
		if err := p.store.Upsert(ctx, rec); err != nil {
			p.markFailed(task.FileMD5)
			return fmt.Errorf("分块 %s 写入向量库失败: %w", chunk.ID, err)
		}
	}
	log.Infof("[Processor] 步骤3: 向量化入库完成, md5: %s, vectors: %d", task.FileMD5, len(doc.Metadata.Chunks))

	if err := p.chunkRepo.UpdateUploadStatus(task.FileMD5, model.UploadStatusProcessed); err != nil {
		return fmt.Errorf("更新处理状态失败: %w", err)
	}
	log.Infof("[Processor] 步骤4: 摄取任务完成, file: %s, md5: %s", task.FileName, task.FileMD5)
	return nil
}

func (p *Processor) markFailed(fileMD5 string) {
	if err := p.chunkRepo.UpdateUploadStatus(fileMD5, model.UploadStatusFailed); err != nil {
		log.Errorf("[Processor] 更新失败状态出错, md5: %s, err: %v", fileMD5, err)
	}
}
