package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"smart-edu-go/internal/config"
	"smart-edu-go/internal/model"
	"smart-edu-go/internal/pipeline"
	"smart-edu-go/pkg/embedding"
	"smart-edu-go/pkg/log"
	"smart-edu-go/pkg/vectorstore"
)

// IndexerService 扫描网站内容并写入向量索引。
type IndexerService interface {
	// ScanOnly 只扫描不入库，用于预览将被索引的内容。
	ScanOnly() ([]model.WebsiteContent, error)
	// IndexWebsite 扫描并索引全站内容，返回逐项统计。
	IndexWebsite(ctx context.Context) (*model.IndexReport, error)
	// IndexContents 索引给定内容集合。单项失败不中止批处理。
	IndexContents(ctx context.Context, contents []model.WebsiteContent) *model.IndexReport
}

type indexerService struct {
	scanner  *WebsiteScanner
	embedder embedding.Client
	store    vectorstore.Store
	cfg      config.IndexerConfig
}

// NewIndexerService 创建网站索引服务。
func NewIndexerService(
	scanner *WebsiteScanner,
	embedder embedding.Client,
	store vectorstore.Store,
	cfg config.IndexerConfig,
) IndexerService {
	return &indexerService{
		scanner:  scanner,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}
}

func (s *indexerService) ScanOnly() ([]model.WebsiteContent, error) {
	return s.scanner.Scan()
}

func (s *indexerService) IndexWebsite(ctx context.Context) (*model.IndexReport, error) {
	contents, err := s.scanner.Scan()
	if err != nil {
		return nil, err
	}
	return s.IndexContents(ctx, contents), nil
}

// IndexContents 逐项索引内容。每一项：规范化、无重叠分块、逐块向量化
// 入库。任意一块失败即整项记为失败，但后续项仍会被处理。
func (s *indexerService) IndexContents(ctx context.Context, contents []model.WebsiteContent) *model.IndexReport {
	report := &model.IndexReport{Errors: []string{}}
	delay := time.Duration(s.cfg.UpsertDelayMs) * time.Millisecond

	for _, content := range contents {
		if err := s.indexOne(ctx, content, delay); err != nil {
			log.Errorf("[Indexer] 索引 %s 失败: %v", content.URL, err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", content.URL, err))
			continue
		}
		report.Indexed++
	}

	log.Infof("[Indexer] 批量索引完成, indexed: %d, errors: %d", report.Indexed, len(report.Errors))
	return report
}

func (s *indexerService) indexOne(ctx context.Context, content model.WebsiteContent, delay time.Duration) error {
	normalized := pipeline.NormalizeText(content.Content)
	chunks := pipeline.SplitPlain(normalized, s.cfg.ChunkSize)
	if len(chunks) == 0 {
		return nil
	}

	recordBase := sanitizeRecordID(content.URL)
	for i, chunk := range chunks {
		vector, err := s.embedder.CreateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("分块 %d 向量化失败: %w", i, err)
		}

		rec := vectorstore.Record{
			ID:     fmt.Sprintf("%s_chunk_%d", recordBase, i),
			Values: vector,
			Metadata: map[string]interface{}{
				"content":      chunk,
				"title":        content.Title,
				"url":          content.URL,
				"type":         content.Type,
				"source":       content.URL,
				"chunkIndex":   i,
				"lastModified": content.Metadata.LastModified.Format(time.RFC3339),
			},
		}
		if err := s.store.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("分块 %d 入库失败: %w", i, err)
		}

		// 限速，避免触发向量库与向量化接口的配额限制
		if delay > 0 && i < len(chunks)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil
}

var reUnsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeRecordID 将 URL 转成向量库接受的记录 ID 前缀，根路径记为 home。
func sanitizeRecordID(url string) string {
	if url == "" || url == "/" {
		return "home"
	}
	id := reUnsafeIDChars.ReplaceAllString(url, "_")
	for len(id) > 0 && id[0] == '_' {
		id = id[1:]
	}
	if id == "" {
		return "home"
	}
	return id
}
