// Package pinecone 是 Pinecone serverless 向量索引的最小 REST 客户端。
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"smart-edu-go/internal/config"
	"smart-edu-go/pkg/log"
	"smart-edu-go/pkg/vectorstore"
)

// Store 通过控制面（api.pinecone.io）与数据面（索引 host）两组接口操作索引。
type Store struct {
	cfg    config.PineconeConfig
	client *http.Client

	mu   sync.Mutex
	host string // 索引数据面地址，EnsureIndex 后缓存
}

// NewStore 创建一个新的 Pinecone 客户端。缺少 API Key 视为配置错误。
func NewStore(cfg config.PineconeConfig) (*Store, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("缺少 PINECONE_API_KEY，无法创建 Pinecone 客户端")
	}
	if cfg.IndexName == "" {
		return nil, errors.New("缺少 PINECONE_INDEX_NAME 配置")
	}
	return &Store{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

type indexList struct {
	Indexes []indexDescription `json:"indexes"`
}

// EnsureIndex 幂等地确保索引存在。不存在则以 cosine 相似度创建
// serverless 索引，并轮询至就绪（有界退避，替代固定休眠）。
func (s *Store) EnsureIndex(ctx context.Context, dimension int) error {
	list, err := s.listIndexes(ctx)
	if err != nil {
		return fmt.Errorf("列出 Pinecone 索引失败: %w", err)
	}
	for _, idx := range list.Indexes {
		if idx.Name == s.cfg.IndexName {
			log.Infof("[Pinecone] 索引 '%s' 已存在, dimension: %d", idx.Name, idx.Dimension)
			s.setHost(idx.Host)
			return nil
		}
	}

	log.Infof("[Pinecone] 索引 '%s' 不存在，正在创建, dimension: %d", s.cfg.IndexName, dimension)
	createBody := map[string]interface{}{
		"name":      s.cfg.IndexName,
		"dimension": dimension,
		"metric":    "cosine",
		"spec": map[string]interface{}{
			"serverless": map[string]interface{}{
				"cloud":  s.cfg.Cloud,
				"region": s.cfg.Region,
			},
		},
	}
	if err := s.doControl(ctx, "POST", "/indexes", createBody, nil); err != nil {
		return fmt.Errorf("创建 Pinecone 索引失败: %w", err)
	}

	return s.waitUntilReady(ctx)
}

// waitUntilReady 轮询索引描述直到就绪，最多重试 30 次，间隔逐步拉长。
func (s *Store) waitUntilReady(ctx context.Context) error {
	backoff := 2 * time.Second
	for attempt := 1; attempt <= 30; attempt++ {
		var desc indexDescription
		err := s.doControl(ctx, "GET", "/indexes/"+s.cfg.IndexName, nil, &desc)
		if err == nil && desc.Status.Ready {
			log.Infof("[Pinecone] 索引 '%s' 已就绪 (尝试 %d 次)", s.cfg.IndexName, attempt)
			s.setHost(desc.Host)
			return nil
		}
		if err != nil {
			log.Warnf("[Pinecone] 查询索引状态失败 (尝试 %d): %v", attempt, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 10*time.Second {
			backoff += time.Second
		}
	}
	return fmt.Errorf("索引 '%s' 在限定时间内未就绪", s.cfg.IndexName)
}

// Upsert 写入单条记录。
func (s *Store) Upsert(ctx context.Context, rec vectorstore.Record) error {
	host, err := s.ensureHost(ctx)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"vectors": []map[string]interface{}{
			{
				"id":       rec.ID,
				"values":   rec.Values,
				"metadata": rec.Metadata,
			},
		},
	}
	if err := s.doData(ctx, host, "/vectors/upsert", body, nil); err != nil {
		return fmt.Errorf("Pinecone upsert 失败: %w", err)
	}
	return nil
}

type queryResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float64                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

// Query 执行相似度检索。后端失败时退化为空结果并记录日志。
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]vectorstore.Match, error) {
	host, err := s.ensureHost(ctx)
	if err != nil {
		log.Errorf("[Pinecone] 查询失败（无法解析索引 host）: %v", err)
		return []vectorstore.Match{}, nil
	}
	body := map[string]interface{}{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
		"includeValues":   false,
	}
	var resp queryResponse
	if err := s.doData(ctx, host, "/query", body, &resp); err != nil {
		log.Errorf("[Pinecone] 相似度查询失败，按无结果降级处理: %v", err)
		return []vectorstore.Match{}, nil
	}
	matches := make([]vectorstore.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, vectorstore.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

// SelfTest 列出索引并报告就绪状态。
func (s *Store) SelfTest(ctx context.Context) *vectorstore.SelfTestReport {
	list, err := s.listIndexes(ctx)
	if err != nil {
		msg := err.Error()
		return &vectorstore.SelfTestReport{
			Healthy:  false,
			Category: vectorstore.ClassifyError(msg),
			Message:  msg,
		}
	}
	report := &vectorstore.SelfTestReport{Healthy: true}
	for _, idx := range list.Indexes {
		report.Indexes = append(report.Indexes, vectorstore.IndexStatus{
			Name:      idx.Name,
			Ready:     idx.Status.Ready,
			Dimension: idx.Dimension,
		})
	}
	return report
}

func (s *Store) listIndexes(ctx context.Context) (*indexList, error) {
	var list indexList
	if err := s.doControl(ctx, "GET", "/indexes", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *Store) setHost(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if host != "" {
		s.host = host
	}
}

// ensureHost 返回缓存的数据面地址，缺失时先描述索引。
func (s *Store) ensureHost(ctx context.Context) (string, error) {
	s.mu.Lock()
	host := s.host
	s.mu.Unlock()
	if host != "" {
		return host, nil
	}
	var desc indexDescription
	if err := s.doControl(ctx, "GET", "/indexes/"+s.cfg.IndexName, nil, &desc); err != nil {
		return "", fmt.Errorf("查询索引 '%s' 描述失败: %w", s.cfg.IndexName, err)
	}
	if desc.Host == "" {
		return "", fmt.Errorf("索引 '%s' 尚未分配 host", s.cfg.IndexName)
	}
	s.setHost(desc.Host)
	return desc.Host, nil
}

// doControl 调用控制面接口。
func (s *Store) doControl(ctx context.Context, method, path string, body, out interface{}) error {
	return s.do(ctx, method, s.cfg.ControlURL+path, body, out)
}

// doData 调用数据面接口。
func (s *Store) doData(ctx context.Context, host, path string, body, out interface{}) error {
	return s.do(ctx, "POST", "https://"+host+path, body, out)
}

func (s *Store) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Api-Key", s.cfg.APIKey)
	req.Header.Set("X-Pinecone-API-Version", "2024-07")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pinecone 返回错误 [%d]: %s", resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("解析响应失败: %w", err)
		}
	}
	return nil
}
