// Package es 提供了基于 Elasticsearch dense_vector 的向量存储后端。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"smart-edu-go/internal/config"
	"smart-edu-go/pkg/log"
	"smart-edu-go/pkg/vectorstore"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Store 是 vectorstore.Store 的 Elasticsearch 实现。
type Store struct {
	client    *elasticsearch.Client
	indexName string
}

// NewStore 初始化 Elasticsearch 客户端。
func NewStore(esCfg config.ElasticsearchConfig) (*Store, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, indexName: esCfg.IndexName}, nil
}

// EnsureIndex 检查索引是否存在，如果不存在则以给定维度创建。
func (s *Store) EnsureIndex(ctx context.Context, dimension int) error {
	res, err := s.client.Indices.Exists([]string{s.indexName}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", s.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", s.indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 使用 ik 中文分词器，向量字段为 cosine 相似度
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"record_id": { "type": "keyword" },
				"content": {
					"type": "text",
					"analyzer": "ik_max_word",
					"search_analyzer": "ik_smart"
				},
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"title": { "type": "text" },
				"url": { "type": "keyword" },
				"type": { "type": "keyword" },
				"source": { "type": "keyword" },
				"chunk_index": { "type": "integer" },
				"last_modified": { "type": "keyword" }
			}
		}
	}`, dimension)

	res, err = s.client.Indices.Create(
		s.indexName,
		s.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", s.indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", s.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功, dimension: %d", s.indexName, dimension)
	return nil
}

type esRecord struct {
	RecordID     string    `json:"record_id"`
	Content      string    `json:"content"`
	Vector       []float32 `json:"vector"`
	Title        string    `json:"title,omitempty"`
	URL          string    `json:"url,omitempty"`
	Type         string    `json:"type,omitempty"`
	Source       string    `json:"source,omitempty"`
	ChunkIndex   int       `json:"chunk_index"`
	LastModified string    `json:"last_modified,omitempty"`
}

// Upsert 将单条记录索引到 Elasticsearch。
func (s *Store) Upsert(ctx context.Context, rec vectorstore.Record) error {
	doc := esRecord{
		RecordID: rec.ID,
		Vector:   rec.Values,
	}
	if v, ok := rec.Metadata["content"].(string); ok {
		doc.Content = v
	}
	if v, ok := rec.Metadata["title"].(string); ok {
		doc.Title = v
	}
	if v, ok := rec.Metadata["url"].(string); ok {
		doc.URL = v
	}
	if v, ok := rec.Metadata["type"].(string); ok {
		doc.Type = v
	}
	if v, ok := rec.Metadata["source"].(string); ok {
		doc.Source = v
	}
	if v, ok := rec.Metadata["chunkIndex"].(int); ok {
		doc.ChunkIndex = v
	}
	if v, ok := rec.Metadata["lastModified"].(string); ok {
		doc.LastModified = v
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.indexName,
		DocumentID: rec.ID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index document")
	}
	return nil
}

// Query 执行 kNN 相似度检索。后端失败时退化为空结果并记录日志。
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]vectorstore.Match, error) {
	var buf bytes.Buffer
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": topK * 10,
		},
		"size": topK,
	}
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		log.Errorf("[ES] 序列化查询失败，按无结果降级处理: %v", err)
		return []vectorstore.Match{}, nil
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		log.Errorf("[ES] 相似度查询失败，按无结果降级处理: %v", err)
		return []vectorstore.Match{}, nil
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Errorf("[ES] 查询返回错误, status: %s, body: %s", res.Status(), string(body))
		return []vectorstore.Match{}, nil
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
				Score  float64                `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		log.Errorf("[ES] 解析查询响应失败，按无结果降级处理: %v", err)
		return []vectorstore.Match{}, nil
	}

	matches := make([]vectorstore.Match, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		id, _ := hit.Source["record_id"].(string)
		metadata := map[string]interface{}{
			"content":      hit.Source["content"],
			"title":        hit.Source["title"],
			"url":          hit.Source["url"],
			"type":         hit.Source["type"],
			"source":       hit.Source["source"],
			"chunkIndex":   hit.Source["chunk_index"],
			"lastModified": hit.Source["last_modified"],
		}
		matches = append(matches, vectorstore.Match{ID: id, Score: hit.Score, Metadata: metadata})
	}
	return matches, nil
}

// SelfTest 检查集群连通性并报告索引状态。
func (s *Store) SelfTest(ctx context.Context) *vectorstore.SelfTestReport {
	res, err := s.client.Indices.Exists([]string{s.indexName}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		msg := err.Error()
		return &vectorstore.SelfTestReport{
			Healthy:  false,
			Category: vectorstore.ClassifyError(msg),
			Message:  msg,
		}
	}
	return &vectorstore.SelfTestReport{
		Healthy: true,
		Indexes: []vectorstore.IndexStatus{
			{Name: s.indexName, Ready: !res.IsError() && res.StatusCode == http.StatusOK},
		},
	}
}
