// Package vectorstore 定义了远程向量索引的统一抽象。
//
// 两个后端（Pinecone、Elasticsearch）实现同一接口，激活哪一个由配置决定。
// 索引维度在 EnsureIndex 时固定，必须与 embedding 模型的输出维度一致。
package vectorstore

import (
	"context"
	"strings"
)

// Record 是写入向量索引的一条记录。
// 分块原文会重复写入 metadata["content"]，使相似度查询可以直接返回文本，
// 无需二次读取。
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]interface{}
}

// Match 是一次相似度查询的命中，不包含原始向量值。
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]interface{}
}

// IndexStatus 描述一个索引的就绪状态，用于连通性自检。
type IndexStatus struct {
	Name      string `json:"name"`
	Ready     bool   `json:"ready"`
	Dimension int    `json:"dimension,omitempty"`
}

// SelfTestReport 是连通性自检的结果。失败时 Category 为 api_key /
// network / quota / unknown 之一，由错误文本的子串匹配归类。
type SelfTestReport struct {
	Healthy  bool          `json:"healthy"`
	Indexes  []IndexStatus `json:"indexes"`
	Category string        `json:"category,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// Store 定义了向量索引的操作接口。
type Store interface {
	// EnsureIndex 幂等地确保索引存在（cosine 相似度），新建后轮询至就绪。
	EnsureIndex(ctx context.Context, dimension int) error
	// Upsert 写入或覆盖单条记录，不做批量。
	Upsert(ctx context.Context, rec Record) error
	// Query 执行相似度检索，最多返回 topK 条命中。
	// 后端查询失败时退化为空结果并记录日志，调用方无法区分
	// “无相关内容”与“后端不可用”，这是既定的降级行为。
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	// SelfTest 列出索引并报告就绪状态，失败按类别归类。
	SelfTest(ctx context.Context) *SelfTestReport
}

// ClassifyError 按错误文本的子串将服务错误归类为运维可读的类别。
func ClassifyError(msg string) string {
	switch {
	case containsAny(msg, "401", "403", "unauthorized", "forbidden", "api key", "api_key", "apikey"):
		return "api_key"
	case containsAny(msg, "timeout", "deadline", "connection refused", "no such host", "network", "eof"):
		return "network"
	case containsAny(msg, "429", "quota", "rate limit", "too many requests"):
		return "quota"
	default:
		return "unknown"
	}
}

func containsAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
