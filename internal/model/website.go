package model

import "time"

// WebsiteContent 是网站内容扫描的中间结果，仅在一次索引运行期间存在。
type WebsiteContent struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	URL      string          `json:"url"`
	Type     string          `json:"type"` // page | markdown | component
	Metadata ContentMetadata `json:"metadata"`
}

// ContentMetadata 记录扫描来源文件的信息。
type ContentMetadata struct {
	LastModified time.Time `json:"lastModified"`
	FilePath     string    `json:"filePath"`
	Size         int64     `json:"size"`
}

// IndexReport 是一次批量索引运行的汇总：成功条数与逐项错误。
// 单项失败不会中止批处理。
type IndexReport struct {
	Indexed int      `json:"indexed"`
	Errors  []string `json:"errors"`
}

// ChatMessage 表示一条角色消息。
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ChatResult 是一次 RAG 应答的结果：生成文本加上去重后的来源标识。
type ChatResult struct {
	Message string   `json:"message"`
	Sources []string `json:"sources"`
}

// RetrievedChunk 是一次相似度检索命中的分块。
type RetrievedChunk struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
}
