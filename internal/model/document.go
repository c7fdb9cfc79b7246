// Package model 定义了核心数据结构。
package model

import "time"

// DocumentChunk 是文档文本的一个可寻址切片，是向量化与检索的基本单位。
type DocumentChunk struct {
	ID       string        `json:"id"` // {fileName}_chunk_{index}
	Content  string        `json:"content"`
	Index    int           `json:"index"`
	Metadata ChunkPosition `json:"metadata"`
}

// ChunkPosition 记录分块在规范化全文中的近似字符偏移。
// 由于重叠窗口重新拼接，偏移会有少量漂移，仅用于展示提示。
type ChunkPosition struct {
	StartChar int `json:"startChar"`
	EndChar   int `json:"endChar"`
}

// ProcessedDocument 是一次文件摄取的完整结果。
type ProcessedDocument struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata 记录来源信息与分块结果。
type DocumentMetadata struct {
	FileName    string          `json:"fileName"`
	FileType    string          `json:"fileType"`
	FileSize    int64           `json:"fileSize"`
	ProcessedAt time.Time       `json:"processedAt"`
	Chunks      []DocumentChunk `json:"chunks"`
	MediaResult *MediaResult    `json:"mediaResult,omitempty"`
}

// MediaResult 仅在图片/音频输入时存在，保存更丰富的媒体处理结果。
type MediaResult struct {
	Image *ImageProcessingResult `json:"image,omitempty"`
	Audio *AudioProcessingResult `json:"audio,omitempty"`
}

// ImageProcessingResult 是图片处理的结果：自然语言描述（若模型识别出
// 文字则以固定标题附加在描述之后）加上技术元数据。
type ImageProcessingResult struct {
	Description string        `json:"description"`
	Metadata    ImageMetadata `json:"metadata"`
}

// ImageMetadata 记录图片的固有属性。
type ImageMetadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// AudioProcessingResult 是音频转写的结果。
type AudioProcessingResult struct {
	Transcription string        `json:"transcription"`
	Metadata      AudioMetadata `json:"metadata"`
}

// AudioMetadata 记录音频的技术元数据。
type AudioMetadata struct {
	Format   string  `json:"format"`
	Size     int64   `json:"size"`
	Duration float64 `json:"duration,omitempty"`
}
