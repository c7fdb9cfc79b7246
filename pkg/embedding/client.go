// Package embedding provides clients for interacting with embedding models.
//
// 两条实现（OpenAI 兼容与 Gemini）位于同一接口之后，激活哪一条由配置的
// provider 决定；调用方不感知差异，维度在构造时即与向量索引对齐。
package embedding

import (
	"context"
	"errors"
	"fmt"

	"smart-edu-go/internal/config"
)

// Client defines the interface for an embedding client.
type Client interface {
	// CreateEmbedding 将一段文本转换为稠密向量。
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	// Dimension 返回该模型输出向量的维度。
	Dimension() int
	// Provider 返回实现标识（openai / gemini）。
	Provider() string
}

// NewClient creates a new embedding client based on the provider in the config.
func NewClient(embCfg config.EmbeddingConfig, openaiCfg config.OpenAIConfig, geminiCfg config.GeminiConfig) (Client, error) {
	switch embCfg.Provider {
	case "openai":
		if openaiCfg.APIKey == "" {
			return nil, errors.New("缺少 OPENAI_API_KEY，无法创建 OpenAI embedding 客户端")
		}
		if embCfg.Model == "" {
			return nil, errors.New("缺少 embedding.model 配置，OpenAI embedding 请求不允许空模型名")
		}
		return newOpenAIClient(embCfg, openaiCfg), nil
	case "gemini":
		if geminiCfg.APIKey == "" {
			return nil, errors.New("缺少 GOOGLE_API_KEY，无法创建 Gemini embedding 客户端")
		}
		return newGeminiClient(embCfg, geminiCfg), nil
	default:
		return nil, fmt.Errorf("未知的 embedding provider: %s", embCfg.Provider)
	}
}
