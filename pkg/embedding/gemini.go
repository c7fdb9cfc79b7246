package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"smart-edu-go/internal/config"
	"smart-edu-go/pkg/log"
)

type geminiClient struct {
	embCfg config.EmbeddingConfig
	cfg    config.GeminiConfig
	client *http.Client
}

func newGeminiClient(embCfg config.EmbeddingConfig, cfg config.GeminiConfig) *geminiClient {
	return &geminiClient{
		embCfg: embCfg,
		cfg:    cfg,
		client: &http.Client{},
	}
}

type geminiEmbedRequest struct {
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (c *geminiClient) Dimension() int   { return c.embCfg.Dimensions }
func (c *geminiClient) Provider() string { return "gemini" }

// CreateEmbedding 调用 Gemini 的 embedContent 接口获取文本向量。
func (c *geminiClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	log.Infof("[EmbeddingClient] 开始调用 Gemini embedContent, model: %s, input_len: %d", c.cfg.EmbeddingModel, len(text))

	var reqBody geminiEmbedRequest
	reqBody.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: text}}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedContent request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", c.cfg.BaseURL, c.cfg.EmbeddingModel, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedContent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Gemini embedContent 失败, error: %v", err)
		return nil, fmt.Errorf("failed to call gemini embed api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Errorf("[EmbeddingClient] Gemini embedContent 返回非 200 状态码: %s, body: %s", resp.Status, string(body))
		return nil, fmt.Errorf("gemini embed api returned non-200 status: %s", resp.Status)
	}

	var embedResp geminiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		log.Errorf("[EmbeddingClient] 解析 Gemini embedContent 响应失败, error: %v", err)
		return nil, fmt.Errorf("failed to decode gemini embed response: %w", err)
	}

	if len(embedResp.Embedding.Values) == 0 {
		log.Warnf("[EmbeddingClient] Gemini embedContent 返回了空的向量数据")
		return nil, fmt.Errorf("received empty embedding from gemini api")
	}

	log.Infof("[EmbeddingClient] 成功从 Gemini 获取向量, 维度: %d", len(embedResp.Embedding.Values))
	return embedResp.Embedding.Values, nil
}
