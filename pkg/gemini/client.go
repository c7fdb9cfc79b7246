// Package gemini 提供了与 Google Gemini generateContent 接口交互的客户端。
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"smart-edu-go/internal/config"
	"smart-edu-go/pkg/log"
)

// Client 是 Gemini API 的客户端。
type Client struct {
	cfg    config.GeminiConfig
	client *http.Client
}

// NewClient 创建一个新的 Gemini 客户端实例。缺少 API Key 视为配置错误。
func NewClient(cfg config.GeminiConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("缺少 GOOGLE_API_KEY，无法创建 Gemini 客户端")
	}
	return &Client{cfg: cfg, client: &http.Client{}}, nil
}

// Part 是 generateContent 请求中的一个内容片段：纯文本或内联数据。
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData 携带 base64 编码的媒体内容。
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []Part `json:"parts"`
	} `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateContent 调用 generateContent 接口并返回拼接后的文本。
func (c *Client) GenerateContent(ctx context.Context, parts []Part) (string, error) {
	var reqBody generateRequest
	reqBody.Contents = []struct {
		Parts []Part `json:"parts"`
	}{{Parts: parts}}
	reqBody.GenerationConfig = c.buildGenerationConfig()

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generateContent request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.BaseURL, c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create generateContent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[GeminiClient] 调用 generateContent 失败, error: %v", err)
		return "", fmt.Errorf("failed to call gemini api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Errorf("[GeminiClient] generateContent 返回非 200 状态码: %s, body: %s", resp.Status, string(body))
		return "", fmt.Errorf("gemini api returned non-200 status: %s", resp.Status)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini api returned no candidates")
	}

	var out bytes.Buffer
	for _, p := range genResp.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	return out.String(), nil
}

// ModelInfo 返回当前生效的模型配置，供诊断接口展示。
func (c *Client) ModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model":          c.cfg.Model,
		"embeddingModel": c.cfg.EmbeddingModel,
		"temperature":    c.cfg.Generation.Temperature,
		"topP":           c.cfg.Generation.TopP,
		"topK":           c.cfg.Generation.TopK,
		"maxTokens":      c.cfg.Generation.MaxTokens,
	}
}

// SelfTest 发送一条极短的生成请求验证连通性。
func (c *Client) SelfTest(ctx context.Context) error {
	_, err := c.GenerateContent(ctx, []Part{{Text: "请回复：连接正常"}})
	return err
}

func (c *Client) buildGenerationConfig() *generationConfig {
	var gc generationConfig
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		gc.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		gc.TopP = &p
	}
	if c.cfg.Generation.TopK != 0 {
		k := c.cfg.Generation.TopK
		gc.TopK = &k
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		gc.MaxOutputTokens = &m
	}
	if gc.Temperature == nil && gc.TopP == nil && gc.TopK == nil && gc.MaxOutputTokens == nil {
		return nil
	}
	return &gc
}
