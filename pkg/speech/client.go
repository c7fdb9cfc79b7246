// Package speech 提供了一个调用托管语音转写接口的客户端。
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"smart-edu-go/internal/config"
	"smart-edu-go/pkg/log"
)

// Client 是转写接口（OpenAI 兼容 /audio/transcriptions）的客户端。
type Client struct {
	cfg    config.OpenAIConfig
	model  string
	client *http.Client
}

// NewClient 创建一个新的转写客户端实例。
func NewClient(cfg config.OpenAIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("缺少 OPENAI_API_KEY，无法创建转写客户端")
	}
	return &Client{cfg: cfg, model: "whisper-1", client: &http.Client{}}, nil
}

// Transcribe 将音频字节包装为 multipart 文件并调用转写接口，带语言提示。
func (c *Client) Transcribe(ctx context.Context, data []byte, fileName, language string) (string, error) {
	log.Infof("[SpeechClient] 开始调用转写接口, file: %s, size: %d字节", fileName, len(data))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("创建 multipart 文件字段失败: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("写入音频数据失败: %w", err)
	}
	_ = writer.WriteField("model", c.model)
	if language != "" {
		_ = writer.WriteField("language", language)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("关闭 multipart writer 失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("创建转写请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[SpeechClient] 调用转写接口失败, error: %v", err)
		return "", fmt.Errorf("调用转写接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("转写接口返回错误 [%d]: %s", resp.StatusCode, string(respBody))
	}

	var transcription struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&transcription); err != nil {
		return "", fmt.Errorf("解析转写响应失败: %w", err)
	}

	log.Infof("[SpeechClient] 转写成功, 文本长度: %d 字符", len(transcription.Text))
	return transcription.Text, nil
}
