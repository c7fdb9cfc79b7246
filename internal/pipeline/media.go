package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	// 注册图片解码器，供 image.DecodeConfig 读取固有元数据
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"smart-edu-go/internal/model"
	"smart-edu-go/pkg/gemini"
	"smart-edu-go/pkg/log"
)

// 媒体类型白名单。MIME 必须同时满足类别前缀与白名单成员两个条件才被接受
// （例如 image/tiff 虽是图片但不在白名单内，同样拒绝）。
var (
	supportedImageTypes = map[string]bool{
		"image/png":  true,
		"image/jpeg": true,
		"image/jpg":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	supportedAudioTypes = map[string]bool{
		"audio/mp3":   true,
		"audio/mpeg":  true,
		"audio/wav":   true,
		"audio/x-wav": true,
		"audio/mp4":   true,
		"audio/m4a":   true,
		"audio/webm":  true,
		"audio/ogg":   true,
	}
	supportedVideoTypes = map[string]bool{
		"video/mp4":       true,
		"video/avi":       true,
		"video/quicktime": true,
		"video/x-msvideo": true,
		"video/webm":      true,
	}
)

// IsImageFile 判断 MIME 是否为受支持的图片类型。
func IsImageFile(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") && supportedImageTypes[mimeType]
}

// IsAudioFile 判断 MIME 是否为受支持的音频类型。
func IsAudioFile(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/") && supportedAudioTypes[mimeType]
}

// IsVideoFile 判断 MIME 是否为受支持的视频类型。
func IsVideoFile(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/") && supportedVideoTypes[mimeType]
}

// imageFailureText 是图片描述生成失败时的固定占位文本。图片走软失败：
// 单张图片出错不应中止整批摄取。
const imageFailureText = "图片处理失败，无法生成描述"

// imageDescriptionPrompt 要求模型输出结构化的图片描述；识别出的文字
// 附加在固定标题之下，而不是单独成字段。
const imageDescriptionPrompt = `请用中文描述这张图片，依次说明：
1. 图片的主要内容
2. 图片中可见的文字（如有，请完整转录）
3. 主要视觉元素（颜色、布局、构图）
4. 如果是界面截图或图表，请说明界面布局或图表数据

如果图片中包含文字，请在描述末尾以"提取的文字："开头单独列出。`

// processImage 读取图片固有元数据并调用生成式接口产出描述。
// 生成调用失败时降级为固定占位文本，不抛出。
func (p *Processor) processImage(ctx context.Context, data []byte, fileName, mimeType string) *model.ImageProcessingResult {
	result := &model.ImageProcessingResult{
		Metadata: model.ImageMetadata{Size: int64(len(data))},
	}

	// 固有元数据读取失败不影响描述生成
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		result.Metadata.Width = cfg.Width
		result.Metadata.Height = cfg.Height
		result.Metadata.Format = format
	} else {
		log.Warnf("[MediaProcessor] 读取图片元数据失败: %s, err: %v", fileName, err)
		result.Metadata.Format = strings.TrimPrefix(mimeType, "image/")
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	description, err := p.geminiClient.GenerateContent(ctx, []gemini.Part{
		{Text: imageDescriptionPrompt},
		{InlineData: &gemini.InlineData{MimeType: mimeType, Data: encoded}},
	})
	if err != nil {
		// 软失败：记录错误，返回固定占位文本
		log.Errorf("[MediaProcessor] 图片描述生成失败: %s, err: %v", fileName, err)
		result.Description = imageFailureText
		return result
	}

	result.Description = description
	return result
}

// processAudio 将音频提交给托管转写接口。与图片不同，音频处理失败会
// 抛出错误，并按底层错误文本的子串给出更可操作的提示。这一不一致的
// 失败策略是有意保留的既有行为。
func (p *Processor) processAudio(ctx context.Context, data []byte, fileName, mimeType string) (*model.AudioProcessingResult, error) {
	transcription, err := p.speechClient.Transcribe(ctx, data, fileName, "zh")
	if err != nil {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "401") || strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized"):
			return nil, fmt.Errorf("音频转写失败：API Key 无效或未配置，请检查 OPENAI_API_KEY: %w", err)
		case strings.Contains(msg, "no such host") || strings.Contains(msg, "connection refused"):
			return nil, fmt.Errorf("音频转写失败：无法连接转写服务，请检查 OPENAI_BASE_URL: %w", err)
		case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
			return nil, fmt.Errorf("音频转写失败：请求超时，请检查网络连接: %w", err)
		default:
			return nil, fmt.Errorf("音频转写失败: %w", err)
		}
	}

	return &model.AudioProcessingResult{
		Transcription: transcription,
		Metadata: model.AudioMetadata{
			Format: strings.TrimPrefix(mimeType, "audio/"),
			Size:   int64(len(data)),
		},
	}, nil
}

// processVideo 明确不支持：提示调用方先行抽取音轨，而不是静默返回成功。
func (p *Processor) processVideo(fileName string) error {
	return errors.New("视频处理尚未实现，请先将视频的音轨提取为音频文件后重新上传: " + fileName)
}
