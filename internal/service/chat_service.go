// Package service 实现了核心业务逻辑。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smart-edu-go/internal/model"
	"smart-edu-go/internal/repository"
	"smart-edu-go/pkg/embedding"
	"smart-edu-go/pkg/llm"
	"smart-edu-go/pkg/log"
	"smart-edu-go/pkg/vectorstore"
)

const (
	// 每轮检索的相似分块数
	retrievalTopK = 5
	// 注入生成请求的最近历史条数
	historyWindow = 6
)

const systemPromptWithContext = `你是一个智慧教育网站的 AI 助手。请根据下面提供的网站内容回答用户的问题。
如果提供的内容不足以回答问题，可以结合你的通用知识作答，但请优先使用提供的内容。
请始终用中文回答。

相关网站内容：
%s`

const systemPromptFallback = `你是一个智慧教育网站的 AI 助手。请结合你的通用知识回答用户的问题，并始终用中文回答。`

// ChatService 提供基于检索增强的对话能力。
type ChatService interface {
	GenerateResponse(ctx context.Context, message string, history []model.ChatMessage) (*model.ChatResult, error)
	StreamResponse(ctx context.Context, conversationID, message string, writer llm.MessageWriter) error
	// ClearHistory 清空指定会话的历史记录。
	ClearHistory(ctx context.Context, conversationID string) error
}

type chatService struct {
	llmClient llm.Client
	embedder  embedding.Client
	store     vectorstore.Store
	convRepo  repository.ConversationRepository
}

// NewChatService 创建对话服务。
func NewChatService(
	llmClient llm.Client,
	embedder embedding.Client,
	store vectorstore.Store,
	convRepo repository.ConversationRepository,
) ChatService {
	return &chatService{
		llmClient: llmClient,
		embedder:  embedder,
		store:     store,
		convRepo:  convRepo,
	}
}

// searchSimilar 对用户问题做相似度检索。检索链路上的任何失败都降级为
// 空结果：对话永远不因检索不可用而失败，只是退化为无上下文回答。
func (s *chatService) searchSimilar(ctx context.Context, query string) []model.RetrievedChunk {
	vector, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[ChatService] 问题向量化失败，退化为无上下文回答: %v", err)
		return []model.RetrievedChunk{}
	}

	matches, err := s.store.Query(ctx, vector, retrievalTopK)
	if err != nil {
		log.Errorf("[ChatService] 相似度检索失败，退化为无上下文回答: %v", err)
		return []model.RetrievedChunk{}
	}

	chunks := make([]model.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		chunk := model.RetrievedChunk{ID: m.ID, Score: m.Score}
		if v, ok := m.Metadata["content"].(string); ok {
			chunk.Content = v
		}
		if v, ok := m.Metadata["source"].(string); ok && v != "" {
			chunk.Source = v
		} else if v, ok := m.Metadata["url"].(string); ok {
			chunk.Source = v
		}
		if chunk.Content == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// buildMessages 组装发给模型的消息序列：系统提示（含检索上下文）、
// 最近 historyWindow 条历史、当前问题。
func (s *chatService) buildMessages(message string, history []model.ChatMessage, chunks []model.RetrievedChunk) []llm.Message {
	var systemPrompt string
	if len(chunks) > 0 {
		var ctxBlock strings.Builder
		for i, chunk := range chunks {
			fmt.Fprintf(&ctxBlock, "[%d] 来源: %s\n%s\n\n", i+1, chunk.Source, chunk.Content)
		}
		systemPrompt = fmt.Sprintf(systemPromptWithContext, ctxBlock.String())
	} else {
		systemPrompt = systemPromptFallback
	}

	messages := []llm.Message{{Role: "system", Content: systemPrompt}}
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, h := range history[start:] {
		messages = append(messages, llm.Message{Role: h.Role, Content: h.Content})
	}
	return append(messages, llm.Message{Role: "user", Content: message})
}

// dedupSources 按出现顺序去重来源标识。
func dedupSources(chunks []model.RetrievedChunk) []string {
	seen := make(map[string]bool)
	sources := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Source == "" || seen[chunk.Source] {
			continue
		}
		seen[chunk.Source] = true
		sources = append(sources, chunk.Source)
	}
	return sources
}

// GenerateResponse 执行一次完整的 RAG 应答。主调用失败时做一次无上下文
// 的回退生成；回退结果不携带来源。两次都失败才返回错误。
func (s *chatService) GenerateResponse(ctx context.Context, message string, history []model.ChatMessage) (*model.ChatResult, error) {
	chunks := s.searchSimilar(ctx, message)
	log.Infof("[ChatService] 步骤1: 检索完成, hits: %d", len(chunks))

	answer, err := s.llmClient.Generate(ctx, s.buildMessages(message, history, chunks), nil)
	if err == nil {
		return &model.ChatResult{Message: answer, Sources: dedupSources(chunks)}, nil
	}
	log.Errorf("[ChatService] 步骤2: 主生成失败，尝试无上下文回退: %v", err)

	answer, fallbackErr := s.llmClient.Generate(ctx, s.buildMessages(message, history, nil), nil)
	if fallbackErr != nil {
		log.Errorf("[ChatService] 回退生成同样失败: %v", fallbackErr)
		return nil, errors.New("AI 服务暂时不可用，请稍后再试")
	}
	return &model.ChatResult{Message: answer, Sources: []string{}}, nil
}

// StreamResponse 以 WebSocket 流式返回应答，并把问答双方消息写入会话历史。
func (s *chatService) StreamResponse(ctx context.Context, conversationID, message string, writer llm.MessageWriter) error {
	history, err := s.convRepo.GetHistory(ctx, conversationID, historyWindow)
	if err != nil {
		log.Warnf("[ChatService] 读取会话历史失败, conversation: %s, err: %v", conversationID, err)
	}

	chunks := s.searchSimilar(ctx, message)
	interceptor := &streamInterceptor{inner: writer}
	if err := s.llmClient.StreamChatMessages(ctx, s.buildMessages(message, history, chunks), nil, interceptor); err != nil {
		return err
	}

	if err := s.convRepo.AppendMessage(ctx, conversationID, model.ChatMessage{Role: "user", Content: message}); err != nil {
		log.Warnf("[ChatService] 保存用户消息失败: %v", err)
	}
	if err := s.convRepo.AppendMessage(ctx, conversationID, model.ChatMessage{Role: "assistant", Content: interceptor.full.String()}); err != nil {
		log.Warnf("[ChatService] 保存助手消息失败: %v", err)
	}
	return nil
}

func (s *chatService) ClearHistory(ctx context.Context, conversationID string) error {
	if err := s.convRepo.ClearHistory(ctx, conversationID); err != nil {
		return fmt.Errorf("清空会话历史失败: %w", err)
	}
	log.Infof("[ChatService] 会话历史已清空, conversation: %s", conversationID)
	return nil
}

// streamInterceptor 透传流式分块的同时累积完整文本，用于落历史。
type streamInterceptor struct {
	inner llm.MessageWriter
	full  strings.Builder
}

func (w *streamInterceptor) WriteMessage(messageType int, data []byte) error {
	w.full.Write(data)
	return w.inner.WriteMessage(messageType, data)
}
