package service

import (
	"context"
	"errors"
	"testing"

	"smart-edu-go/internal/model"
	"smart-edu-go/pkg/llm"
	"smart-edu-go/pkg/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	answers  []string
	errs     []error
	requests [][]llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	f.requests = append(f.requests, messages)
	i := len(f.requests) - 1
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var answer string
	if i < len(f.answers) {
		answer = f.answers[i]
	}
	return answer, err
}

func (f *fakeLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error {
	answer, err := f.Generate(ctx, messages, gen)
	if err != nil {
		return err
	}
	return writer.WriteMessage(1, []byte(answer))
}

func (f *fakeLLM) ListModels(_ context.Context) ([]string, error) {
	return []string{"fake-model"}, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) CreateEmbedding(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, 0.5}, nil
}

func (f *fakeEmbedder) Dimension() int { return 2 }

func (f *fakeEmbedder) Provider() string { return "fake" }

type fakeQueryStore struct {
	matches []vectorstore.Match
	fail    bool
}

func (f *fakeQueryStore) EnsureIndex(_ context.Context, _ int) error { return nil }

func (f *fakeQueryStore) Upsert(_ context.Context, _ vectorstore.Record) error { return nil }

func (f *fakeQueryStore) Query(_ context.Context, _ []float32, _ int) ([]vectorstore.Match, error) {
	if f.fail {
		return nil, errors.New("vector store unavailable")
	}
	return f.matches, nil
}

func (f *fakeQueryStore) SelfTest(_ context.Context) *vectorstore.SelfTestReport {
	return &vectorstore.SelfTestReport{Healthy: true}
}

type fakeConvRepo struct {
	history map[string][]model.ChatMessage
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{history: make(map[string][]model.ChatMessage)}
}

func (f *fakeConvRepo) AppendMessage(_ context.Context, conversationID string, msg model.ChatMessage) error {
	f.history[conversationID] = append(f.history[conversationID], msg)
	return nil
}

func (f *fakeConvRepo) GetHistory(_ context.Context, conversationID string, limit int) ([]model.ChatMessage, error) {
	messages := f.history[conversationID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func (f *fakeConvRepo) ClearHistory(_ context.Context, conversationID string) error {
	delete(f.history, conversationID)
	return nil
}

// collectWriter 收集流式写出的全部分块
type collectWriter struct {
	data []byte
}

func (w *collectWriter) WriteMessage(_ int, data []byte) error {
	w.data = append(w.data, data...)
	return nil
}

func contextMatches() []vectorstore.Match {
	return []vectorstore.Match{
		{ID: "a_chunk_0", Score: 0.9, Metadata: map[string]interface{}{"content": "课程内容甲", "source": "a.txt"}},
		{ID: "a_chunk_1", Score: 0.8, Metadata: map[string]interface{}{"content": "课程内容乙", "source": "a.txt"}},
		{ID: "b_chunk_0", Score: 0.7, Metadata: map[string]interface{}{"content": "页面内容", "url": "/courses"}},
	}
}

func TestGenerateResponseWithContext(t *testing.T) {
	llmClient := &fakeLLM{answers: []string{"这是回答"}}
	svc := NewChatService(llmClient, &fakeEmbedder{}, &fakeQueryStore{matches: contextMatches()}, nil)

	result, err := svc.GenerateResponse(context.Background(), "课程介绍", nil)
	require.NoError(t, err)
	assert.Equal(t, "这是回答", result.Message)
	// 来源去重且保序
	assert.Equal(t, []string{"a.txt", "/courses"}, result.Sources)

	require.Len(t, llmClient.requests, 1)
	system := llmClient.requests[0][0]
	assert.Equal(t, "system", system.Role)
	assert.Contains(t, system.Content, "课程内容甲")
	assert.Contains(t, system.Content, "页面内容")
}

func TestGenerateResponseFallbackOnPrimaryFailure(t *testing.T) {
	llmClient := &fakeLLM{
		answers: []string{"", "OK"},
		errs:    []error{errors.New("model overloaded"), nil},
	}
	svc := NewChatService(llmClient, &fakeEmbedder{}, &fakeQueryStore{matches: contextMatches()}, nil)

	result, err := svc.GenerateResponse(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "OK", result.Message)
	// 回退回答不携带来源
	assert.Empty(t, result.Sources)

	// 回退请求不含检索上下文
	require.Len(t, llmClient.requests, 2)
	assert.NotContains(t, llmClient.requests[1][0].Content, "课程内容甲")
}

func TestGenerateResponseBothAttemptsFail(t *testing.T) {
	llmClient := &fakeLLM{
		errs: []error{errors.New("down"), errors.New("still down")},
	}
	svc := NewChatService(llmClient, &fakeEmbedder{}, &fakeQueryStore{}, nil)

	_, err := svc.GenerateResponse(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI 服务暂时不可用")
}

func TestGenerateResponseEmbeddingFailureDegrades(t *testing.T) {
	llmClient := &fakeLLM{answers: []string{"无上下文回答"}}
	svc := NewChatService(llmClient, &fakeEmbedder{err: errors.New("quota")}, &fakeQueryStore{matches: contextMatches()}, nil)

	result, err := svc.GenerateResponse(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "无上下文回答", result.Message)
	assert.Empty(t, result.Sources)
	// 向量化失败时直接使用无上下文系统提示
	assert.NotContains(t, llmClient.requests[0][0].Content, "课程内容甲")
}

func TestGenerateResponseStoreQueryErrorDegrades(t *testing.T) {
	llmClient := &fakeLLM{answers: []string{"仍能回答"}}
	svc := NewChatService(llmClient, &fakeEmbedder{}, &fakeQueryStore{fail: true}, nil)

	// 检索抛错不向上传播，退化为无上下文回答
	result, err := svc.GenerateResponse(context.Background(), "hi", nil)
	require.NoError(t, err, "向量库不可用不应使对话失败")
	assert.Equal(t, "仍能回答", result.Message)
	assert.Empty(t, result.Sources)
	require.Len(t, llmClient.requests, 1)
	assert.NotContains(t, llmClient.requests[0][0].Content, "相关网站内容")
}

func TestStreamResponsePersistsHistory(t *testing.T) {
	llmClient := &fakeLLM{answers: []string{"流式回答"}}
	convRepo := newFakeConvRepo()
	svc := NewChatService(llmClient, &fakeEmbedder{}, &fakeQueryStore{}, convRepo)

	writer := &collectWriter{}
	require.NoError(t, svc.StreamResponse(context.Background(), "alice", "你好", writer))
	assert.Equal(t, "流式回答", string(writer.data))

	saved := convRepo.history["alice"]
	require.Len(t, saved, 2)
	assert.Equal(t, "user", saved[0].Role)
	assert.Equal(t, "你好", saved[0].Content)
	assert.Equal(t, "assistant", saved[1].Role)
	assert.Equal(t, "流式回答", saved[1].Content)
}

func TestClearHistoryRemovesConversation(t *testing.T) {
	convRepo := newFakeConvRepo()
	svc := NewChatService(&fakeLLM{}, &fakeEmbedder{}, &fakeQueryStore{}, convRepo)

	require.NoError(t, convRepo.AppendMessage(context.Background(), "alice", model.ChatMessage{Role: "user", Content: "hi"}))
	require.NoError(t, svc.ClearHistory(context.Background(), "alice"))

	history, err := convRepo.GetHistory(context.Background(), "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGenerateResponseHistoryWindow(t *testing.T) {
	llmClient := &fakeLLM{answers: []string{"ok"}}
	svc := NewChatService(llmClient, &fakeEmbedder{}, &fakeQueryStore{}, nil)

	history := make([]model.ChatMessage, 10)
	for i := range history {
		history[i] = model.ChatMessage{Role: "user", Content: string(rune('a' + i))}
	}

	_, err := svc.GenerateResponse(context.Background(), "current", history)
	require.NoError(t, err)

	// system + 最近 6 条历史 + 当前问题
	messages := llmClient.requests[0]
	require.Len(t, messages, 8)
	assert.Equal(t, "e", messages[1].Content)
	assert.Equal(t, "j", messages[6].Content)
	assert.Equal(t, "current", messages[7].Content)
}
