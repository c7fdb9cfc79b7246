package service

import (
	"context"
	"sync"
	"time"

	"smart-edu-go/internal/config"
	"smart-edu-go/pkg/llm"
	"smart-edu-go/pkg/log"
	"smart-edu-go/pkg/vectorstore"
)

// LLMHolder 持有当前的 LLM 客户端并允许在运行时重建（例如更换了
// OPENAI_BASE_URL 后无需重启进程）。它本身实现 llm.Client，
// 其余服务透过它调用，重建对调用方透明。
type LLMHolder struct {
	mu      sync.RWMutex
	client  llm.Client
	rebuild func() (llm.Client, error)
}

// NewLLMHolder 用初始客户端与重建函数创建 holder。
func NewLLMHolder(client llm.Client, rebuild func() (llm.Client, error)) *LLMHolder {
	return &LLMHolder{client: client, rebuild: rebuild}
}

func (h *LLMHolder) current() llm.Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client
}

// Reset 重新构建底层客户端。构建失败时保留旧客户端。
func (h *LLMHolder) Reset() error {
	client, err := h.rebuild()
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.client = client
	h.mu.Unlock()
	log.Infof("[LLMHolder] LLM 客户端已重建")
	return nil
}

func (h *LLMHolder) Generate(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	return h.current().Generate(ctx, messages, gen)
}

func (h *LLMHolder) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error {
	return h.current().StreamChatMessages(ctx, messages, gen, writer)
}

func (h *LLMHolder) ListModels(ctx context.Context) ([]string, error) {
	return h.current().ListModels(ctx)
}

// GeminiTester 是诊断所需的 Gemini 客户端能力。
type GeminiTester interface {
	SelfTest(ctx context.Context) error
	ModelInfo() map[string]interface{}
}

// DiagnosticService 提供对外部 AI 服务的连通性自检。
type DiagnosticService interface {
	TestGemini(ctx context.Context) map[string]interface{}
	GeminiModelInfo() map[string]interface{}
	TestOpenAI(ctx context.Context) map[string]interface{}
	TestVectorStore(ctx context.Context) *vectorstore.SelfTestReport
	ResetOpenAIClient() error
}

type diagnosticService struct {
	gemini GeminiTester
	holder *LLMHolder
	store  vectorstore.Store
	cfg    *config.Config
}

// NewDiagnosticService 创建诊断服务。
func NewDiagnosticService(gemini GeminiTester, holder *LLMHolder, store vectorstore.Store, cfg *config.Config) DiagnosticService {
	return &diagnosticService{gemini: gemini, holder: holder, store: store, cfg: cfg}
}

// geminiSelectableModels 是前端配置页可选择的模型清单。
var geminiSelectableModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-2.0-flash",
}

// GeminiModelInfo 返回当前模型配置与可选模型清单，不发起远程调用。
func (s *diagnosticService) GeminiModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":        "gemini",
		"modelInfo":       s.gemini.ModelInfo(),
		"availableModels": geminiSelectableModels,
		"timestamp":       time.Now().Format(time.RFC3339),
	}
}

// TestGemini 对 Gemini 接口做一次最小往返，并附带模型配置信息。
func (s *diagnosticService) TestGemini(ctx context.Context) map[string]interface{} {
	report := map[string]interface{}{
		"provider":  "gemini",
		"modelInfo": s.gemini.ModelInfo(),
		"timestamp": time.Now().Format(time.RFC3339),
	}

	start := time.Now()
	if err := s.gemini.SelfTest(ctx); err != nil {
		report["connected"] = false
		report["error"] = err.Error()
		report["category"] = vectorstore.ClassifyError(err.Error())
		return report
	}
	report["connected"] = true
	report["latencyMs"] = time.Since(start).Milliseconds()
	return report
}

// TestOpenAI 分两步检查 OpenAI 兼容端点：列模型（鉴权与连通性）、
// 一次最小生成（模型可用性）。两步结果独立上报，ok 是二者的聚合结论。
func (s *diagnosticService) TestOpenAI(ctx context.Context) map[string]interface{} {
	report := map[string]interface{}{
		"provider":  "openai",
		"baseUrl":   s.cfg.OpenAI.BaseURL,
		"model":     s.cfg.OpenAI.Model,
		"timestamp": time.Now().Format(time.RFC3339),
		"ok":        false,
	}

	models, err := s.holder.ListModels(ctx)
	if err != nil {
		report["connected"] = false
		report["error"] = err.Error()
		report["category"] = vectorstore.ClassifyError(err.Error())
		return report
	}
	report["connected"] = true
	report["models"] = models

	answer, err := s.holder.Generate(ctx, []llm.Message{
		{Role: "user", Content: "请回复：连接正常"},
	}, nil)
	if err != nil {
		report["generateOk"] = false
		report["generateError"] = err.Error()
		return report
	}
	report["generateOk"] = true
	report["sample"] = answer
	report["ok"] = true
	return report
}

func (s *diagnosticService) TestVectorStore(ctx context.Context) *vectorstore.SelfTestReport {
	return s.store.SelfTest(ctx)
}

func (s *diagnosticService) ResetOpenAIClient() error {
	return s.holder.Reset()
}
