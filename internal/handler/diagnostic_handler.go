package handler

import (
	"net/http"

	"smart-edu-go/internal/service"
	"smart-edu-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DiagnosticHandler 暴露外部 AI 服务的连通性自检接口。
type DiagnosticHandler struct {
	diagnostic service.DiagnosticService
}

// NewDiagnosticHandler 创建一个新的 DiagnosticHandler。
func NewDiagnosticHandler(diagnostic service.DiagnosticService) *DiagnosticHandler {
	return &DiagnosticHandler{diagnostic: diagnostic}
}

// TestGemini 对 Gemini 接口做连通性自检。
func (h *DiagnosticHandler) TestGemini(c *gin.Context) {
	report := h.diagnostic.TestGemini(c.Request.Context())
	status := http.StatusOK
	if connected, ok := report["connected"].(bool); ok && !connected {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"code": status, "message": "success", "data": report})
}

// TestGeminiAction 处理带动作的 POST 请求：getModelInfo 只返回配置与
// 可选模型清单，不发起远程调用；其余动作等同于一次自检。
func (h *DiagnosticHandler) TestGeminiAction(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
	}
	_ = c.ShouldBindJSON(&req)

	if req.Action == "getModelInfo" {
		c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.diagnostic.GeminiModelInfo()})
		return
	}
	h.TestGemini(c)
}

// TestOpenAI 对 OpenAI 兼容端点做连通性自检。连通但生成失败同样视为
// 不可用，以聚合的 ok 结论决定状态码。
func (h *DiagnosticHandler) TestOpenAI(c *gin.Context) {
	report := h.diagnostic.TestOpenAI(c.Request.Context())
	status := http.StatusOK
	if ok, present := report["ok"].(bool); present && !ok {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"code": status, "message": "success", "data": report})
}

// TestOpenAIAction 处理带动作的 POST 请求：resetClient 为真时先按当前
// 配置重建客户端再自检，用于配置热更新后验证。
func (h *DiagnosticHandler) TestOpenAIAction(c *gin.Context) {
	var req struct {
		ResetClient bool `json:"resetClient"`
	}
	_ = c.ShouldBindJSON(&req)

	if req.ResetClient {
		if err := h.diagnostic.ResetOpenAIClient(); err != nil {
			log.Errorf("[DiagnosticHandler] 重建 LLM 客户端失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error(), "data": nil})
			return
		}
	}
	h.TestOpenAI(c)
}

// TestVectorStore 对向量库做连通性自检并给出错误归类。
func (h *DiagnosticHandler) TestVectorStore(c *gin.Context) {
	report := h.diagnostic.TestVectorStore(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"code": status, "message": "success", "data": report})
}
