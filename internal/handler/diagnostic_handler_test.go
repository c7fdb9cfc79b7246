package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smart-edu-go/pkg/vectorstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeDiagnostic struct {
	openaiReport map[string]interface{}
	resetCalls   int
}

func (f *fakeDiagnostic) TestGemini(_ context.Context) map[string]interface{} {
	return map[string]interface{}{"connected": true}
}

func (f *fakeDiagnostic) GeminiModelInfo() map[string]interface{} {
	return map[string]interface{}{"availableModels": []string{"gemini-1.5-flash"}}
}

func (f *fakeDiagnostic) TestOpenAI(_ context.Context) map[string]interface{} {
	return f.openaiReport
}

func (f *fakeDiagnostic) TestVectorStore(_ context.Context) *vectorstore.SelfTestReport {
	return &vectorstore.SelfTestReport{Healthy: true}
}

func (f *fakeDiagnostic) ResetOpenAIClient() error {
	f.resetCalls++
	return nil
}

func doDiagnosticRequest(t *testing.T, diag *fakeDiagnostic, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewDiagnosticHandler(diag)
	router.GET("/api/test-openai", h.TestOpenAI)
	router.POST("/api/test-openai", h.TestOpenAIAction)
	router.POST("/api/test-gemini", h.TestGeminiAction)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOpenAIDiagnosticHealthy(t *testing.T) {
	diag := &fakeDiagnostic{openaiReport: map[string]interface{}{"connected": true, "generateOk": true, "ok": true}}
	w := doDiagnosticRequest(t, diag, http.MethodGet, "/api/test-openai", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOpenAIDiagnosticConnectionFailure(t *testing.T) {
	diag := &fakeDiagnostic{openaiReport: map[string]interface{}{"connected": false, "ok": false}}
	w := doDiagnosticRequest(t, diag, http.MethodGet, "/api/test-openai", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOpenAIDiagnosticGenerateFailure(t *testing.T) {
	// 连上了但生成失败，聚合结论不通过，同样 503
	diag := &fakeDiagnostic{openaiReport: map[string]interface{}{"connected": true, "generateOk": false, "ok": false}}
	w := doDiagnosticRequest(t, diag, http.MethodGet, "/api/test-openai", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOpenAIDiagnosticResetAction(t *testing.T) {
	diag := &fakeDiagnostic{openaiReport: map[string]interface{}{"connected": true, "generateOk": true, "ok": true}}
	w := doDiagnosticRequest(t, diag, http.MethodPost, "/api/test-openai", `{"resetClient":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, diag.resetCalls)
}

func TestGeminiModelInfoAction(t *testing.T) {
	diag := &fakeDiagnostic{}
	w := doDiagnosticRequest(t, diag, http.MethodPost, "/api/test-gemini", `{"action":"getModelInfo"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "availableModels")
}
