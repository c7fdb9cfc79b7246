package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart-edu-go/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	report  *model.IndexReport
	scanErr error
}

func (f *fakeIndexer) ScanOnly() ([]model.WebsiteContent, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return []model.WebsiteContent{{Title: "首页", URL: "/", Type: "page"}}, nil
}

func (f *fakeIndexer) IndexWebsite(_ context.Context) (*model.IndexReport, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.report, nil
}

func (f *fakeIndexer) IndexContents(_ context.Context, _ []model.WebsiteContent) *model.IndexReport {
	return f.report
}

func doIndexRequest(t *testing.T, indexer *fakeIndexer, method string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewIndexHandler(indexer)
	router.GET("/api/index-website", h.Describe)
	router.POST("/api/index-website", h.Index)

	req := httptest.NewRequest(method, "/api/index-website", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIndexWebsiteAllSucceeded(t *testing.T) {
	w := doIndexRequest(t, &fakeIndexer{report: &model.IndexReport{Indexed: 3, Errors: []string{}}}, http.MethodPost)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"indexed":3`)
}

func TestIndexWebsitePartialFailure(t *testing.T) {
	report := &model.IndexReport{Indexed: 2, Errors: []string{"/bad: upsert rejected"}}
	w := doIndexRequest(t, &fakeIndexer{report: report}, http.MethodPost)
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Contains(t, w.Body.String(), "/bad")
}

func TestIndexWebsiteTotalFailure(t *testing.T) {
	report := &model.IndexReport{Indexed: 0, Errors: []string{"a", "b"}}
	w := doIndexRequest(t, &fakeIndexer{report: report}, http.MethodPost)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIndexWebsiteScanFailure(t *testing.T) {
	w := doIndexRequest(t, &fakeIndexer{scanErr: errors.New("pages root not found")}, http.MethodPost)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "pages root not found")
}

func TestIndexWebsiteDescribe(t *testing.T) {
	// GET 只返回能力说明，不触发扫描，扫描配置坏了也不影响
	w := doIndexRequest(t, &fakeIndexer{scanErr: errors.New("pages root not found")}, http.MethodGet)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "POST")
	assert.NotContains(t, body, "pages root not found")
}
