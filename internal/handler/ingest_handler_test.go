package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart-edu-go/internal/model"
	"smart-edu-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeIngest struct {
	urls map[string]string
}

func (f *fakeIngest) UploadDocument(_ context.Context, data []byte, fileName, mimeType string) (*model.DocumentUpload, error) {
	return &model.DocumentUpload{FileName: fileName, FileType: mimeType, FileSize: int64(len(data))}, nil
}

func (f *fakeIngest) ListDocuments(int, int) ([]model.DocumentUpload, int64, error) {
	return nil, 0, nil
}

func (f *fakeIngest) GetDownloadURL(_ context.Context, fileMD5 string) (string, error) {
	url, ok := f.urls[fileMD5]
	if !ok {
		return "", service.ErrDocumentNotFound
	}
	return url, nil
}

func doDownloadRequest(t *testing.T, ingest *fakeIngest, md5 string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewIngestHandler(ingest)
	router.GET("/api/documents/:md5/download", h.Download)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+md5+"/download", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDownloadReturnsPresignedURL(t *testing.T) {
	ingest := &fakeIngest{urls: map[string]string{"abc123": "https://minio.local/documents/abc123/lecture.pdf?signature=x"}}
	w := doDownloadRequest(t, ingest, "abc123")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "signature=x")
}

func TestDownloadUnknownDocument(t *testing.T) {
	w := doDownloadRequest(t, &fakeIngest{urls: map[string]string{}}, "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "文档不存在")
}
