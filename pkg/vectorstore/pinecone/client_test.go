package pinecone

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"smart-edu-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(controlURL string) config.PineconeConfig {
	return config.PineconeConfig{
		APIKey:     "test-key",
		IndexName:  "edu-index",
		Cloud:      "aws",
		Region:     "us-east-1",
		ControlURL: controlURL,
	}
}

func TestNewStoreRequiresConfig(t *testing.T) {
	_, err := NewStore(config.PineconeConfig{IndexName: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PINECONE_API_KEY")

	_, err = NewStore(config.PineconeConfig{APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PINECONE_INDEX_NAME")
}

func TestQueryDegradesWhenControlPlaneFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal"}`))
	}))
	defer server.Close()

	store, err := NewStore(testConfig(server.URL))
	require.NoError(t, err)

	// host 解析失败不向调用方抛错，按无结果降级
	matches, err := store.Query(context.Background(), []float32{0.1, 0.2}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEnsureIndexExistingSkipsCreate(t *testing.T) {
	created := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			created = true
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"indexes":[{"name":"edu-index","dimension":768,"host":"edu-index.svc.pinecone.io","status":{"ready":true,"state":"Ready"}}]}`))
	}))
	defer server.Close()

	store, err := NewStore(testConfig(server.URL))
	require.NoError(t, err)

	require.NoError(t, store.EnsureIndex(context.Background(), 768))
	assert.False(t, created, "已存在的索引不应重复创建")
}

func TestSelfTestReportsIndexes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"indexes":[{"name":"edu-index","dimension":768,"host":"h","status":{"ready":true}}]}`))
	}))
	defer server.Close()

	store, err := NewStore(testConfig(server.URL))
	require.NoError(t, err)

	report := store.SelfTest(context.Background())
	assert.True(t, report.Healthy)
	require.Len(t, report.Indexes, 1)
	assert.Equal(t, "edu-index", report.Indexes[0].Name)
	assert.True(t, report.Indexes[0].Ready)
}

func TestSelfTestUnhealthyOnAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	store, err := NewStore(testConfig(server.URL))
	require.NoError(t, err)

	report := store.SelfTest(context.Background())
	assert.False(t, report.Healthy)
	assert.Equal(t, "api_key", report.Category)
}
