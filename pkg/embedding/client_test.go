package embedding

import (
	"testing"

	"smart-edu-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRejectsMissingKeys(t *testing.T) {
	_, err := NewClient(config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"}, config.OpenAIConfig{}, config.GeminiConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	_, err = NewClient(config.EmbeddingConfig{Provider: "gemini"}, config.OpenAIConfig{}, config.GeminiConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")
}

func TestNewClientRejectsEmptyOpenAIModel(t *testing.T) {
	_, err := NewClient(config.EmbeddingConfig{Provider: "openai"}, config.OpenAIConfig{APIKey: "k"}, config.GeminiConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding.model")
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(config.EmbeddingConfig{Provider: "cohere"}, config.OpenAIConfig{}, config.GeminiConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cohere")
}

func TestNewClientReportsProviderAndDimension(t *testing.T) {
	client, err := NewClient(
		config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 1536},
		config.OpenAIConfig{APIKey: "k", BaseURL: "https://api.openai.com/v1"},
		config.GeminiConfig{},
	)
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Provider())
	assert.Equal(t, 1536, client.Dimension())
}
