package embedders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/parley/pkg/config"
)

func ollamaConfig(host string) *config.EmbedderConfig {
	cfg := &config.EmbedderConfig{Host: host}
	cfg.SetDefaults()
	cfg.Host = host
	cfg.MaxRetries = 1
	return cfg
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	var gotReq ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedderFromConfig(ollamaConfig(srv.URL))
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
	assert.Equal(t, "nomic-embed-text", gotReq.Model)
	assert.Equal(t, "some text", gotReq.Prompt)
}

func TestOllamaEmbedder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedderFromConfig(ollamaConfig(srv.URL))
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaEmbedder_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{})
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedderFromConfig(ollamaConfig(srv.URL))
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestOllamaEmbedder_Dimension(t *testing.T) {
	e, err := NewOllamaEmbedderFromConfig(ollamaConfig("http://localhost:11434"))
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())
}

func TestNewOllamaEmbedder_RequiresHost(t *testing.T) {
	_, err := NewOllamaEmbedderFromConfig(&config.EmbedderConfig{})
	assert.Error(t, err)
}
