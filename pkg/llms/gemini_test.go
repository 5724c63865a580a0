package llms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/parley/pkg/config"
)

func geminiConfig(host string) *config.LLMConfig {
	cfg := &config.LLMConfig{APIKey: "test-key", Host: host}
	cfg.SetDefaults()
	cfg.Host = host
	return cfg
}

func candidateResponse(text string) string {
	return `{"candidates": [{"content": {"role": "model", "parts": [{"text": ` + mustJSON(text) + `}]}, "finishReason": "STOP"}]}`
}

func mustJSON(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func TestGeminiProvider_Generate(t *testing.T) {
	var gotPath string
	var gotReq GeminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(candidateResponse("the answer")))
	}))
	defer srv.Close()

	p, err := NewGeminiProviderFromConfig(geminiConfig(srv.URL))
	require.NoError(t, err)

	got, err := p.Generate(context.Background(),
		[]Turn{{Role: RoleUser, Content: "a question"}},
		GenerateOptions{SystemInstruction: "be nice"})
	require.NoError(t, err)

	assert.Equal(t, "the answer", got)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	assert.Equal(t, "a question", gotReq.Contents[0].Parts[0].Text)
	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "be nice", gotReq.SystemInstruction.Parts[0].Text)
	assert.Empty(t, gotReq.Tools)
}

func TestGeminiProvider_ModelOverride(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(candidateResponse("ok")))
	}))
	defer srv.Close()

	p, err := NewGeminiProviderFromConfig(geminiConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(),
		[]Turn{{Role: RoleUser, Content: "q"}},
		GenerateOptions{Model: "gemini-2.5-pro"})
	require.NoError(t, err)
	assert.Equal(t, "/v1beta/models/gemini-2.5-pro:generateContent", gotPath)
}

func TestGeminiProvider_WebSearchTool(t *testing.T) {
	var rawBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		rawBody = string(body)
		w.Write([]byte(candidateResponse("ok")))
	}))
	defer srv.Close()

	p, err := NewGeminiProviderFromConfig(geminiConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(),
		[]Turn{{Role: RoleUser, Content: "q"}},
		GenerateOptions{WebSearch: true})
	require.NoError(t, err)
	assert.Contains(t, rawBody, `"google_search":{}`)
}

func TestGeminiProvider_NoCandidatesIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	p, err := NewGeminiProviderFromConfig(geminiConfig(srv.URL))
	require.NoError(t, err)

	got, err := p.Generate(context.Background(), []Turn{{Role: RoleUser, Content: "q"}}, GenerateOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGeminiProvider_APIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"code": 400, "message": "invalid argument", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	p, err := NewGeminiProviderFromConfig(geminiConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), []Turn{{Role: RoleUser, Content: "q"}}, GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid argument")
}

func TestGeminiProvider_SkipsEmptyTurns(t *testing.T) {
	var gotReq GeminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(candidateResponse("ok")))
	}))
	defer srv.Close()

	p, err := NewGeminiProviderFromConfig(geminiConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), []Turn{
		{Role: RoleUser, Content: "keep"},
		{Role: RoleModel, Content: ""},
		{Role: RoleModel, Content: "also keep"},
	}, GenerateOptions{})
	require.NoError(t, err)

	require.Len(t, gotReq.Contents, 2)
	assert.Equal(t, "keep", gotReq.Contents[0].Parts[0].Text)
	assert.Equal(t, "also keep", gotReq.Contents[1].Parts[0].Text)
}

func TestNewGeminiProvider_RequiresAPIKey(t *testing.T) {
	cfg := &config.LLMConfig{}
	cfg.SetDefaults()
	_, err := NewGeminiProviderFromConfig(cfg)
	assert.Error(t, err)
}
