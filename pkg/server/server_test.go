package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/parley/pkg/agent"
	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/llms"
	"github.com/kadirpekel/parley/pkg/memory"
	"github.com/kadirpekel/parley/pkg/observability"
)

type cannedLLM struct {
	reply string
}

func (c *cannedLLM) Generate(ctx context.Context, turns []llms.Turn, opts llms.GenerateOptions) (string, error) {
	return c.reply, nil
}

func (c *cannedLLM) GetModelName() string { return "canned" }

func newTestServer(t *testing.T, agents map[string]*config.AgentConfig) *Server {
	t.Helper()
	orch, err := agent.NewOrchestrator(&cannedLLM{reply: "hi there"}, memory.NewInMemoryConversationStore())
	require.NoError(t, err)

	cfg := config.ServerConfig{}
	cfg.SetDefaults()
	return New(cfg, agents, orch, observability.NewMetrics())
}

func defaultAgents() map[string]*config.AgentConfig {
	helper := &config.AgentConfig{}
	helper.SetDefaults("helper")
	private := &config.AgentConfig{Visibility: config.VisibilityPrivate, Owner: "alice"}
	private.SetDefaults("secret")
	return map[string]*config.AgentConfig{"helper": helper, "secret": private}
}

func postChat(t *testing.T, handler http.Handler, agentName, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/agents/"+agentName+"/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChat_Success(t *testing.T) {
	srv := newTestServer(t, defaultAgents())

	rec := postChat(t, srv.Router(), "helper", `{"user_id": "u1", "message": "hello"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "helper", resp.Agent)
	assert.Equal(t, "hi there", resp.Reply)
}

func TestChat_UnknownAgent(t *testing.T) {
	srv := newTestServer(t, defaultAgents())
	rec := postChat(t, srv.Router(), "nobody", `{"user_id": "u1", "message": "hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_Validation(t *testing.T) {
	srv := newTestServer(t, defaultAgents())
	handler := srv.Router()

	tests := []struct {
		name string
		body string
	}{
		{"missing user_id", `{"message": "hello"}`},
		{"missing message", `{"user_id": "u1"}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postChat(t, handler, "helper", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestChat_PrivateAgentOwnerOnly(t *testing.T) {
	srv := newTestServer(t, defaultAgents())
	handler := srv.Router()

	rec := postChat(t, handler, "secret", `{"user_id": "bob", "message": "hello"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postChat(t, handler, "secret", `{"user_id": "alice", "message": "hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListAgents_PublicOnly(t *testing.T) {
	srv := newTestServer(t, defaultAgents())

	req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Agents []struct {
			Name string `json:"name"`
		} `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Agents, 1)
	assert.Equal(t, "helper", resp.Agents[0].Name)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, defaultAgents())
	handler := srv.Router()

	// One successful turn so the counter exists.
	postChat(t, handler, "helper", `{"user_id": "u1", "message": "hello"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "parley_turns_total")
}
