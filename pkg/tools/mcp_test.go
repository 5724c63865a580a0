package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolsListResult = `{
	"tools": [
		{
			"name": "get-docs",
			"description": "Fetch documentation",
			"inputSchema": {
				"type": "object",
				"properties": {
					"topic": {"type": "string", "description": "What to look up"},
					"limit": {"type": "integer", "description": "Max entries"}
				},
				"required": ["topic"]
			}
		}
	]
}`

func mcpHandler(t *testing.T, listResult, callResult string, rpcErr *Error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)

		resp := Response{JSONRPC: "2.0", ID: req.ID}
		switch req.Method {
		case "tools/list":
			resp.Result = json.RawMessage(listResult)
		case "tools/call":
			if rpcErr != nil {
				resp.Error = rpcErr
			} else {
				resp.Result = json.RawMessage(callResult)
			}
		default:
			t.Fatalf("unexpected method %q", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestMCPClient_Discover(t *testing.T) {
	srv := httptest.NewServer(mcpHandler(t, toolsListResult, "", nil))
	defer srv.Close()

	client := NewMCPClient()
	descriptors, err := client.Discover(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, "get-docs", d.Name)
	assert.Equal(t, "Fetch documentation", d.Description)
	require.Len(t, d.Parameters, 2)

	byName := map[string]ToolParameter{}
	for _, p := range d.Parameters {
		byName[p.Name] = p
	}
	assert.True(t, byName["topic"].Required)
	assert.Equal(t, "string", byName["topic"].Type)
	assert.False(t, byName["limit"].Required)
}

func TestMCPClient_DiscoverPropagatesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewMCPClient()
	_, err := client.Discover(context.Background(), srv.URL, nil)
	assert.Error(t, err, "discovery failures must be visible to the schema cache")
}

func TestMCPClient_Invoke(t *testing.T) {
	callResult := `{"content": [{"type": "text", "text": "first"}, {"type": "text", "text": "second"}]}`
	srv := httptest.NewServer(mcpHandler(t, toolsListResult, callResult, nil))
	defer srv.Close()

	client := NewMCPClient()
	got := client.Invoke(context.Background(), srv.URL, nil, "get-docs", map[string]any{"topic": "x"})
	assert.Equal(t, "first\nsecond", got)
}

func TestMCPClient_InvokeSwallowsErrors(t *testing.T) {
	t.Run("rpc error", func(t *testing.T) {
		srv := httptest.NewServer(mcpHandler(t, toolsListResult, "", &Error{Code: -32000, Message: "tool exploded"}))
		defer srv.Close()

		client := NewMCPClient()
		got := client.Invoke(context.Background(), srv.URL, nil, "get-docs", nil)
		assert.Empty(t, got)
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client := NewMCPClient()
		got := client.Invoke(context.Background(), srv.URL, nil, "get-docs", nil)
		assert.Empty(t, got)
	})
}

func TestMCPClient_SSEFraming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := Response{JSONRPC: "2.0", ID: 1, Result: json.RawMessage(toolsListResult)}
		data, err := json.Marshal(resp)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
	}))
	defer srv.Close()

	client := NewMCPClient()
	descriptors, err := client.Discover(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "get-docs", descriptors[0].Name)
}

func TestMCPClient_ForwardsHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		resp := Response{JSONRPC: "2.0", ID: 1, Result: json.RawMessage(`{"tools": []}`)}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewMCPClient()
	_, err := client.Discover(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer tok"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestExtractContent(t *testing.T) {
	t.Run("unexpected shape falls back to raw", func(t *testing.T) {
		raw := json.RawMessage(`{"value": 42}`)
		assert.Equal(t, `{"value": 42}`, extractContent(raw))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, extractContent(nil))
	})
}
