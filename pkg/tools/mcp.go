package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/parley/pkg/httpclient"
)

// DefaultCallTimeout bounds MCP discovery and invocation requests.
const DefaultCallTimeout = 15 * time.Second

// MCPClient speaks the minimal JSON-RPC tool protocol (tools/list,
// tools/call) against remote MCP servers. Transport and parse failures are
// swallowed into empty results; a tool server being down must never fail the
// turn.
type MCPClient struct {
	httpClient *httpclient.Client
}

// Request represents an MCP request
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Response represents an MCP response
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents an MCP error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CallParams represents parameters for tools/call
type CallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NewMCPClient creates an MCP client with retrying transport.
func NewMCPClient() *MCPClient {
	return &MCPClient{
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{
				Timeout: DefaultCallTimeout,
			}),
			httpclient.WithMaxRetries(2),
			httpclient.WithBaseDelay(time.Second),
		),
	}
}

// Discover issues tools/list and parses the advertised tool descriptors.
// The error return lets the schema cache distinguish a failed refresh from a
// server that genuinely has no tools.
func (c *MCPClient) Discover(ctx context.Context, endpoint string, headers map[string]string) ([]ToolDescriptor, error) {
	response, err := c.makeRequest(ctx, endpoint, headers, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}

	if response.Error != nil {
		return nil, fmt.Errorf("MCP error: %s", response.Error.Message)
	}

	var result struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(response.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse tools/list result: %w", err)
	}

	var descriptors []ToolDescriptor
	for _, tool := range result.Tools {
		descriptor := ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
		}

		if properties, ok := tool.InputSchema["properties"].(map[string]any); ok {
			for paramName, paramData := range properties {
				param, ok := paramData.(map[string]any)
				if !ok {
					continue
				}
				descriptor.Parameters = append(descriptor.Parameters, ToolParameter{
					Name:        paramName,
					Type:        getString(param, "type"),
					Description: getString(param, "description"),
					Required:    isRequired(tool.InputSchema, paramName),
				})
			}
		}

		descriptors = append(descriptors, descriptor)
	}

	return descriptors, nil
}

// Invoke issues tools/call and extracts the textual result. Any failure,
// including a JSON-RPC error field, yields an empty string.
func (c *MCPClient) Invoke(ctx context.Context, endpoint string, headers map[string]string, toolName string, args map[string]any) string {
	response, err := c.makeRequest(ctx, endpoint, headers, "tools/call", CallParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		slog.Debug("MCP tool call failed",
			"endpoint", endpoint,
			"tool", toolName,
			"error", err)
		return ""
	}

	if response.Error != nil {
		slog.Debug("MCP tool call returned error",
			"endpoint", endpoint,
			"tool", toolName,
			"code", response.Error.Code,
			"message", response.Error.Message)
		return ""
	}

	return strings.TrimSpace(extractContent(response.Result))
}

func (c *MCPClient) makeRequest(ctx context.Context, endpoint string, headers map[string]string, method string, params any) (*Response, error) {
	request := Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, DefaultCallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, strings.NewReader(string(requestBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, httpResp.Status)
	}

	responseBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Try direct JSON parsing first
	var mcpResp Response
	if err := json.Unmarshal(responseBody, &mcpResp); err == nil {
		return &mcpResp, nil
	}

	// Some servers frame the response as SSE
	for _, line := range strings.Split(string(responseBody), "\n") {
		if strings.HasPrefix(line, "data: ") {
			jsonData := strings.TrimPrefix(line, "data: ")
			if err := json.Unmarshal([]byte(jsonData), &mcpResp); err == nil {
				return &mcpResp, nil
			}
		}
	}

	return nil, fmt.Errorf("failed to parse response as JSON or SSE")
}

// extractContent reads result.content[].text, falling back to the raw
// result when the shape is unexpected.
func extractContent(result json.RawMessage) string {
	if len(result) == 0 {
		return ""
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(result, &parsed); err == nil && len(parsed.Content) > 0 {
		var content strings.Builder
		for _, item := range parsed.Content {
			if item.Text != "" {
				content.WriteString(item.Text)
				content.WriteString("\n")
			}
		}
		if content.Len() > 0 {
			return content.String()
		}
	}

	return string(result)
}

// Helper functions
func getString(m map[string]any, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

func isRequired(schema map[string]any, paramName string) bool {
	if required, ok := schema["required"].([]any); ok {
		for _, req := range required {
			if req == paramName {
				return true
			}
		}
	}
	return false
}
