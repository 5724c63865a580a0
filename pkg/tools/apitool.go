package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/llms"
)

// APICallTimeout bounds configured REST/GraphQL tool calls.
const APICallTimeout = 15 * time.Second

// APIResponseLimit truncates captured response bodies.
const APIResponseLimit = 10000

// APIExecutor invokes user-configured REST/GraphQL tools. When a tool's
// expected body shape is unknown, the language model synthesizes the request
// body from the tool's stored schema text.
type APIExecutor struct {
	llm        llms.Provider
	httpClient *http.Client
}

// NewAPIExecutor creates an executor that synthesizes bodies via the given
// model provider.
func NewAPIExecutor(llm llms.Provider) *APIExecutor {
	return &APIExecutor{
		llm:        llm,
		httpClient: &http.Client{Timeout: APICallTimeout},
	}
}

// Invoke calls the configured tool for the user's message and returns the
// response text. Success and HTTP-error bodies are both surfaced (truncated)
// so the model can explain failures; only a transport-level failure produces
// the dedicated unreachable marker.
func (e *APIExecutor) Invoke(ctx context.Context, cfg config.APIToolConfig, message string) string {
	body := e.buildBody(ctx, cfg, message)

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}

	var reader io.Reader
	if body != "" && method != http.MethodGet && method != http.MethodHead {
		reader = bytes.NewReader([]byte(body))
	}

	callCtx, cancel := context.WithTimeout(ctx, APICallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, cfg.URL, reader)
	if err != nil {
		slog.Debug("Invalid API tool request",
			"tool", cfg.Name,
			"error", err)
		return ""
	}

	req.Header.Set("Content-Type", "application/json")
	for name, value := range BuildServerHeaders(cfg.Headers, cfg.BearerToken) {
		req.Header.Set(name, value)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		slog.Debug("API tool unreachable",
			"tool", cfg.Name,
			"error", err)
		return fmt.Sprintf("Failed to reach the %s API.", cfg.Name)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Sprintf("Failed to reach the %s API.", cfg.Name)
	}

	text := truncate(strings.TrimSpace(string(respBody)), APIResponseLimit)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Error bodies still reach the model so it can explain the failure
		return fmt.Sprintf("The %s API returned status %d: %s", cfg.Name, resp.StatusCode, text)
	}

	return text
}

// buildBody constructs the request body per the tool's declared kind.
func (e *APIExecutor) buildBody(ctx context.Context, cfg config.APIToolConfig, message string) string {
	switch cfg.Kind {
	case config.APIToolGraphQL:
		query := e.synthesizeGraphQL(ctx, cfg, message)
		if query == "" {
			return ""
		}
		payload, err := json.Marshal(map[string]string{"query": query})
		if err != nil {
			return ""
		}
		return string(payload)

	case config.APIToolOpenAPI:
		return e.synthesizeJSONBody(ctx, cfg, message)

	default:
		// Unknown expected shape: send the raw message under the
		// conventional keys.
		payload, err := json.Marshal(map[string]string{
			"query":   message,
			"message": message,
			"text":    message,
		})
		if err != nil {
			return ""
		}
		return string(payload)
	}
}

// synthesizeGraphQL asks the model for a query string matching the tool's
// stored schema. An empty result degrades to no body, not an error.
func (e *APIExecutor) synthesizeGraphQL(ctx context.Context, cfg config.APIToolConfig, message string) string {
	schemaText := cfg.Schema
	if schemaText == "" {
		schemaText = cfg.Instructions
	}

	prompt := fmt.Sprintf(
		"Write a GraphQL query answering the user's request.\n\nSchema:\n%s\n\nUser request: %s\n\n"+
			"Respond with ONLY the query string, no explanations and no code fences.",
		schemaText, message)

	response, err := e.llm.Generate(ctx, []llms.Turn{{Role: llms.RoleUser, Content: prompt}},
		llms.GenerateOptions{MaxOutputTokens: 512})
	if err != nil {
		slog.Debug("GraphQL synthesis failed",
			"tool", cfg.Name,
			"error", err)
		return ""
	}

	return StripCodeFences(response)
}

// synthesizeJSONBody asks the model for a JSON payload matching the tool's
// schema. Unparsable output degrades to an empty body.
func (e *APIExecutor) synthesizeJSONBody(ctx context.Context, cfg config.APIToolConfig, message string) string {
	schemaText := cfg.Schema
	if schemaText == "" {
		schemaText = cfg.Instructions
	}

	prompt := fmt.Sprintf(
		"Write a JSON request body for this API answering the user's request.\n\nAPI description:\n%s\n\n"+
			"User request: %s\n\nRespond with ONLY the JSON object, no explanations and no code fences.",
		schemaText, message)

	response, err := e.llm.Generate(ctx, []llms.Turn{{Role: llms.RoleUser, Content: prompt}},
		llms.GenerateOptions{MaxOutputTokens: 512})
	if err != nil {
		slog.Debug("JSON body synthesis failed",
			"tool", cfg.Name,
			"error", err)
		return ""
	}

	body := StripCodeFences(response)
	if !json.Valid([]byte(body)) {
		slog.Debug("Synthesized body is not valid JSON", "tool", cfg.Name)
		return ""
	}

	return body
}
