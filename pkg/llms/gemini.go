package llms

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
	"github.com/kadirpekel/parley/pkg/httpclient"
)

// GeminiProvider implements Provider for the Google Gemini REST API.
type GeminiProvider struct {
	config     *config.LLMConfig
	httpClient *httpclient.Client
}

// GeminiRequest represents the request payload for Gemini API
type GeminiRequest struct {
	Contents          []GeminiContent         `json:"contents"`
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []GeminiToolSet         `json:"tools,omitempty"`
}

// GeminiGenerationConfig configures generation parameters
type GeminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// GeminiContent represents content in a message
type GeminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of content
type GeminiPart struct {
	Text string `json:"text,omitempty"`
}

// GeminiToolSet represents a set of built-in tools
type GeminiToolSet struct {
	// No omitempty: the API expects an explicit empty object.
	GoogleSearch map[string]any `json:"google_search"`
}

// GeminiResponse represents the response from Gemini API
type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
	Error      *GeminiError      `json:"error,omitempty"`
}

// GeminiCandidate represents a candidate response
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// GeminiError represents an API error
type GeminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// NewGeminiProviderFromConfig creates a new Gemini provider from configuration
func NewGeminiProviderFromConfig(cfg *config.LLMConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	return &GeminiProvider{
		config: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
		),
	}, nil
}

// Generate calls generateContent and returns the candidate text.
// A response with no candidates yields an empty string, not an error.
func (p *GeminiProvider) Generate(ctx context.Context, turns []Turn, opts GenerateOptions) (string, error) {
	req := p.buildRequest(turns, opts)

	model := opts.Model
	if model == "" {
		model = p.config.Model
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		p.config.Host, model, p.config.APIKey)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("Gemini API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	if geminiResp.Error != nil {
		return "", fmt.Errorf("Gemini API error: %s", geminiResp.Error.Message)
	}

	if len(geminiResp.Candidates) == 0 {
		slog.Debug("Gemini returned no candidates", "model", p.config.Model)
		return "", nil
	}

	var textParts []string
	for _, part := range geminiResp.Candidates[0].Parts() {
		if part.Text != "" {
			textParts = append(textParts, part.Text)
		}
	}

	return strings.Join(textParts, ""), nil
}

// Parts returns the candidate's content parts.
func (c *GeminiCandidate) Parts() []GeminiPart {
	return c.Content.Parts
}

// GetModelName returns the model name
func (p *GeminiProvider) GetModelName() string {
	return p.config.Model
}

func (p *GeminiProvider) buildRequest(turns []Turn, opts GenerateOptions) *GeminiRequest {
	req := &GeminiRequest{
		Contents:         p.convertTurns(turns),
		GenerationConfig: p.buildGenerationConfig(opts),
	}

	if opts.SystemInstruction != "" {
		req.SystemInstruction = &GeminiContent{
			Parts: []GeminiPart{{Text: opts.SystemInstruction}},
		}
	}

	if opts.WebSearch {
		req.Tools = []GeminiToolSet{
			{GoogleSearch: map[string]any{}},
		}
	}

	return req
}

func (p *GeminiProvider) buildGenerationConfig(opts GenerateOptions) *GeminiGenerationConfig {
	cfg := &GeminiGenerationConfig{
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = p.config.MaxTokens
	}

	// Gemini uses its own default when temperature is omitted
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = p.config.Temperature
	}
	if temperature > 0 {
		cfg.Temperature = &temperature
	}

	return cfg
}

func (p *GeminiProvider) convertTurns(turns []Turn) []GeminiContent {
	var contents []GeminiContent

	for _, turn := range turns {
		if turn.Content == "" {
			continue
		}

		role := string(turn.Role)
		if role != "user" && role != "model" {
			role = "user"
		}

		contents = append(contents, GeminiContent{
			Role:  role,
			Parts: []GeminiPart{{Text: turn.Content}},
		})
	}

	return contents
}

var _ Provider = (*GeminiProvider)(nil)
