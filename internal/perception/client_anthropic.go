package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finassist/internal/logging"
	"finassist/internal/types"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultAnthropicModel   = "claude-sonnet-4-5"
	anthropicVersion        = "2023-06-01"
)

// AnthropicClient implements Provider for the Anthropic Messages API.
type AnthropicClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	textOnly    bool
	httpClient  *http.Client
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:      apiKey,
		BaseURL:     defaultAnthropicBaseURL,
		Model:       defaultAnthropicModel,
		Timeout:     30 * time.Second,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
}

// NewAnthropicClient creates a new Anthropic client with default config.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return NewAnthropicClientWithConfig(DefaultAnthropicConfig(apiKey))
}

// NewAnthropicClientWithConfig creates a new Anthropic client with custom config.
func NewAnthropicClientWithConfig(cfg AnthropicConfig) *AnthropicClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &AnthropicClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		textOnly:    cfg.TextOnly,
		httpClient:  httpClient,
	}
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string { return string(ProviderAnthropic) }

// SetModel changes the model used for subsequent requests.
func (c *AnthropicClient) SetModel(model string) { c.model = model }

// GetModel returns the current model.
func (c *AnthropicClient) GetModel() string { return c.model }

// Classify sends the conversation and the action tools to the Messages API.
func (c *AnthropicClient) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	msgs := historyMessages(req.History, req.Message)
	reqBody := AnthropicRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      req.SystemContext,
		Messages:    make([]AnthropicMessage, 0, len(msgs)),
		Temperature: c.temperature,
	}
	for _, m := range msgs {
		reqBody.Messages = append(reqBody.Messages, AnthropicMessage{Role: string(m.Role), Content: m.Content})
	}
	if !c.textOnly {
		for _, t := range req.Tools {
			reqBody.Tools = append(reqBody.Tools, AnthropicTool{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	logging.PerceptionDebug("[Anthropic] request model=%s messages=%d tools=%d", c.model, len(reqBody.Messages), len(reqBody.Tools))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var anthropicResp AnthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if anthropicResp.Error != nil {
		return nil, fmt.Errorf("API error (%s): %s", anthropicResp.Error.Type, anthropicResp.Error.Message)
	}

	var text strings.Builder
	var calls []ToolCall
	for _, block := range anthropicResp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			calls = append(calls, ToolCall{ID: block.ID, Name: block.Name, Input: block.Input})
		}
	}

	usage := types.UsageMetadata{
		InputTokens:  anthropicResp.Usage.InputTokens,
		OutputTokens: anthropicResp.Usage.OutputTokens,
		TotalTokens:  anthropicResp.Usage.InputTokens + anthropicResp.Usage.OutputTokens,
	}
	model := anthropicResp.Model
	if model == "" {
		model = c.model
	}
	logging.PerceptionDebug("[Anthropic] stop_reason=%s tool_calls=%d", anthropicResp.StopReason, len(calls))
	return resultFromToolCalls(strings.TrimSpace(text.String()), model, calls, req.Now, usage), nil
}
