package perception

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"finassist/internal/logging"
	"finassist/internal/types"
)

// Base URLs of the OpenAI-compatible providers.
const (
	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultXAIBaseURL        = "https://api.x.ai/v1"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultGroqBaseURL       = "https://api.groq.com/openai/v1"
)

// Default models of the OpenAI-compatible providers.
const (
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultXAIModel        = "grok-3-mini"
	defaultOpenRouterModel = "openai/gpt-4o-mini"
	defaultGroqModel       = "llama-3.3-70b-versatile"
)

// OpenAIClient implements Provider for OpenAI and every server speaking the
// same chat-completions protocol.
type OpenAIClient struct {
	client      *openai.Client
	provider    ProviderName
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	textOnly    bool
}

// DefaultOpenAIConfig returns sensible defaults for api.openai.com.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		Provider:    ProviderOpenAI,
		APIKey:      apiKey,
		BaseURL:     defaultOpenAIBaseURL,
		Model:       defaultOpenAIModel,
		Timeout:     30 * time.Second,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
}

// NewOpenAIClient creates a new OpenAI client with default config.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return NewOpenAIClientWithConfig(DefaultOpenAIConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI-compatible client.
func NewOpenAIClientWithConfig(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(oc),
		provider:    cfg.Provider,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		textOnly:    cfg.TextOnly,
	}
}

// Name returns the configured provider name (openai, xai, groq...).
func (c *OpenAIClient) Name() string { return string(c.provider) }

// SetModel changes the model used for subsequent requests.
func (c *OpenAIClient) SetModel(model string) { c.model = model }

// GetModel returns the current model.
func (c *OpenAIClient) GetModel() string { return c.model }

// Classify sends the conversation as a chat completion, offering the action
// tools unless the client is text-only.
func (c *OpenAIClient) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	if c.apiKey == "" && c.provider != ProviderCompat {
		return nil, ErrMissingAPIKey
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemContext != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemContext,
		})
	}
	for _, m := range historyMessages(req.History, req.Message) {
		role := openai.ChatMessageRoleUser
		if m.Role == types.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(c.temperature),
		MaxTokens:   c.maxTokens,
	}
	if !c.textOnly {
		for _, t := range req.Tools {
			chatReq.Tools = append(chatReq.Tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				},
			})
		}
	}

	logging.PerceptionDebug("[%s] request model=%s messages=%d tools=%d", c.provider, c.model, len(messages), len(chatReq.Tools))

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0].Message
	calls := make([]ToolCall, 0, len(choice.ToolCalls))
	for _, tc := range choice.ToolCalls {
		input, err := parseToolArguments(tc.Function.Arguments)
		if err != nil {
			logging.PerceptionDebug("[%s] skipping tool call %s: %v", c.provider, tc.Function.Name, err)
			continue
		}
		calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}

	usage := types.UsageMetadata{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return resultFromToolCalls(strings.TrimSpace(choice.Content), model, calls, req.Now, usage), nil
}
