package perception

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"google.golang.org/genai"

	"finassist/internal/logging"
	"finassist/internal/types"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements Provider for Google's Gemini API.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
	textOnly    bool
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:      apiKey,
		Model:       defaultGeminiModel,
		Timeout:     30 * time.Second,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
}

// NewGeminiClient creates a new Gemini client with default config.
func NewGeminiClient(apiKey string) (*GeminiClient, error) {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a new Gemini client with custom config.
// A missing key yields a client whose calls fail with ErrMissingAPIKey.
func NewGeminiClientWithConfig(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	c := &GeminiClient{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		textOnly:    cfg.TextOnly,
	}
	if cfg.APIKey == "" {
		return c, nil
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	c.client = client
	return c, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string { return string(ProviderGemini) }

// SetModel changes the model used for subsequent requests.
func (c *GeminiClient) SetModel(model string) { c.model = model }

// GetModel returns the current model.
func (c *GeminiClient) GetModel() string { return c.model }

// Classify sends the conversation to generateContent with the action tools
// declared as functions.
func (c *GeminiClient) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	if c.client == nil {
		return nil, ErrMissingAPIKey
	}

	var contents []*genai.Content
	for _, m := range historyMessages(req.History, req.Message) {
		role := genai.Role(genai.RoleUser)
		if m.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	temp := float32(c.temperature)
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(c.maxTokens),
	}
	if req.SystemContext != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.SystemContext, genai.RoleUser)
	}
	if !c.textOnly && len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenAISchema(t.InputSchema),
			})
		}
		genCfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	logging.PerceptionDebug("[Gemini] request model=%s contents=%d", c.model, len(contents))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	var calls []ToolCall
	for _, fc := range resp.FunctionCalls() {
		if fc == nil {
			continue
		}
		calls = append(calls, ToolCall{ID: fc.ID, Name: fc.Name, Input: fc.Args})
	}

	var usage types.UsageMetadata
	if resp.UsageMetadata != nil {
		usage = types.UsageMetadata{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	model := resp.ModelVersion
	if model == "" {
		model = c.model
	}
	return resultFromToolCalls(strings.TrimSpace(geminiText(resp)), model, calls, req.Now, usage), nil
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// toGenAISchema converts a JSON schema map into genai's typed schema. Objects
// without properties become nil because the API rejects empty objects.
func toGenAISchema(m map[string]interface{}) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	switch m["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	default:
		s.Type = genai.TypeString
	}
	if enum, ok := m["enum"].([]string); ok {
		s.Enum = append([]string(nil), enum...)
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = append([]string(nil), req...)
	}
	if props, ok := m["properties"].(map[string]interface{}); ok {
		if len(props) == 0 {
			return nil
		}
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s.Properties = make(map[string]*genai.Schema, len(props))
		s.PropertyOrdering = keys
		for _, k := range keys {
			if pm, ok := props[k].(map[string]interface{}); ok {
				s.Properties[k] = toGenAISchema(pm)
			}
		}
	}
	return s
}
