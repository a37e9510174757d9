// Package perception turns a user's free text into at most one typed
// FinancialAction. It holds the generative provider clients, the guard that
// bounds and classifies their failures, and the deterministic heuristic
// extractor used when no provider can answer.
package perception

import (
	"context"
	"time"

	"finassist/internal/logging"
	"finassist/internal/types"
)

// ToolDefinition describes a tool that the provider can invoke.
type ToolDefinition = types.ToolDefinition

// ToolCall represents a tool invocation requested by the provider.
type ToolCall = types.ToolCall

// ProviderName identifies a provider backend in configuration.
type ProviderName string

const (
	ProviderAnthropic  ProviderName = "anthropic"
	ProviderOpenAI     ProviderName = "openai"
	ProviderGemini     ProviderName = "gemini"
	ProviderXAI        ProviderName = "xai"
	ProviderOpenRouter ProviderName = "openrouter"
	ProviderGroq       ProviderName = "groq"
	ProviderCompat     ProviderName = "compat"
)

// Provider is a generative classification service.
type Provider interface {
	Name() string
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error)
}

// ClassifyRequest carries everything a provider needs to classify a message.
type ClassifyRequest struct {
	UserID        string
	SystemContext string
	History       []types.ConversationTurn
	Message       string
	// Tools is the action schema. Empty means text-only.
	Tools []ToolDefinition
	// Now anchors relative dates in decoded tool arguments.
	Now time.Time
}

// ClassifyResult is a provider's answer. Action is nil when the provider
// replied with free text only.
type ClassifyResult struct {
	Text     string
	Action   types.FinancialAction
	ToolName string
	Model    string
	Usage    types.UsageMetadata
}

// resultFromToolCalls decodes the first tool call into an action. Later calls
// are ignored and an undecodable call degrades to free text.
func resultFromToolCalls(text, model string, calls []ToolCall, now time.Time, usage types.UsageMetadata) *ClassifyResult {
	res := &ClassifyResult{Text: text, Model: model, Usage: usage}
	if len(calls) == 0 {
		return res
	}
	if len(calls) > 1 {
		logging.PerceptionDebug("%d tool calls returned, using %s", len(calls), calls[0].Name)
	}
	action, err := DecodeToolCall(calls[0], now)
	if err != nil {
		logging.PerceptionDebug("ignoring undecodable tool call %s: %v", calls[0].Name, err)
		return res
	}
	res.Action = action
	res.ToolName = calls[0].Name
	return res
}
