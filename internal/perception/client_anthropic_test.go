package perception

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/types"
)

func testHistory() []types.ConversationTurn {
	return []types.ConversationTurn{
		{Role: types.RoleAssistant, Content: "orphan reply"},
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hello, how can I help?"},
	}
}

func TestAnthropicClient_ToolUse(t *testing.T) {
	var got AnthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Recording that."},
				{"type": "tool_use", "id": "tu_1", "name": "add_transaction",
				 "input": {"amount": 150, "type": "expense", "category": "Food", "description": "restaurant", "date": "2025-03-14"}}
			],
			"usage": {"input_tokens": 120, "output_tokens": 30}
		}`))
	}))
	defer server.Close()

	cfg := DefaultAnthropicConfig("test-key")
	cfg.BaseURL = server.URL
	client := NewAnthropicClientWithConfig(cfg)

	res, err := client.Classify(context.Background(), ClassifyRequest{
		SystemContext: "ctx",
		History:       testHistory(),
		Message:       "I spent 150 MAD at the restaurant yesterday",
		Tools:         FinancialTools(),
		Now:           fixedNow,
	})
	require.NoError(t, err)

	assert.Equal(t, "ctx", got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[0].Content)
	assert.Equal(t, "I spent 150 MAD at the restaurant yesterday", got.Messages[2].Content)
	assert.Len(t, got.Tools, len(types.AllActionKinds))

	assert.Equal(t, "Recording that.", res.Text)
	assert.Equal(t, "add_transaction", res.ToolName)
	assert.Equal(t, "claude-test", res.Model)
	assert.Equal(t, types.UsageMetadata{InputTokens: 120, OutputTokens: 30, TotalTokens: 150}, res.Usage)
	add, ok := res.Action.(types.AddTransaction)
	require.True(t, ok)
	assertAmount(t, "150", add.Amount)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), add.Date)
}

func TestAnthropicClient_TextOnlyOmitsTools(t *testing.T) {
	var raw map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Sure."}],"usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer server.Close()

	cfg := DefaultAnthropicConfig("k")
	cfg.BaseURL = server.URL
	cfg.TextOnly = true
	res, err := NewAnthropicClientWithConfig(cfg).Classify(context.Background(), ClassifyRequest{
		Message: "hello", Tools: FinancialTools(), Now: fixedNow,
	})
	require.NoError(t, err)
	_, hasTools := raw["tools"]
	assert.False(t, hasTools)
	assert.Equal(t, "Sure.", res.Text)
	assert.Nil(t, res.Action)
	assert.Equal(t, defaultAnthropicModel, res.Model)
}

func TestAnthropicClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}}`))
	}))
	defer server.Close()

	cfg := DefaultAnthropicConfig("k")
	cfg.BaseURL = server.URL
	_, err := NewAnthropicClientWithConfig(cfg).Classify(context.Background(), ClassifyRequest{Message: "hi"})
	require.Error(t, err)
	var httpErr *HTTPStatusError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, ErrQuota, KindOf(err))

	_, err = NewAnthropicClient("").Classify(context.Background(), ClassifyRequest{Message: "hi"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, ErrAuth, KindOf(err))
}
