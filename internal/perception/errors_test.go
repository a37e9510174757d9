package perception

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"rate limited", &HTTPStatusError{StatusCode: 429, Body: "slow down"}, ErrQuota},
		{"forbidden", &HTTPStatusError{StatusCode: 403, Body: "forbidden"}, ErrQuota},
		{"rejected key is quota", &HTTPStatusError{StatusCode: 401, Body: `{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`}, ErrQuota},
		{"openai rejected key", &openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key provided: sk-****. You can find your API key at https://platform.openai.com/account/api-keys."}, ErrQuota},
		{"credential text without status", errors.New("unauthenticated: invalid api key"), ErrAuth},
		{"server error", &HTTPStatusError{StatusCode: 503, Body: "try later"}, ErrUnavailable},
		{"model missing", &HTTPStatusError{StatusCode: 404, Body: "no model"}, ErrNotFound},
		{"missing key", ErrMissingAPIKey, ErrAuth},
		{"deadline", fmt.Errorf("request failed: %w", context.DeadlineExceeded), ErrUnavailable},
		{"breaker open", gobreaker.ErrOpenState, ErrUnavailable},
		{"breaker half-open", gobreaker.ErrTooManyRequests, ErrUnavailable},
		{"quota vocabulary", errors.New("insufficient_quota: check your plan and billing details"), ErrQuota},
		{"overloaded vocabulary", errors.New("Overloaded"), ErrUnavailable},
		{"not found vocabulary", errors.New("The model `gpt-x` does not exist"), ErrNotFound},
		{"unknown", errors.New("something odd"), ErrUnknown},
		{"openai status", fmt.Errorf("chat completion failed: %w", &openai.APIError{HTTPStatusCode: 429, Message: "Rate limit reached"}), ErrQuota},
		{"openai 5xx", &openai.APIError{HTTPStatusCode: 500, Message: "boom"}, ErrUnavailable},
		{"genai status", fmt.Errorf("GenAI generate failed: %w", genai.APIError{Code: 429, Message: "Resource has been exhausted", Status: "RESOURCE_EXHAUSTED"}), ErrQuota},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := ClassifyError("test", tt.err)
			require.NotNil(t, pe)
			assert.Equal(t, tt.want, pe.Kind)
			assert.Equal(t, "test", pe.Provider)
			assert.ErrorIs(t, pe, tt.err)
		})
	}
}

func TestClassifyError_NilAndIdempotent(t *testing.T) {
	assert.Nil(t, ClassifyError("x", nil))

	first := ClassifyError("primary", &HTTPStatusError{StatusCode: 429})
	again := ClassifyError("other", fmt.Errorf("wrapped: %w", first))
	assert.Same(t, first, again)
	assert.Equal(t, 429, again.StatusCode)
}

func TestErrorKind_Recoverable(t *testing.T) {
	assert.True(t, ErrQuota.Recoverable())
	assert.True(t, ErrUnavailable.Recoverable())
	assert.False(t, ErrAuth.Recoverable())
	assert.False(t, ErrNotFound.Recoverable())
	assert.False(t, ErrUnknown.Recoverable())
}
