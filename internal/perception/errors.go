package perception

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

// ErrorKind classifies a provider failure. It drives fallback routing.
type ErrorKind string

const (
	ErrQuota       ErrorKind = "quota"
	ErrAuth        ErrorKind = "auth"
	ErrUnavailable ErrorKind = "unavailable"
	ErrNotFound    ErrorKind = "not_found"
	ErrUnknown     ErrorKind = "unknown"
)

// Recoverable reports whether a rescue provider may be tried.
func (k ErrorKind) Recoverable() bool {
	return k == ErrQuota || k == ErrUnavailable
}

// ErrMissingAPIKey is returned by clients constructed without a key.
var ErrMissingAPIKey = errors.New("API key not configured")

// ProviderError is a classified provider failure.
type ProviderError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (%s, status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// HTTPStatusError is returned by the net/http based clients for non-2xx
// responses.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

var (
	authVocabulary = []string{
		"invalid api key", "invalid x-api-key", "incorrect api key", "api key not valid",
		"api_key_invalid", "unauthenticated", "authentication_error", "api key not configured",
	}
	quotaVocabulary = []string{
		"quota", "billing", "credit", "rate limit", "rate_limit", "ratelimit",
		"too many requests", "resource_exhausted", "insufficient_quota",
	}
	unavailableVocabulary = []string{
		"service unavailable", "unavailable", "overloaded", "timeout", "timed out",
		"connection refused", "connection reset", "bad gateway",
	}
	notFoundVocabulary = []string{"model not found", "not_found", "does not exist", "no such model"}
)

// ClassifyError maps any provider failure onto an ErrorKind. A status code
// decides before message content, so a 401 carrying "invalid api key" is
// Quota. Auth is left for failures that never reached the provider.
func ClassifyError(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	status := statusCode(err)
	msg := strings.ToLower(err.Error())
	out := &ProviderError{Provider: provider, StatusCode: status, Err: err}

	switch {
	case status == 429 || status == 403 || status == 401:
		out.Kind = ErrQuota
	case status >= 500 || isTransportFailure(err):
		out.Kind = ErrUnavailable
	case status == 404:
		out.Kind = ErrNotFound
	case errors.Is(err, ErrMissingAPIKey) || (status == 0 && containsAny(msg, authVocabulary)):
		out.Kind = ErrAuth
	case containsAny(msg, quotaVocabulary):
		out.Kind = ErrQuota
	case containsAny(msg, unavailableVocabulary):
		out.Kind = ErrUnavailable
	case containsAny(msg, notFoundVocabulary):
		out.Kind = ErrNotFound
	default:
		out.Kind = ErrUnknown
	}
	return out
}

// KindOf returns the ErrorKind of err, classifying it if needed.
func KindOf(err error) ErrorKind {
	if pe := ClassifyError("", err); pe != nil {
		return pe.Kind
	}
	return ""
}

func statusCode(err error) int {
	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	var oaErr *openai.APIError
	if errors.As(err, &oaErr) {
		return oaErr.HTTPStatusCode
	}
	var oaReqErr *openai.RequestError
	if errors.As(err, &oaReqErr) {
		return oaReqErr.HTTPStatusCode
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) {
		return gErrPtr.Code
	}
	return 0
}

func isTransportFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
