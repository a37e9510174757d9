package perception

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/types"
)

// stubProvider returns canned results and counts calls.
type stubProvider struct {
	name  string
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context) (*ClassifyResult, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Classify(ctx context.Context, _ ClassifyRequest) (*ClassifyResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(ctx)
}

func (s *stubProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recorder struct {
	mu       sync.Mutex
	tracked  []string
	failures []string
}

func (r *recorder) Track(_ context.Context, provider, model string, input, output int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked = append(r.tracked, provider+"/"+model)
}

func (r *recorder) TrackFailure(provider, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, provider+":"+kind)
}

func TestGuardedProvider_SuccessTracksUsage(t *testing.T) {
	rec := &recorder{}
	inner := &stubProvider{name: "openai", fn: func(context.Context) (*ClassifyResult, error) {
		return &ClassifyResult{Text: "hi", Model: "gpt", Usage: types.UsageMetadata{InputTokens: 3, OutputTokens: 4}}, nil
	}}
	g := NewGuardedProvider(inner, GuardOptions{Timeout: time.Second, Breaker: &BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, Usage: rec})

	res, err := g.Classify(context.Background(), ClassifyRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Text)
	assert.Equal(t, "openai", g.Name())
	assert.Equal(t, []string{"openai/gpt"}, rec.tracked)
	assert.Empty(t, rec.failures)
}

func TestGuardedProvider_TimeoutIsUnavailable(t *testing.T) {
	rec := &recorder{}
	inner := &stubProvider{name: "slow", fn: func(ctx context.Context) (*ClassifyResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	g := NewGuardedProvider(inner, GuardOptions{Timeout: 20 * time.Millisecond, Usage: rec})

	_, err := g.Classify(context.Background(), ClassifyRequest{})
	require.Error(t, err)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrUnavailable, pe.Kind)
	assert.Equal(t, []string{"slow:unavailable"}, rec.failures)
}

func TestGuardedProvider_CallerCancellationPassesThrough(t *testing.T) {
	inner := &stubProvider{name: "p", fn: func(ctx context.Context) (*ClassifyResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	g := NewGuardedProvider(inner, GuardOptions{Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Classify(ctx, ClassifyRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	var pe *ProviderError
	assert.False(t, errors.As(err, &pe))
}

func TestGuardedProvider_BreakerOpensOnOutages(t *testing.T) {
	inner := &stubProvider{name: "down", fn: func(context.Context) (*ClassifyResult, error) {
		return nil, &HTTPStatusError{StatusCode: 503, Body: "maintenance"}
	}}
	g := NewGuardedProvider(inner, GuardOptions{Breaker: &BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}})

	for i := 0; i < 2; i++ {
		_, err := g.Classify(context.Background(), ClassifyRequest{})
		assert.Equal(t, ErrUnavailable, KindOf(err))
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	_, err := g.Classify(context.Background(), ClassifyRequest{})
	assert.Equal(t, ErrUnavailable, KindOf(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.Calls())
}

func TestGuardedProvider_AuthFailuresDoNotTripBreaker(t *testing.T) {
	inner := &stubProvider{name: "badkey", fn: func(context.Context) (*ClassifyResult, error) {
		return nil, fmt.Errorf("badkey: %w", ErrMissingAPIKey)
	}}
	g := NewGuardedProvider(inner, GuardOptions{Breaker: &BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}})

	for i := 0; i < 5; i++ {
		_, err := g.Classify(context.Background(), ClassifyRequest{})
		assert.Equal(t, ErrAuth, KindOf(err))
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
	assert.Equal(t, 5, inner.Calls())
}
