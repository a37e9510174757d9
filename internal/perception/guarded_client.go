package perception

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"finassist/internal/logging"
)

// UsageRecorder receives token usage and classified failures.
// *usage.Tracker satisfies it.
type UsageRecorder interface {
	Track(ctx context.Context, provider, model string, input, output int)
	TrackFailure(provider, kind string)
}

// BreakerSettings configures the per-provider circuit breaker.
type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

// GuardOptions configures a GuardedProvider. A nil Breaker disables it.
type GuardOptions struct {
	Timeout time.Duration
	Breaker *BreakerSettings
	Usage   UsageRecorder
}

// GuardedProvider bounds a Provider with a deadline and a circuit breaker,
// records usage, and returns every failure as a *ProviderError.
type GuardedProvider struct {
	inner   Provider
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	usage   UsageRecorder
}

// NewGuardedProvider wraps p.
func NewGuardedProvider(p Provider, opts GuardOptions) *GuardedProvider {
	g := &GuardedProvider{inner: p, timeout: opts.Timeout, usage: opts.Usage}
	if opts.Breaker != nil {
		threshold := opts.Breaker.ConsecutiveFailures
		if threshold == 0 {
			threshold = 3
		}
		name := p.Name()
		g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: opts.Breaker.MaxRequests,
			Interval:    opts.Breaker.Interval,
			Timeout:     opts.Breaker.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.PerceptionWarn("circuit breaker %s: %s -> %s", name, from, to)
			},
			// Only outages count against the breaker. A bad request or a
			// rejected key is not fixed by waiting.
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				kind := ClassifyError(name, err).Kind
				return kind != ErrQuota && kind != ErrUnavailable
			},
		})
	}
	return g
}

// Name returns the wrapped provider's name.
func (g *GuardedProvider) Name() string { return g.inner.Name() }

// State reports the breaker state, or closed when no breaker is configured.
func (g *GuardedProvider) State() gobreaker.State {
	if g.cb == nil {
		return gobreaker.StateClosed
	}
	return g.cb.State()
}

// Classify calls the wrapped provider under the guard.
func (g *GuardedProvider) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	timer := logging.StartTimer(logging.CategoryPerception, "classify:"+g.Name())
	var (
		res *ClassifyResult
		err error
	)
	if g.cb != nil {
		var out interface{}
		out, err = g.cb.Execute(func() (interface{}, error) {
			return g.inner.Classify(callCtx, req)
		})
		if err == nil {
			res, _ = out.(*ClassifyResult)
		}
	} else {
		res, err = g.inner.Classify(callCtx, req)
	}
	timer.StopWithThreshold(5 * time.Second)

	if err != nil {
		// Caller cancellation is not a provider failure.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		perr := ClassifyError(g.Name(), err)
		logging.PerceptionWarn("[%s] classify failed (%s): %v", g.Name(), perr.Kind, err)
		if g.usage != nil {
			g.usage.TrackFailure(g.Name(), string(perr.Kind))
		}
		return nil, perr
	}
	if res == nil {
		return nil, ClassifyError(g.Name(), errors.New("empty result"))
	}
	if g.usage != nil {
		g.usage.Track(ctx, g.Name(), res.Model, res.Usage.InputTokens, res.Usage.OutputTokens)
	}
	return res, nil
}
