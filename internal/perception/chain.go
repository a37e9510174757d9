package perception

import (
	"fmt"

	"finassist/internal/config"
	"finassist/internal/logging"
)

// Chain is the ordered provider list consulted by the engine.
type Chain struct {
	Primary       Provider
	Rescue        Provider
	RescueEnabled bool
}

// HasPrimary reports whether generative classification is available.
func (c *Chain) HasPrimary() bool {
	return c != nil && c.Primary != nil
}

// ShouldRescue reports whether the rescue provider may be tried after the
// primary failed with err. Only quota exhaustion and outages qualify.
func (c *Chain) ShouldRescue(err error) bool {
	if c == nil || !c.RescueEnabled || c.Rescue == nil || err == nil {
		return false
	}
	return KindOf(err).Recoverable()
}

// NewChainFromConfig builds guarded providers from cfg. An unconfigured
// primary yields an empty chain and the engine runs heuristic-only.
func NewChainFromConfig(cfg *config.Config, recorder UsageRecorder) (*Chain, error) {
	chain := &Chain{}
	var breaker *BreakerSettings
	if cfg.Breaker.Enabled {
		breaker = &BreakerSettings{
			MaxRequests:         cfg.Breaker.MaxRequests,
			Interval:            cfg.GetBreakerInterval(),
			OpenTimeout:         cfg.GetBreakerOpenTimeout(),
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		}
	}

	if cfg.Providers.Primary.IsConfigured() {
		timeout := cfg.GetPrimaryTimeout()
		p, err := NewProviderFromConfig(cfg.Providers.Primary, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create primary provider: %w", err)
		}
		chain.Primary = NewGuardedProvider(p, GuardOptions{Timeout: timeout, Breaker: breaker, Usage: recorder})
		logging.Boot("primary provider: %s (tools=%v)", p.Name(), cfg.Providers.Primary.ToolsEnabled())
	} else {
		logging.Boot("no primary provider configured, heuristic-only mode")
	}

	if cfg.Providers.RescueEnabled && cfg.Providers.Rescue.IsConfigured() {
		timeout := cfg.GetRescueTimeout()
		p, err := NewProviderFromConfig(cfg.Providers.Rescue, timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create rescue provider: %w", err)
		}
		chain.Rescue = NewGuardedProvider(p, GuardOptions{Timeout: timeout, Breaker: breaker, Usage: recorder})
		chain.RescueEnabled = true
		logging.Boot("rescue provider: %s", p.Name())
	}
	return chain, nil
}
