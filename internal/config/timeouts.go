package config

import "time"

// TimeoutsConfig holds the YAML form of the non-provider stage timeouts.
// Provider call timeouts live on each ProviderConfig.
type TimeoutsConfig struct {
	ContextBuild string `yaml:"context_build"`
	Persist      string `yaml:"persist"`
	Request      string `yaml:"request"`
}

// EngineTimeouts centralizes the timeouts applied while handling one message.
//
// The shortest timeout in a chain wins: a provider call is bounded by its own
// timeout and by the request timeout, whichever expires first.
type EngineTimeouts struct {
	// PrimaryCall bounds a single primary provider call. Expiry is classified
	// as Unavailable so the chain moves on.
	PrimaryCall time.Duration `json:"primary_call"`

	// RescueCall bounds a single rescue provider call.
	RescueCall time.Duration `json:"rescue_call"`

	// ContextBuild bounds the ledger queries for the financial snapshot.
	ContextBuild time.Duration `json:"context_build"`

	// Persist bounds the conversation append.
	Persist time.Duration `json:"persist"`

	// Request bounds the whole message, set by callers that own the context.
	Request time.Duration `json:"request"`
}

// StageBudget is the longest a message can take before the engine gives up
// on providers and degrades: context build, both provider calls and persist.
func (t EngineTimeouts) StageBudget() time.Duration {
	return t.ContextBuild + t.PrimaryCall + t.RescueCall + t.Persist
}

// DefaultEngineTimeouts returns defaults suited to hosted providers.
func DefaultEngineTimeouts() EngineTimeouts {
	return EngineTimeouts{
		PrimaryCall:  30 * time.Second,
		RescueCall:   30 * time.Second,
		ContextBuild: 5 * time.Second,
		Persist:      5 * time.Second,
		Request:      90 * time.Second,
	}
}

// FastEngineTimeouts returns short timeouts for tests and local models.
func FastEngineTimeouts() EngineTimeouts {
	return EngineTimeouts{
		PrimaryCall:  2 * time.Second,
		RescueCall:   2 * time.Second,
		ContextBuild: time.Second,
		Persist:      time.Second,
		Request:      10 * time.Second,
	}
}

// EngineTimeouts resolves the configured timeouts, falling back to defaults
// for empty or malformed values.
func (c *Config) EngineTimeouts() EngineTimeouts {
	def := DefaultEngineTimeouts()
	return EngineTimeouts{
		PrimaryCall:  parseDuration(c.Providers.Primary.Timeout, def.PrimaryCall),
		RescueCall:   parseDuration(c.Providers.Rescue.Timeout, def.RescueCall),
		ContextBuild: parseDuration(c.Timeouts.ContextBuild, def.ContextBuild),
		Persist:      parseDuration(c.Timeouts.Persist, def.Persist),
		Request:      parseDuration(c.Timeouts.Request, def.Request),
	}
}
