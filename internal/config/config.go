package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all finassist configuration.
type Config struct {
	Name string `yaml:"name"`

	// Assistant behaviour
	Assistant AssistantConfig `yaml:"assistant"`

	// Generative providers (primary + optional rescue)
	Providers ProvidersConfig `yaml:"providers"`

	// Per-stage timeouts
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// Provider circuit breaker
	Breaker BreakerConfig `yaml:"breaker"`

	// Ledger database
	Storage StorageConfig `yaml:"storage"`

	// Conversation history backend
	Conversation ConversationConfig `yaml:"conversation"`

	// Action audit events
	Events EventsConfig `yaml:"events"`

	// Token usage accounting
	Usage UsageConfig `yaml:"usage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// AssistantConfig configures the conversational engine.
type AssistantConfig struct {
	Currency        string `yaml:"currency"`
	HistoryWindow   int    `yaml:"history_window"`
	FallbackMessage string `yaml:"fallback_message"`
}

// ProvidersConfig configures the provider chain.
type ProvidersConfig struct {
	Primary       ProviderConfig `yaml:"primary"`
	Rescue        ProviderConfig `yaml:"rescue"`
	RescueEnabled bool           `yaml:"rescue_enabled"`
}

// ProviderConfig configures one generative provider.
type ProviderConfig struct {
	Provider      string  `yaml:"provider"` // openai, anthropic, gemini, xai, openrouter, groq, compat
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	Timeout       string  `yaml:"timeout"`
	SupportsTools *bool   `yaml:"supports_tools,omitempty"`
	Temperature   float64 `yaml:"temperature"`
}

// IsConfigured reports whether a provider has been named.
func (p ProviderConfig) IsConfigured() bool {
	return p.Provider != ""
}

// ToolsEnabled reports whether function calling should be offered to the
// provider. Defaults to true.
func (p ProviderConfig) ToolsEnabled() bool {
	return p.SupportsTools == nil || *p.SupportsTools
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	Enabled             bool   `yaml:"enabled"`
	MaxRequests         uint32 `yaml:"max_requests"`
	Interval            string `yaml:"interval"`
	OpenTimeout         string `yaml:"open_timeout"`
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
}

// StorageConfig configures the SQL ledger.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite (modernc), sqlite3 (cgo)
	Path   string `yaml:"path"`
}

// ConversationConfig configures where conversation turns are kept.
type ConversationConfig struct {
	Backend       string `yaml:"backend"` // sqlite, memory, redis, mongo
	RedisAddr     string `yaml:"redis_addr"`
	RedisPrefix   string `yaml:"redis_prefix"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// EventsConfig configures action audit publishing.
type EventsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Backend   string `yaml:"backend"` // gochannel, redis
	RedisAddr string `yaml:"redis_addr"`
	Topic     string `yaml:"topic"`
}

// UsageConfig configures token accounting.
type UsageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "finassist",

		Assistant: AssistantConfig{
			Currency:        "MAD",
			HistoryWindow:   10,
			FallbackMessage: "I received your message, but I could not work out a financial action from it. Try something like \"I spent 150 MAD on groceries\".",
		},

		Providers: ProvidersConfig{
			Primary: ProviderConfig{
				Timeout:     "30s",
				Temperature: 0.2,
			},
			Rescue: ProviderConfig{
				Timeout:     "30s",
				Temperature: 0.2,
			},
		},

		Timeouts: TimeoutsConfig{
			ContextBuild: "5s",
			Persist:      "5s",
			Request:      "90s",
		},

		Breaker: BreakerConfig{
			Enabled:             true,
			MaxRequests:         1,
			Interval:            "60s",
			OpenTimeout:         "30s",
			ConsecutiveFailures: 3,
		},

		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "data/finassist.db",
		},

		Conversation: ConversationConfig{
			Backend:       "sqlite",
			RedisAddr:     "localhost:6379",
			RedisPrefix:   "finassist",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "finassist",
		},

		Events: EventsConfig{
			Enabled: false,
			Backend: "gochannel",
			Topic:   "finassist.actions",
		},

		Usage: UsageConfig{
			Enabled: true,
			Path:    "data/usage.json",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// APIKeyEnv maps a provider name to the environment variable holding its key.
var APIKeyEnv = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"xai":        "XAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"groq":       "GROQ_API_KEY",
	"compat":     "FINASSIST_COMPAT_API_KEY",
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("FINASSIST_PRIMARY_PROVIDER"); p != "" {
		c.Providers.Primary.Provider = p
	}
	if p := os.Getenv("FINASSIST_RESCUE_PROVIDER"); p != "" {
		c.Providers.Rescue.Provider = p
		c.Providers.RescueEnabled = true
	}

	// Pick a primary from the first key found when none is configured.
	if c.Providers.Primary.Provider == "" {
		for _, p := range ValidProviders {
			if os.Getenv(APIKeyEnv[p]) != "" {
				c.Providers.Primary.Provider = p
				break
			}
		}
	}

	c.Providers.Primary.applyKeyFromEnv()
	c.Providers.Rescue.applyKeyFromEnv()

	if path := os.Getenv("FINASSIST_DB"); path != "" {
		c.Storage.Path = path
	}
	if cur := os.Getenv("FINASSIST_CURRENCY"); cur != "" {
		c.Assistant.Currency = cur
	}
	if addr := os.Getenv("FINASSIST_REDIS_ADDR"); addr != "" {
		c.Conversation.RedisAddr = addr
		c.Events.RedisAddr = addr
	}
	if uri := os.Getenv("FINASSIST_MONGO_URI"); uri != "" {
		c.Conversation.MongoURI = uri
	}
	if os.Getenv("FINASSIST_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}
}

// applyKeyFromEnv fills an empty key from the provider's environment variable.
func (p *ProviderConfig) applyKeyFromEnv() {
	if p.Provider == "" || p.APIKey != "" {
		return
	}
	if env, ok := APIKeyEnv[p.Provider]; ok {
		p.APIKey = os.Getenv(env)
	}
}

// GetPrimaryTimeout returns the primary provider call timeout.
func (c *Config) GetPrimaryTimeout() time.Duration {
	return parseDuration(c.Providers.Primary.Timeout, 30*time.Second)
}

// GetRescueTimeout returns the rescue provider call timeout.
func (c *Config) GetRescueTimeout() time.Duration {
	return parseDuration(c.Providers.Rescue.Timeout, 30*time.Second)
}

// GetBreakerInterval returns the cyclic period of the closed breaker state.
func (c *Config) GetBreakerInterval() time.Duration {
	return parseDuration(c.Breaker.Interval, 60*time.Second)
}

// GetBreakerOpenTimeout returns how long an open breaker stays open.
func (c *Config) GetBreakerOpenTimeout() time.Duration {
	return parseDuration(c.Breaker.OpenTimeout, 30*time.Second)
}

// GetHistoryWindow returns the number of turns read as classification context.
func (c *Config) GetHistoryWindow() int {
	if c.Assistant.HistoryWindow <= 0 {
		return 10
	}
	return c.Assistant.HistoryWindow
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidProviders lists supported providers in auto-detection priority order.
var ValidProviders = []string{"anthropic", "openai", "gemini", "xai", "openrouter", "groq", "compat"}

// ValidDrivers lists supported SQL drivers.
var ValidDrivers = []string{"sqlite", "sqlite3"}

// ValidConversationBackends lists supported conversation stores.
var ValidConversationBackends = []string{"sqlite", "memory", "redis", "mongo"}

// ValidEventBackends lists supported event publishers.
var ValidEventBackends = []string{"gochannel", "redis"}

// Validate validates the configuration. An unset primary provider is valid
// and puts the engine in heuristic-only mode.
func (c *Config) Validate() error {
	if c.Providers.Primary.IsConfigured() {
		if err := c.Providers.Primary.validate("primary"); err != nil {
			return err
		}
	}

	if c.Providers.RescueEnabled {
		if !c.Providers.Rescue.IsConfigured() {
			return fmt.Errorf("rescue provider enabled but providers.rescue.provider is empty")
		}
		if err := c.Providers.Rescue.validate("rescue"); err != nil {
			return err
		}
	}

	if !contains(ValidDrivers, c.Storage.Driver) {
		return fmt.Errorf("invalid storage driver: %s (valid: %v)", c.Storage.Driver, ValidDrivers)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path not configured")
	}
	if !contains(ValidConversationBackends, c.Conversation.Backend) {
		return fmt.Errorf("invalid conversation backend: %s (valid: %v)", c.Conversation.Backend, ValidConversationBackends)
	}
	if c.Events.Enabled && !contains(ValidEventBackends, c.Events.Backend) {
		return fmt.Errorf("invalid events backend: %s (valid: %v)", c.Events.Backend, ValidEventBackends)
	}
	if c.Assistant.Currency == "" {
		return fmt.Errorf("assistant currency not configured")
	}

	// A request timeout shorter than the stages would cancel a hanging
	// provider call before the engine can degrade to the heuristic.
	if t := c.EngineTimeouts(); t.Request < t.StageBudget() {
		return fmt.Errorf("timeouts.request %s is shorter than context_build + primary + rescue + persist (%s)", t.Request, t.StageBudget())
	}

	return nil
}

func (p ProviderConfig) validate(role string) error {
	if !contains(ValidProviders, p.Provider) {
		return fmt.Errorf("invalid %s provider: %s (valid: %v)", role, p.Provider, ValidProviders)
	}
	if p.APIKey == "" && p.Provider != "compat" {
		return fmt.Errorf("%s provider %s has no API key (set %s)", role, p.Provider, APIKeyEnv[p.Provider])
	}
	if p.Provider == "compat" && p.BaseURL == "" {
		return fmt.Errorf("%s provider compat requires base_url", role)
	}
	if p.Timeout != "" {
		if _, err := time.ParseDuration(p.Timeout); err != nil {
			return fmt.Errorf("%s provider timeout %q: %w", role, p.Timeout, err)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
