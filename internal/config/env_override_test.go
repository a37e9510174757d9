package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Providers(t *testing.T) {
	t.Run("first key found selects primary", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")
		t.Setenv("GROQ_API_KEY", "groq-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "gemini", cfg.Providers.Primary.Provider)
		assert.Equal(t, "g-key", cfg.Providers.Primary.APIKey)
	})

	t.Run("explicit provider takes its own key", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")
		t.Setenv("OPENAI_API_KEY", "oa-key")

		cfg := DefaultConfig()
		cfg.Providers.Primary.Provider = "openai"
		cfg.applyEnvOverrides()

		assert.Equal(t, "openai", cfg.Providers.Primary.Provider)
		assert.Equal(t, "oa-key", cfg.Providers.Primary.APIKey)
	})

	t.Run("configured key is not replaced", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("OPENAI_API_KEY", "env-key")

		cfg := DefaultConfig()
		cfg.Providers.Primary = ProviderConfig{Provider: "openai", APIKey: "file-key"}
		cfg.applyEnvOverrides()

		assert.Equal(t, "file-key", cfg.Providers.Primary.APIKey)
	})

	t.Run("rescue provider env enables rescue", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("FINASSIST_RESCUE_PROVIDER", "xai")
		t.Setenv("XAI_API_KEY", "x-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Providers.RescueEnabled)
		assert.Equal(t, "xai", cfg.Providers.Rescue.Provider)
		assert.Equal(t, "x-key", cfg.Providers.Rescue.APIKey)
	})

	t.Run("no keys leaves heuristic-only", func(t *testing.T) {
		clearProviderEnv(t)

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.False(t, cfg.Providers.Primary.IsConfigured())
	})
}

func TestEnvOverrides_StorageAndDebug(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("FINASSIST_DB", "/tmp/ledger.db")
	t.Setenv("FINASSIST_REDIS_ADDR", "redis:6379")
	t.Setenv("FINASSIST_CURRENCY", "EUR")
	t.Setenv("FINASSIST_DEBUG", "1")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/tmp/ledger.db", cfg.Storage.Path)
	assert.Equal(t, "redis:6379", cfg.Conversation.RedisAddr)
	assert.Equal(t, "redis:6379", cfg.Events.RedisAddr)
	assert.Equal(t, "EUR", cfg.Assistant.Currency)
	assert.True(t, cfg.Logging.DebugMode)
}
