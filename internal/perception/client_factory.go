package perception

import (
	"fmt"
	"time"

	"finassist/internal/config"
)

// openAICompatDefaults maps each OpenAI-compatible provider to its base URL
// and model when the config leaves them blank.
var openAICompatDefaults = map[ProviderName]struct{ baseURL, model string }{
	ProviderOpenAI:     {defaultOpenAIBaseURL, defaultOpenAIModel},
	ProviderXAI:        {defaultXAIBaseURL, defaultXAIModel},
	ProviderOpenRouter: {defaultOpenRouterBaseURL, defaultOpenRouterModel},
	ProviderGroq:       {defaultGroqBaseURL, defaultGroqModel},
}

// NewProviderFromConfig builds the concrete client named by pc.Provider.
// The timeout bounds the underlying HTTP client; GuardedProvider applies its
// own deadline on top.
func NewProviderFromConfig(pc config.ProviderConfig, timeout time.Duration) (Provider, error) {
	name := ProviderName(pc.Provider)
	textOnly := !pc.ToolsEnabled()
	temperature := pc.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	switch name {
	case ProviderAnthropic:
		return NewAnthropicClientWithConfig(AnthropicConfig{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			Timeout:     timeout,
			Temperature: temperature,
			TextOnly:    textOnly,
		}), nil

	case ProviderGemini:
		return NewGeminiClientWithConfig(GeminiConfig{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			Timeout:     timeout,
			Temperature: temperature,
			TextOnly:    textOnly,
		})

	case ProviderOpenAI, ProviderXAI, ProviderOpenRouter, ProviderGroq:
		d := openAICompatDefaults[name]
		baseURL, model := pc.BaseURL, pc.Model
		if baseURL == "" {
			baseURL = d.baseURL
		}
		if model == "" {
			model = d.model
		}
		return NewOpenAIClientWithConfig(OpenAIConfig{
			Provider:    name,
			APIKey:      pc.APIKey,
			BaseURL:     baseURL,
			Model:       model,
			Timeout:     timeout,
			Temperature: temperature,
			TextOnly:    textOnly,
		}), nil

	case ProviderCompat:
		if pc.BaseURL == "" {
			return nil, fmt.Errorf("compat provider requires base_url")
		}
		if pc.Model == "" {
			return nil, fmt.Errorf("compat provider requires model")
		}
		return NewOpenAIClientWithConfig(OpenAIConfig{
			Provider:    ProviderCompat,
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			Timeout:     timeout,
			Temperature: temperature,
			TextOnly:    textOnly,
		}), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", pc.Provider)
	}
}
